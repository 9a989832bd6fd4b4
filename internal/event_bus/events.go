package event_bus

import "time"

const (
	AvailabilityUpdatedType EventType = "availability.updated"
	MeetingBookedType       EventType = "meeting.booked"
	MeetingCancelledType    EventType = "meeting.cancelled"
)

// AvailabilityUpdated is published after a person's declared availability was replaced.
type AvailabilityUpdated struct {
	PersonId  int
	SlotCount int
}

type MeetingBooked struct {
	MeetingUid  string
	CreatorId   int
	AttendeeIds []int
	From        time.Time
	To          time.Time
}

type MeetingCancelled struct {
	MeetingUid  string
	AttendeeIds []int
}
