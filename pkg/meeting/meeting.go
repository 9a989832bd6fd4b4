package meeting

import (
	"slices"
	"time"

	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// Meeting is a booked session. Time may recur; AttendeeIds always include the creator.
type Meeting struct {
	Uid         string
	CreatorId   int
	AttendeeIds []int
	Time        timeslot.Timeslot
	Notes       string
	CreatedAt   time.Time
}

func (m Meeting) HasAttendee(personId int) bool {
	return slices.Contains(m.AttendeeIds, personId)
}

// Occurrence is one instance of a possibly recurring meeting.
type Occurrence struct {
	Meeting Meeting
	Time    timeslot.Timeslot
}

// attendeesWithCreator returns the sorted, deduplicated attendee ids plus the creator.
func attendeesWithCreator(creatorId int, attendeeIds []int) []int {
	ids := append([]int{creatorId}, attendeeIds...)
	slices.Sort(ids)
	return slices.Compact(ids)
}
