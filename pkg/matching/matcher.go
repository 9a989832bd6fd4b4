package matching

import (
	"time"

	"github.com/tutorbook/tutorbook/pkg/recurrence"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// Granularity is the booking grid every returned fragment is aligned to.
const Granularity = 15 * time.Minute

// DefaultHorizonMonths is how far ahead availability is indexed.
const DefaultHorizonMonths = 3

// Policy controls how attendee availability is enforced when a meeting is requested.
type Policy struct {
	// Strict rejects meetings outside any attendee's availability. When false the
	// violation is only logged.
	Strict bool
}

type Matcher struct {
	resolver *recurrence.Resolver
	policy   Policy
}

func NewMatcher(resolver *recurrence.Resolver, policy Policy) *Matcher {
	return &Matcher{resolver: resolver, policy: policy}
}

func (m *Matcher) Policy() Policy {
	return m.policy
}

// DefaultHorizon returns the end of the indexing window starting at now.
func DefaultHorizon(now time.Time) time.Time {
	return now.AddDate(0, DefaultHorizonMonths, 0)
}

// FitsWithin reports whether a single declared slot, or one occurrence of a
// recurring slot, contains the whole candidate. Adjacent slots are not joined.
func (m *Matcher) FitsWithin(candidate timeslot.Timeslot, availability timeslot.Availability) bool {
	for _, slot := range availability {
		if slot.Contains(candidate) {
			return true
		}
		if !slot.IsRecurring() || candidate.From().Before(slot.From()) {
			continue
		}
		for _, occurrence := range m.resolver.OccurrencesOrAnchorBetween(slot, candidate.From(), candidate.To()) {
			if occurrence.Contains(candidate) {
				return true
			}
		}
	}
	return false
}

// SubtractBooked returns the declared time left after removing every booked
// instance, as sorted disjoint slots aligned inward to Granularity. Recurring
// slots on either side are expanded up to horizonEnd, and anything starting at or
// after horizonEnd is dropped. The result does not depend on the order of booked.
func (m *Matcher) SubtractBooked(availability, booked timeslot.Availability, horizonEnd time.Time) timeslot.Availability {
	return m.SubtractBookedBetween(availability, booked, time.Time{}, horizonEnd)
}

// SubtractBookedBetween is SubtractBooked limited to instances that end after
// from. Fragments are not clipped at from.
func (m *Matcher) SubtractBookedBetween(availability, booked timeslot.Availability, from, horizonEnd time.Time) timeslot.Availability {
	free := m.expand(availability, from, horizonEnd).Merged()
	busy := m.expand(booked, from, horizonEnd).Merged()

	remaining := make(timeslot.Availability, 0, len(free))
	j := 0
	for _, f := range free {
		cursor := f.From()
		for j < len(busy) && !busy[j].To().After(cursor) {
			j++
		}
		for k := j; k < len(busy) && busy[k].From().Before(f.To()); k++ {
			if busy[k].From().After(cursor) {
				remaining = appendSnapped(remaining, cursor, busy[k].From())
			}
			if busy[k].To().After(cursor) {
				cursor = busy[k].To()
			}
		}
		if cursor.Before(f.To()) {
			remaining = appendSnapped(remaining, cursor, f.To())
		}
	}
	return remaining
}

func (m *Matcher) expand(a timeslot.Availability, from, horizonEnd time.Time) timeslot.Availability {
	out := make(timeslot.Availability, 0, len(a))
	for _, slot := range a {
		out = append(out, m.resolver.OccurrencesOrAnchorBetween(slot, from, horizonEnd)...)
	}
	return out
}

func appendSnapped(a timeslot.Availability, from, to time.Time) timeslot.Availability {
	from = ceilToGrid(from)
	to = to.Truncate(Granularity)
	slot, err := timeslot.New(from, to)
	if err != nil {
		// narrower than one grid step
		return a
	}
	return append(a, slot)
}

func ceilToGrid(t time.Time) time.Time {
	truncated := t.Truncate(Granularity)
	if truncated.Before(t) {
		return truncated.Add(Granularity)
	}
	return truncated
}
