package matching

import (
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

var ErrAttendeeUnavailable = errors.New("attendee is not available")

// Attendee is a person invited to a meeting together with their declared availability.
type Attendee struct {
	PersonId     int
	Name         string
	Availability timeslot.Availability
}

type UnavailableError struct {
	Candidate timeslot.Timeslot
	PersonIds []int
	Names     []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%v not available during %s", e.Names, e.Candidate)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrAttendeeUnavailable
}

// Unavailable returns the attendees whose availability does not fit the candidate.
// A recurring candidate must fit at every occurrence up to DefaultHorizon of its
// first start.
func (m *Matcher) Unavailable(candidate timeslot.Timeslot, attendees []Attendee) []Attendee {
	instances := m.resolver.OccurrencesOrAnchor(candidate, DefaultHorizon(candidate.From()))
	var missing []Attendee
	for _, attendee := range attendees {
		for _, instance := range instances {
			if !m.FitsWithin(instance, attendee.Availability) {
				missing = append(missing, attendee)
				break
			}
		}
	}
	return missing
}

// CheckAttendees applies the matcher's policy to a requested meeting time.
func (m *Matcher) CheckAttendees(candidate timeslot.Timeslot, attendees []Attendee) error {
	missing := m.Unavailable(candidate, attendees)
	if len(missing) == 0 {
		return nil
	}
	slices.SortFunc(missing, func(a, b Attendee) int { return a.PersonId - b.PersonId })
	err := &UnavailableError{Candidate: candidate}
	for _, attendee := range missing {
		err.PersonIds = append(err.PersonIds, attendee.PersonId)
		err.Names = append(err.Names, attendee.Name)
	}
	if m.policy.Strict {
		return err
	}
	log.WithField("personIds", err.PersonIds).Warnf("booking outside availability: %v", err)
	return nil
}
