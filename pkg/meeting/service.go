package meeting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/event_bus"
	"github.com/tutorbook/tutorbook/internal/utils"
	"github.com/tutorbook/tutorbook/pkg/matching"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/recurrence"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

var (
	ErrUnknownAttendee   = errors.New("unknown attendee")
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")
	ErrInvalidRange      = errors.New("invalid time range")
)

// AvailabilityReader provides the declared availability of attendees.
type AvailabilityReader interface {
	GetFor(ctx context.Context, personId int) (timeslot.Availability, error)
}

type PersonReader interface {
	GetMany(ctx context.Context, ids []int) ([]person.Person, error)
}

type Service interface {
	// Create books a meeting for the current person and the given attendees.
	// Attendees whose availability does not cover the time fail the booking only
	// under the strict policy.
	Create(ctx context.Context, m Meeting) (Meeting, error)
	Get(ctx context.Context, uid string) (Meeting, error)
	Cancel(ctx context.Context, uid string) error
	ListFor(ctx context.Context, personId int, from, to time.Time) ([]Occurrence, error)
	ListMine(ctx context.Context, from, to time.Time) ([]Occurrence, error)
	// BookedFor returns the times of every meeting the person attends, unexpanded.
	BookedFor(ctx context.Context, personId int) (timeslot.Availability, error)
}

type ServiceImpl struct {
	repo         Repository
	people       PersonReader
	availability AvailabilityReader
	matcher      *matching.Matcher
	resolver     *recurrence.Resolver
	eventBus     *event_bus.EventBus
	clock        utils.Clock
}

func NewService(
	repo Repository,
	people PersonReader,
	availability AvailabilityReader,
	matcher *matching.Matcher,
	resolver *recurrence.Resolver,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
) *ServiceImpl {
	return &ServiceImpl{
		repo:         repo,
		people:       people,
		availability: availability,
		matcher:      matcher,
		resolver:     resolver,
		eventBus:     eventBus,
		clock:        clock,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, m Meeting) (Meeting, error) {
	creatorId, err := person.CurrentId(ctx)
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to get current person: %w", err)
	}
	m.CreatorId = creatorId
	m.AttendeeIds = attendeesWithCreator(creatorId, m.AttendeeIds)
	m.Notes = strings.TrimSpace(m.Notes)

	m.Time, err = s.resolver.RepairSlot(m.Time)
	if err != nil {
		return Meeting{}, fmt.Errorf("%w: %w", ErrInvalidRecurrence, err)
	}

	attendees, err := s.attendees(ctx, m.AttendeeIds)
	if err != nil {
		return Meeting{}, err
	}
	if err := s.matcher.CheckAttendees(m.Time, attendees); err != nil {
		return Meeting{}, err
	}

	m.Uid = uuid.NewString()
	m.CreatedAt = s.clock.Now().UTC()
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		return repo.Create(ctx, m)
	})
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to store meeting: %w", err)
	}
	log.Debugf("booked meeting %s for %v at %s", m.Uid, m.AttendeeIds, m.Time)

	event := event_bus.NewEvent(ctx, event_bus.MeetingBookedType, event_bus.MeetingBooked{
		MeetingUid:  m.Uid,
		CreatorId:   m.CreatorId,
		AttendeeIds: m.AttendeeIds,
		From:        m.Time.From(),
		To:          m.Time.To(),
	})
	if err := s.eventBus.Publish(event); err != nil {
		log.Errorf("failed to publish booking of meeting %s: %v", m.Uid, err)
	}
	return m, nil
}

func (s *ServiceImpl) attendees(ctx context.Context, ids []int) ([]matching.Attendee, error) {
	people, err := s.people.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendees: %w", err)
	}
	if len(people) != len(ids) {
		known := make(map[int]bool, len(people))
		for _, p := range people {
			known[p.Id] = true
		}
		var unknown []int
		for _, id := range ids {
			if !known[id] {
				unknown = append(unknown, id)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrUnknownAttendee, unknown)
	}

	attendees := make([]matching.Attendee, 0, len(people))
	for _, p := range people {
		availability, err := s.availability.GetFor(ctx, p.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to get availability of %s: %w", p.Uid, err)
		}
		attendees = append(attendees, matching.Attendee{
			PersonId:     p.Id,
			Name:         p.Name,
			Availability: availability,
		})
	}
	return attendees, nil
}

// Get returns a meeting the current person attends. Meetings of others are
// reported as not found.
func (s *ServiceImpl) Get(ctx context.Context, uid string) (Meeting, error) {
	personId, err := person.CurrentId(ctx)
	if err != nil {
		return Meeting{}, fmt.Errorf("failed to get current person: %w", err)
	}
	m, err := s.repo.Get(ctx, uid)
	if err != nil {
		return Meeting{}, err
	}
	if !m.HasAttendee(personId) {
		return Meeting{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, uid)
	}
	return m, nil
}

func (s *ServiceImpl) Cancel(ctx context.Context, uid string) error {
	m, err := s.Get(ctx, uid)
	if err != nil {
		return err
	}
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		return repo.Delete(ctx, uid)
	})
	if err != nil {
		return fmt.Errorf("failed to cancel meeting: %w", err)
	}
	log.Debugf("cancelled meeting %s", uid)

	event := event_bus.NewEvent(ctx, event_bus.MeetingCancelledType, event_bus.MeetingCancelled{
		MeetingUid:  m.Uid,
		AttendeeIds: m.AttendeeIds,
	})
	if err := s.eventBus.Publish(event); err != nil {
		log.Errorf("failed to publish cancellation of meeting %s: %v", uid, err)
	}
	return nil
}

func (s *ServiceImpl) ListMine(ctx context.Context, from, to time.Time) ([]Occurrence, error) {
	personId, err := person.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current person: %w", err)
	}
	return s.ListFor(ctx, personId, from, to)
}

// ListFor expands the person's meetings into the instances overlapping [from, to),
// ordered by start and then meeting uid.
func (s *ServiceImpl) ListFor(ctx context.Context, personId int, from, to time.Time) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrInvalidRange, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	meetings, err := s.repo.ListFor(ctx, personId)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	occurrences := make([]Occurrence, 0)
	for _, m := range meetings {
		for _, instance := range s.resolver.OccurrencesOrAnchorBetween(m.Time, from, to) {
			occurrences = append(occurrences, Occurrence{Meeting: m, Time: instance})
		}
	}
	sortOccurrences(occurrences)
	return occurrences, nil
}

func (s *ServiceImpl) BookedFor(ctx context.Context, personId int) (timeslot.Availability, error) {
	meetings, err := s.repo.ListFor(ctx, personId)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	booked := make(timeslot.Availability, 0, len(meetings))
	for _, m := range meetings {
		booked = append(booked, m.Time)
	}
	return booked, nil
}

func sortOccurrences(occurrences []Occurrence) {
	slices.SortFunc(occurrences, func(a, b Occurrence) int {
		if c := a.Time.From().Compare(b.Time.From()); c != 0 {
			return c
		}
		return strings.Compare(a.Meeting.Uid, b.Meeting.Uid)
	})
}
