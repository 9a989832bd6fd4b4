package availability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/event_bus"
	"github.com/tutorbook/tutorbook/internal/utils"
	"github.com/tutorbook/tutorbook/pkg/grid"
	"github.com/tutorbook/tutorbook/pkg/person"
	"github.com/tutorbook/tutorbook/pkg/recurrence"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

var ErrInvalidRecurrence = errors.New("invalid recurrence rule")

type Service interface {
	GetMine(ctx context.Context) (timeslot.Availability, error)
	GetFor(ctx context.Context, personId int) (timeslot.Availability, error)
	// Replace stores a new declared availability for the current person, after
	// moving any UNTIL that ends before its own slot. Unparseable rules are rejected.
	Replace(ctx context.Context, availability timeslot.Availability) (timeslot.Availability, error)
	SlotFromGrid(ctx context.Context, cell grid.Cell) (timeslot.Timeslot, error)
	GridOf(ctx context.Context, slot timeslot.Timeslot) (grid.Cell, error)
	ExportICS(ctx context.Context, p person.Person) ([]byte, error)
	ImportICS(ctx context.Context, ics []byte) (timeslot.Availability, error)
}

type ServiceImpl struct {
	repo        Repository
	resolver    *recurrence.Resolver
	eventBus    *event_bus.EventBus
	clock       utils.Clock
	columnWidth float64
}

func NewService(
	repo Repository,
	resolver *recurrence.Resolver,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
	columnWidth float64,
) *ServiceImpl {
	if columnWidth <= 0 {
		columnWidth = grid.DefaultColumnWidth
	}
	return &ServiceImpl{
		repo:        repo,
		resolver:    resolver,
		eventBus:    eventBus,
		clock:       clock,
		columnWidth: columnWidth,
	}
}

func (s *ServiceImpl) GetMine(ctx context.Context) (timeslot.Availability, error) {
	personId, err := person.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current person: %w", err)
	}
	return s.GetFor(ctx, personId)
}

func (s *ServiceImpl) GetFor(ctx context.Context, personId int) (timeslot.Availability, error) {
	availability, err := s.repo.GetAvailability(ctx, personId)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return availability, nil
}

func (s *ServiceImpl) Replace(ctx context.Context, availability timeslot.Availability) (timeslot.Availability, error) {
	personId, err := person.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current person: %w", err)
	}

	repaired := make(timeslot.Availability, 0, len(availability))
	for _, slot := range availability {
		fixed, err := s.resolver.RepairSlot(slot)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRecurrence, err)
		}
		repaired = append(repaired, fixed)
	}

	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		return repo.ReplaceAvailability(ctx, personId, repaired)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store availability: %w", err)
	}
	log.Debugf("stored %d availability slots for person %d", len(repaired), personId)

	event := event_bus.NewEvent(ctx, event_bus.AvailabilityUpdatedType, event_bus.AvailabilityUpdated{
		PersonId:  personId,
		SlotCount: len(repaired),
	})
	if err := s.eventBus.Publish(event); err != nil {
		log.Errorf("failed to publish availability update for person %d: %v", personId, err)
	}
	return repaired, nil
}

// weekMapper maps the grid onto the week containing anchor, in the current
// person's timezone and starting on their preferred weekday.
func (s *ServiceImpl) weekMapper(ctx context.Context, anchor time.Time) (grid.Mapper, error) {
	current, err := person.CurrentPerson(ctx)
	if err != nil {
		return grid.Mapper{}, fmt.Errorf("failed to get current person: %w", err)
	}
	mapper := grid.NewMapper(s.columnWidth, current.Settings.Location())
	return mapper.ForWeek(startOfWeek(anchor, current.Settings)), nil
}

// SlotFromGrid places a drag on the weekly grid in the current week.
func (s *ServiceImpl) SlotFromGrid(ctx context.Context, cell grid.Cell) (timeslot.Timeslot, error) {
	mapper, err := s.weekMapper(ctx, s.clock.Now())
	if err != nil {
		return timeslot.Timeslot{}, err
	}
	return mapper.SlotFromCell(cell)
}

func (s *ServiceImpl) GridOf(ctx context.Context, slot timeslot.Timeslot) (grid.Cell, error) {
	mapper, err := s.weekMapper(ctx, slot.From())
	if err != nil {
		return grid.Cell{}, err
	}
	return mapper.CellOf(slot), nil
}

func (s *ServiceImpl) ExportICS(ctx context.Context, p person.Person) ([]byte, error) {
	availability, err := s.GetFor(ctx, p.Id)
	if err != nil {
		return nil, err
	}
	return EncodeICS(p.Uid, availability, s.clock.Now())
}

// ImportICS replaces the current person's availability with the events of a calendar.
func (s *ServiceImpl) ImportICS(ctx context.Context, ics []byte) (timeslot.Availability, error) {
	availability, err := DecodeICS(bytes.NewReader(ics))
	if err != nil {
		return nil, err
	}
	return s.Replace(ctx, availability)
}

// startOfWeek returns midnight of the first day of the week containing t, in the
// person's timezone and honouring their preferred first weekday.
func startOfWeek(t time.Time, settings person.Settings) time.Time {
	local := t.In(settings.Location())
	delta := (int(local.Weekday()) - int(settings.WeekFirstDay) + 7) % 7
	day := local.AddDate(0, 0, -delta)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}
