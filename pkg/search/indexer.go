package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/internal/event_bus"
	"github.com/tutorbook/tutorbook/internal/utils"
	"github.com/tutorbook/tutorbook/pkg/matching"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

type AvailabilityReader interface {
	GetFor(ctx context.Context, personId int) (timeslot.Availability, error)
}

type BookingReader interface {
	BookedFor(ctx context.Context, personId int) (timeslot.Availability, error)
}

// Indexer rebuilds the open windows of a person: declared availability minus
// booked meetings, from now until the search horizon.
type Indexer struct {
	availability AvailabilityReader
	bookings     BookingReader
	store        WindowStore
	matcher      *matching.Matcher
	clock        utils.Clock
	horizon      time.Duration
}

// NewIndexer creates an indexer. A zero horizon falls back to matching.DefaultHorizon.
func NewIndexer(
	availability AvailabilityReader,
	bookings BookingReader,
	store WindowStore,
	matcher *matching.Matcher,
	clock utils.Clock,
	horizon time.Duration,
) *Indexer {
	return &Indexer{
		availability: availability,
		bookings:     bookings,
		store:        store,
		matcher:      matcher,
		clock:        clock,
		horizon:      horizon,
	}
}

func (i *Indexer) horizonEnd(now time.Time) time.Time {
	if i.horizon <= 0 {
		return matching.DefaultHorizon(now)
	}
	return now.Add(i.horizon)
}

// OpenWindows computes the windows Reindex would store, without storing them.
func (i *Indexer) OpenWindows(ctx context.Context, personId int) ([]timeslot.Window, error) {
	availability, err := i.availability.GetFor(ctx, personId)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability of person %d: %w", personId, err)
	}
	booked, err := i.bookings.BookedFor(ctx, personId)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings of person %d: %w", personId, err)
	}

	now := i.clock.Now()
	open := i.matcher.SubtractBookedBetween(availability, booked, now, i.horizonEnd(now))
	windows := make([]timeslot.Window, 0, len(open))
	for _, w := range open.Windows() {
		if w.To > now.UnixMilli() {
			windows = append(windows, w)
		}
	}
	return windows, nil
}

func (i *Indexer) Reindex(ctx context.Context, personId int) error {
	windows, err := i.OpenWindows(ctx, personId)
	if err != nil {
		return err
	}
	if err := i.store.Replace(ctx, personId, windows); err != nil {
		return fmt.Errorf("failed to store windows of person %d: %w", personId, err)
	}
	log.Debugf("indexed %d open windows for person %d", len(windows), personId)
	return nil
}

func (i *Indexer) reindexAll(ctx context.Context, personIds []int) error {
	var errs []error
	for _, personId := range personIds {
		if err := i.Reindex(ctx, personId); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe keeps the index current with availability and meeting changes.
func (i *Indexer) Subscribe(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.AvailabilityUpdatedType, func(e event_bus.EventT[event_bus.AvailabilityUpdated]) error {
		return i.Reindex(e.Context(), e.Data.PersonId)
	})
	event_bus.SubscribeTyped(bus, event_bus.MeetingBookedType, func(e event_bus.EventT[event_bus.MeetingBooked]) error {
		return i.reindexAll(e.Context(), e.Data.AttendeeIds)
	})
	event_bus.SubscribeTyped(bus, event_bus.MeetingCancelledType, func(e event_bus.EventT[event_bus.MeetingCancelled]) error {
		return i.reindexAll(e.Context(), e.Data.AttendeeIds)
	})
}
