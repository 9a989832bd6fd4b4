package meeting

import (
	"context"
	"sync"

	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// AvailabilityReaderStub is a test stub implementation of AvailabilityReader
type AvailabilityReaderStub struct {
	mu           sync.RWMutex
	availability map[int]timeslot.Availability // personId -> declared slots
	err          error
}

func NewAvailabilityReaderStub() *AvailabilityReaderStub {
	return &AvailabilityReaderStub{availability: make(map[int]timeslot.Availability)}
}

func (s *AvailabilityReaderStub) GetFor(ctx context.Context, personId int) (timeslot.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.availability[personId], nil
}

func (s *AvailabilityReaderStub) Set(personId int, availability timeslot.Availability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability[personId] = availability
}

func (s *AvailabilityReaderStub) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
