package availability

import (
	"context"
	"sync"

	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

type RepositoryStub struct {
	mu            sync.RWMutex
	slots         map[int]timeslot.Availability // personId -> declared slots
	inTransaction bool
	failOnReplace error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{slots: make(map[int]timeslot.Availability)}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	original := make(map[int]timeslot.Availability, len(r.slots))
	for k, v := range r.slots {
		original[k] = v
	}
	r.inTransaction = true
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTransaction = false
	if err != nil {
		r.slots = original
		return err
	}
	return nil
}

func (r *RepositoryStub) GetAvailability(ctx context.Context, personId int) (timeslot.Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.slots[personId]
	result := make(timeslot.Availability, len(stored))
	copy(result, stored)
	return result, nil
}

func (r *RepositoryStub) ReplaceAvailability(ctx context.Context, personId int, availability timeslot.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOnReplace != nil {
		return r.failOnReplace
	}
	stored := make(timeslot.Availability, len(availability))
	copy(stored, availability)
	r.slots[personId] = stored
	return nil
}

// FailOnReplace makes every following ReplaceAvailability call return err.
func (r *RepositoryStub) FailOnReplace(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOnReplace = err
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = make(map[int]timeslot.Availability)
	r.failOnReplace = nil
}
