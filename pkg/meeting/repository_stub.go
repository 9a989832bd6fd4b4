package meeting

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

type RepositoryStub struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{meetings: make(map[string]Meeting)}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	original := maps.Clone(r.meetings)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.meetings = original
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) Create(ctx context.Context, m Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.meetings[m.Uid]; exists {
		return fmt.Errorf("meeting %s already exists", m.Uid)
	}
	m.AttendeeIds = slices.Clone(m.AttendeeIds)
	slices.Sort(m.AttendeeIds)
	r.meetings[m.Uid] = m
	return nil
}

func (r *RepositoryStub) Get(ctx context.Context, uid string) (Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meetings[uid]
	if !ok {
		return Meeting{}, fmt.Errorf("%w: %s", ErrMeetingNotFound, uid)
	}
	return m, nil
}

func (r *RepositoryStub) Delete(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[uid]; !ok {
		return fmt.Errorf("%w: %s", ErrMeetingNotFound, uid)
	}
	delete(r.meetings, uid)
	return nil
}

func (r *RepositoryStub) ListFor(ctx context.Context, personId int) ([]Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Meeting, 0)
	for _, m := range r.meetings {
		if m.HasAttendee(personId) {
			result = append(result, m)
		}
	}
	slices.SortFunc(result, func(a, b Meeting) int {
		if c := a.Time.From().Compare(b.Time.From()); c != 0 {
			return c
		}
		return strings.Compare(a.Uid, b.Uid)
	})
	return result, nil
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings = make(map[string]Meeting)
}

