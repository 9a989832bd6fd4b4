package search

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

type WindowStoreStub struct {
	mu      sync.RWMutex
	windows map[int][]timeslot.Window // personId -> windows
}

func NewWindowStoreStub() *WindowStoreStub {
	return &WindowStoreStub{windows: make(map[int][]timeslot.Window)}
}

func (s *WindowStoreStub) Replace(ctx context.Context, personId int, windows []timeslot.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(windows) == 0 {
		delete(s.windows, personId)
		return nil
	}
	s.windows[personId] = slices.Clone(windows)
	return nil
}

func (s *WindowStoreStub) Windows(ctx context.Context, personId int) ([]timeslot.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.windows[personId]), nil
}

func (s *WindowStoreStub) PeopleAvailable(ctx context.Context, from, to time.Time) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var available []int
	for personId, windows := range s.windows {
		if slices.ContainsFunc(windows, func(w timeslot.Window) bool {
			return covers(w, from.UnixMilli(), to.UnixMilli())
		}) {
			available = append(available, personId)
		}
	}
	slices.Sort(available)
	return available, nil
}
