package person

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	nextId int
	data   map[int]Person
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{nextId: 0, data: map[int]Person{}}
}

func (s *RepositoryStub) Create(ctx context.Context, p Person) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data {
		if existing.Uid == p.Uid {
			return 0, fmt.Errorf("person with uid %s already exists", p.Uid)
		}
	}
	s.nextId++
	p.Id = s.nextId
	s.data[p.Id] = p
	return p.Id, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id int) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[id]
	if !ok {
		return Person{}, fmt.Errorf("%w: id %d", ErrPersonNotFound, id)
	}
	return p, nil
}

func (s *RepositoryStub) GetByUid(ctx context.Context, uid string) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.data {
		if p.Uid == uid {
			return p, nil
		}
	}
	return Person{}, fmt.Errorf("%w: uid %s", ErrPersonNotFound, uid)
}

func (s *RepositoryStub) GetMany(ctx context.Context, ids []int) ([]Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var people []Person
	for _, id := range ids {
		if p, ok := s.data[id]; ok {
			people = append(people, p)
		}
	}
	slices.SortFunc(people, func(a, b Person) int { return a.Id - b.Id })
	return people, nil
}

func (s *RepositoryStub) Update(ctx context.Context, p Person) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.data[p.Id]
	if !ok {
		return Person{}, fmt.Errorf("%w: id %d", ErrPersonNotFound, p.Id)
	}
	p.Uid = existing.Uid
	s.data[p.Id] = p
	return p, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return fmt.Errorf("%w: id %d", ErrPersonNotFound, id)
	}
	delete(s.data, id)
	return nil
}

func (s *RepositoryStub) List(ctx context.Context) ([]Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	people := make([]Person, 0, len(s.data))
	for _, p := range s.data {
		people = append(people, p)
	}
	slices.SortFunc(people, func(a, b Person) int { return a.Id - b.Id })
	return people, nil
}

func (s *RepositoryStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId = 0
	s.data = map[int]Person{}
}
