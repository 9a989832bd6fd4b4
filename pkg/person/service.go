package person

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrPersonDataInvalid = errors.New("invalid person data")

type Service interface {
	Current(ctx context.Context) (Person, error)
	Create(ctx context.Context, p Person) (Person, error)
	Get(ctx context.Context, id int) (Person, error)
	GetByUid(ctx context.Context, uid string) (Person, error)
	GetMany(ctx context.Context, ids []int) ([]Person, error)
	// UpdateCurrent changes the name and settings of the person in ctx.
	UpdateCurrent(ctx context.Context, p Person) (Person, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]Person, error)
}

type ServiceImpl struct {
	repo Repository
}

func NewService(repo Repository) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) Current(ctx context.Context) (Person, error) {
	id, err := CurrentId(ctx)
	if err != nil {
		return Person{}, fmt.Errorf("failed to get current person: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, p Person) (Person, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Person{}, fmt.Errorf("%w: name is required", ErrPersonDataInvalid)
	}
	if p.Uid == "" {
		p.Uid = uuid.NewString()
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return Person{}, err
	}
	p.Id = id
	log.Debugf("created person %d (%s)", p.Id, p.Uid)
	return p, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int) (Person, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) GetByUid(ctx context.Context, uid string) (Person, error) {
	return s.repo.GetByUid(ctx, uid)
}

func (s *ServiceImpl) GetMany(ctx context.Context, ids []int) ([]Person, error) {
	return s.repo.GetMany(ctx, ids)
}

func (s *ServiceImpl) UpdateCurrent(ctx context.Context, p Person) (Person, error) {
	current, err := CurrentPerson(ctx)
	if err != nil {
		return Person{}, fmt.Errorf("failed to get current person: %w", err)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Person{}, fmt.Errorf("%w: name is required", ErrPersonDataInvalid)
	}
	p.Id = current.Id
	p.Uid = current.Uid
	return s.repo.Update(ctx, p)
}

func (s *ServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]Person, error) {
	return s.repo.List(ctx)
}
