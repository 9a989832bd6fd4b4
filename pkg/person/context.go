package person

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const PersonKey contextKey = "person"

var ErrNoPerson = errors.New("no person in context")

// CurrentId returns the id of the person the request acts for.
func CurrentId(ctx context.Context) (int, error) {
	p, err := CurrentPerson(ctx)
	if err != nil {
		return 0, err
	}
	return p.Id, nil
}

func CurrentPerson(ctx context.Context) (Person, error) {
	p, ok := ctx.Value(PersonKey).(Person)
	if !ok {
		log.Trace("person not found in context")
		return Person{}, ErrNoPerson
	}
	return p, nil
}

func WithPerson(ctx context.Context, p Person) context.Context {
	return context.WithValue(ctx, PersonKey, p)
}
