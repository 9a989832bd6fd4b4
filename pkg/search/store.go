package search

import (
	"context"
	"time"

	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// WindowStore holds the open windows of every indexed person. Windows of one
// person are disjoint and sorted by start.
type WindowStore interface {
	Replace(ctx context.Context, personId int, windows []timeslot.Window) error
	Windows(ctx context.Context, personId int) ([]timeslot.Window, error)
	// PeopleAvailable returns, in ascending order, the ids of people with a
	// single window covering [from, to).
	PeopleAvailable(ctx context.Context, from, to time.Time) ([]int, error)
}

func covers(w timeslot.Window, from, to int64) bool {
	return w.From <= from && w.To >= to
}
