package timeslot

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval")

// InvalidIntervalError is returned when a Timeslot would end at or before its start.
type InvalidIntervalError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval: end %s is not after start %s",
		e.To.Format(time.RFC3339), e.From.Format(time.RFC3339))
}

func (e *InvalidIntervalError) Is(target error) bool {
	return target == ErrInvalidInterval
}

// Timeslot is a half-open interval [from, to), optionally repeating according to
// an RRULE anchored at from. Values are never mutated after construction.
type Timeslot struct {
	from    time.Time
	to      time.Time
	recur   string
	exDates []time.Time
}

func New(from, to time.Time) (Timeslot, error) {
	return NewRecurring(from, to, "", nil)
}

// NewRecurring builds a Timeslot carrying a recurrence rule and the occurrence
// starts cancelled from it. exDates are kept as a sorted set.
func NewRecurring(from, to time.Time, recur string, exDates []time.Time) (Timeslot, error) {
	if !to.After(from) {
		return Timeslot{}, &InvalidIntervalError{From: from, To: to}
	}
	return Timeslot{
		from:    from,
		to:      to,
		recur:   recur,
		exDates: normalizeDates(exDates),
	}, nil
}

// MustNew is New for values known to be valid, e.g. in tests and constants.
func MustNew(from, to time.Time) Timeslot {
	slot, err := New(from, to)
	if err != nil {
		panic(err)
	}
	return slot
}

func (t Timeslot) From() time.Time { return t.from }

func (t Timeslot) To() time.Time { return t.to }

// Recur returns the raw recurrence rule text, empty for one-off slots.
func (t Timeslot) Recur() string { return t.recur }

func (t Timeslot) IsRecurring() bool { return t.recur != "" }

func (t Timeslot) ExceptionDates() []time.Time {
	return slices.Clone(t.exDates)
}

// IsException reports whether an occurrence starting at start was cancelled.
func (t Timeslot) IsException(start time.Time) bool {
	for _, ex := range t.exDates {
		if ex.Equal(start) {
			return true
		}
	}
	return false
}

func (t Timeslot) Duration() time.Duration {
	return t.to.Sub(t.from)
}

func (t Timeslot) DurationMinutes() int64 {
	return int64(t.Duration() / time.Minute)
}

func (t Timeslot) ContainsInstant(point time.Time) bool {
	return !point.Before(t.from) && point.Before(t.to)
}

func (t Timeslot) Overlaps(other Timeslot) bool {
	return t.from.Before(other.to) && other.from.Before(t.to)
}

// Contains reports whether other lies entirely within t.
func (t Timeslot) Contains(other Timeslot) bool {
	return !other.from.Before(t.from) && !t.to.Before(other.to)
}

// Equal compares instants rather than time.Time representations, so the same
// slot read back in another location is still equal.
func (t Timeslot) Equal(other Timeslot) bool {
	if !t.from.Equal(other.from) || !t.to.Equal(other.to) || t.recur != other.recur {
		return false
	}
	return slices.EqualFunc(t.exDates, other.exDates, time.Time.Equal)
}

// WithRecurrence returns a copy of t with the given rule and exceptions.
func (t Timeslot) WithRecurrence(recur string, exDates []time.Time) Timeslot {
	return Timeslot{
		from:    t.from,
		to:      t.to,
		recur:   recur,
		exDates: normalizeDates(exDates),
	}
}

// WithoutRecurrence returns only the anchor occurrence of t.
func (t Timeslot) WithoutRecurrence() Timeslot {
	return Timeslot{from: t.from, to: t.to}
}

// In returns t with its instants expressed in loc.
func (t Timeslot) In(loc *time.Location) Timeslot {
	exDates := make([]time.Time, len(t.exDates))
	for i, ex := range t.exDates {
		exDates[i] = ex.In(loc)
	}
	return Timeslot{from: t.from.In(loc), to: t.to.In(loc), recur: t.recur, exDates: exDates}
}

func (t Timeslot) String() string {
	s := fmt.Sprintf("[%s, %s)", t.from.Format(time.RFC3339), t.to.Format(time.RFC3339))
	if t.recur != "" {
		s += " " + t.recur
	}
	return s
}

func normalizeDates(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	out := slices.Clone(dates)
	slices.SortFunc(out, time.Time.Compare)
	return slices.CompactFunc(out, time.Time.Equal)
}
