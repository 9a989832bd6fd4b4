package timeslot

import (
	"slices"
	"time"
)

// Availability is a person's open time. Order is insertion order and slots may
// overlap; consumers must not assume the slots are disjoint.
type Availability []Timeslot

// Window is the flattened {from, to} pair consumed by the search index.
type Window struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func (w Window) Timeslot() (Timeslot, error) {
	return New(time.UnixMilli(w.From).UTC(), time.UnixMilli(w.To).UTC())
}

// Sorted returns a copy ordered by start, then end.
func (a Availability) Sorted() Availability {
	out := slices.Clone(a)
	slices.SortStableFunc(out, func(x, y Timeslot) int {
		if c := x.from.Compare(y.from); c != 0 {
			return c
		}
		return x.to.Compare(y.to)
	})
	return out
}

// Merged returns the union of the covered time as disjoint, sorted slots.
// Touching slots are joined. Recurrence is ignored: only the anchor occurrence
// of a recurring slot is taken into account, so callers expand first.
func (a Availability) Merged() Availability {
	if len(a) == 0 {
		return Availability{}
	}
	sorted := a.Sorted()
	out := Availability{sorted[0].WithoutRecurrence()}
	for _, slot := range sorted[1:] {
		last := &out[len(out)-1]
		if !slot.from.After(last.to) {
			if slot.to.After(last.to) {
				last.to = slot.to
			}
			continue
		}
		out = append(out, slot.WithoutRecurrence())
	}
	return out
}

func (a Availability) Equal(other Availability) bool {
	return slices.EqualFunc(a, other, Timeslot.Equal)
}

// Windows flattens the availability into epoch millisecond pairs.
func (a Availability) Windows() []Window {
	windows := make([]Window, 0, len(a))
	for _, slot := range a {
		windows = append(windows, Window{From: slot.from.UnixMilli(), To: slot.to.UnixMilli()})
	}
	return windows
}

// HasRecurring reports whether any slot carries a recurrence rule.
func (a Availability) HasRecurring() bool {
	return slices.ContainsFunc(a, Timeslot.IsRecurring)
}
