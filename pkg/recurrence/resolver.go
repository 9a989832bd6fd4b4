package recurrence

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// Forever is the sentinel end of a recurrence that has neither COUNT nor UNTIL:
// the largest instant the persistence layer can hold as epoch milliseconds.
var Forever = time.UnixMilli(8_640_000_000_000_000).UTC()

var ErrUnboundedExpansion = errors.New("refusing to expand an unbounded recurrence without a horizon")

// UnboundedRecurrenceWarning is signalled, not returned, when a slot repeats
// forever. It is valid input and resolves to Forever.
type UnboundedRecurrenceWarning struct {
	Slot timeslot.Timeslot
	Rule Rule
}

func (w UnboundedRecurrenceWarning) String() string {
	return fmt.Sprintf("recurrence %s of slot starting %s has no COUNT or UNTIL",
		w.Rule, w.Slot.From().Format(time.RFC3339))
}

type Resolver struct {
	expander Expander
	warn     func(UnboundedRecurrenceWarning)
}

func NewResolver(expander Expander) *Resolver {
	return &Resolver{
		expander: expander,
		warn: func(w UnboundedRecurrenceWarning) {
			log.Warn(w.String())
		},
	}
}

// OnUnbounded replaces the handler invoked for unbounded recurrences.
func (r *Resolver) OnUnbounded(fn func(UnboundedRecurrenceWarning)) {
	r.warn = fn
}

// Rule parses the slot's recurrence and repairs its UNTIL against the slot's end.
// ok is false for one-off slots.
func (r *Resolver) Rule(slot timeslot.Timeslot) (rule Rule, ok bool, err error) {
	if !slot.IsRecurring() {
		return Rule{}, false, nil
	}
	rule, err = ParseRule(slot.Recur())
	if err != nil {
		return Rule{}, false, err
	}
	return RepairUntil(rule, slot.To()), true, nil
}

// RepairSlot rewrites a recurring slot whose UNTIL precedes its own end. Slots
// that need no repair are returned unchanged, keeping their original rule text.
func (r *Resolver) RepairSlot(slot timeslot.Timeslot) (timeslot.Timeslot, error) {
	if !slot.IsRecurring() {
		return slot, nil
	}
	rule, err := ParseRule(slot.Recur())
	if err != nil {
		return slot, err
	}
	repaired := RepairUntil(rule, slot.To())
	if repaired.Equal(rule) {
		return slot, nil
	}
	log.Debugf("repaired recurrence %s -> %s", rule, repaired)
	return slot.WithRecurrence(repaired.String(), slot.ExceptionDates()), nil
}

// LastOccurrenceEnd returns the end of the final occurrence of slot. It is never
// earlier than slot.To(), even when the anchor occurrence is itself an exception.
func (r *Resolver) LastOccurrenceEnd(slot timeslot.Timeslot) (time.Time, error) {
	rule, ok, err := r.Rule(slot)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return slot.To(), nil
	}
	if !rule.Bounded() {
		r.warn(UnboundedRecurrenceWarning{Slot: slot, Rule: rule})
		return Forever, nil
	}

	var last time.Time
	found := false
	for start := range r.expander.Occurrences(rule, slot.From(), slot.ExceptionDates(), time.Time{}, time.Time{}) {
		last = start
		found = true
	}
	if !found {
		return slot.To(), nil
	}
	end := last.Add(slot.Duration())
	if end.Before(slot.To()) {
		return slot.To(), nil
	}
	return end, nil
}

// LastOccurrenceEndOrFallback treats a malformed rule as no rule at all.
func (r *Resolver) LastOccurrenceEndOrFallback(slot timeslot.Timeslot) time.Time {
	end, err := r.LastOccurrenceEnd(slot)
	if err != nil {
		log.Warnf("falling back to non-recurring end for slot %s: %v", slot, err)
		return slot.To()
	}
	return end
}

// Occurrences returns the concrete, non-recurring instances of slot that start
// before horizon. A zero horizon is only allowed for bounded rules.
func (r *Resolver) Occurrences(slot timeslot.Timeslot, horizon time.Time) ([]timeslot.Timeslot, error) {
	return r.OccurrencesBetween(slot, time.Time{}, horizon)
}

// OccurrencesBetween returns the instances of slot that end after from and start
// before to. A zero from keeps every instance from the anchor on.
func (r *Resolver) OccurrencesBetween(slot timeslot.Timeslot, from, to time.Time) ([]timeslot.Timeslot, error) {
	rule, ok, err := r.Rule(slot)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !inWindow(slot, from, to) {
			return nil, nil
		}
		return []timeslot.Timeslot{slot}, nil
	}
	if !rule.Bounded() && to.IsZero() {
		return nil, ErrUnboundedExpansion
	}

	startFrom := from
	if !from.IsZero() {
		startFrom = from.Add(-slot.Duration())
	}
	var instances []timeslot.Timeslot
	for start := range r.expander.Occurrences(rule, slot.From(), slot.ExceptionDates(), startFrom, to) {
		instance, err := timeslot.New(start, start.Add(slot.Duration()))
		if err != nil {
			return nil, err
		}
		if !inWindow(instance, from, to) {
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// OccurrencesOrAnchor degrades a malformed rule to the anchor occurrence.
func (r *Resolver) OccurrencesOrAnchor(slot timeslot.Timeslot, horizon time.Time) []timeslot.Timeslot {
	return r.OccurrencesOrAnchorBetween(slot, time.Time{}, horizon)
}

func (r *Resolver) OccurrencesOrAnchorBetween(slot timeslot.Timeslot, from, to time.Time) []timeslot.Timeslot {
	instances, err := r.OccurrencesBetween(slot, from, to)
	if err != nil {
		log.Warnf("treating slot %s as non-recurring: %v", slot, err)
		anchor := slot.WithoutRecurrence()
		if !inWindow(anchor, from, to) {
			return nil
		}
		return []timeslot.Timeslot{anchor}
	}
	return instances
}

func inWindow(slot timeslot.Timeslot, from, to time.Time) bool {
	if !to.IsZero() && !slot.From().Before(to) {
		return false
	}
	return from.IsZero() || slot.To().After(from)
}
