package recurrence

import (
	"iter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

const DefaultMaxOccurrences = 5000

// Expander generates occurrence starts of a rule anchored at anchor, skipping
// exceptions, within [from, to). A zero from starts at the anchor. A zero to means
// no upper bound and is only meaningful for bounded rules.
type Expander interface {
	Occurrences(rule Rule, anchor time.Time, exceptions []time.Time, from, to time.Time) iter.Seq[time.Time]
}

// RRuleExpander expands rules with rrule-go. MaxOccurrences caps the number of
// occurrences yielded inside a window with an end. When the window has a start
// the earliest occurrences are kept, otherwise the latest ones before the end.
// A bounded rule expanded without an end is never capped.
type RRuleExpander struct {
	MaxOccurrences int
}

func NewRRuleExpander(maxOccurrences int) RRuleExpander {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return RRuleExpander{MaxOccurrences: maxOccurrences}
}

func (e RRuleExpander) limit() int {
	if e.MaxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return e.MaxOccurrences
}

func (e RRuleExpander) Occurrences(rule Rule, anchor time.Time, exceptions []time.Time, from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		r, err := rule.build(anchor)
		if err != nil {
			log.Errorf("expand: failed to build rule %s: %v", rule, err)
			return
		}

		var set rrule.Set
		set.RRule(r)
		for _, ex := range exceptions {
			set.ExDate(ex.In(anchor.Location()))
		}
		next := set.Iterator()

		switch {
		case to.IsZero():
			if !rule.Bounded() {
				log.Errorf("expand: rule %s anchored at %s has no bound and no window end", rule, anchor)
				return
			}
			for occurrence, ok := next(); ok; occurrence, ok = next() {
				if occurrence.Before(from) {
					continue
				}
				if !yield(occurrence) {
					return
				}
			}
		case !from.IsZero():
			e.yieldEarliest(rule, next, from, to, yield)
		default:
			e.yieldLatest(rule, next, to, yield)
		}
	}
}

func (e RRuleExpander) yieldEarliest(rule Rule, next rrule.Next, from, to time.Time, yield func(time.Time) bool) {
	limit := e.limit()
	n := 0
	for occurrence, ok := next(); ok && occurrence.Before(to); occurrence, ok = next() {
		if occurrence.Before(from) {
			continue
		}
		if n >= limit {
			log.Warnf("expand: rule %s truncated after %d occurrences from %s", rule, limit, from)
			return
		}
		n++
		if !yield(occurrence) {
			return
		}
	}
}

func (e RRuleExpander) yieldLatest(rule Rule, next rrule.Next, to time.Time, yield func(time.Time) bool) {
	limit := e.limit()
	ring := make([]time.Time, 0, min(limit, 64))
	head, dropped := 0, 0
	for occurrence, ok := next(); ok && occurrence.Before(to); occurrence, ok = next() {
		if len(ring) < limit {
			ring = append(ring, occurrence)
			continue
		}
		ring[head] = occurrence
		head = (head + 1) % limit
		dropped++
	}
	if dropped > 0 {
		log.Warnf("expand: rule %s dropped its %d oldest occurrences before %s", rule, dropped, to)
	}
	for i := range ring {
		if !yield(ring[(head+i)%len(ring)]) {
			return
		}
	}
}
