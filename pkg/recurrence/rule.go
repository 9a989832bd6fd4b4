package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var ErrRuleParse = errors.New("malformed recurrence rule")

// RuleParseError reports recurrence text that could not be parsed. Callers are
// expected to degrade to the non-recurring slot rather than fail the request.
type RuleParseError struct {
	Text string
	Err  error
}

func (e *RuleParseError) Error() string {
	return fmt.Sprintf("failed to parse RRULE '%s': %v", e.Text, e.Err)
}

func (e *RuleParseError) Unwrap() error {
	return e.Err
}

func (e *RuleParseError) Is(target error) bool {
	return target == ErrRuleParse
}

// Rule is a parsed RFC 5545 recurrence rule without its DTSTART; the anchor is
// always supplied by the Timeslot the rule belongs to.
type Rule struct {
	opt rrule.ROption
}

// ParseRule accepts "RRULE:FREQ=WEEKLY;..." as well as the bare "FREQ=WEEKLY;..." form.
func ParseRule(text string) (Rule, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Rule{}, &RuleParseError{Text: text, Err: errors.New("empty rule")}
	}
	opt, err := rrule.StrToROption(trimmed)
	if err != nil {
		return Rule{}, &RuleParseError{Text: text, Err: err}
	}
	if opt.Count > 0 && !opt.Until.IsZero() {
		return Rule{}, &RuleParseError{Text: text, Err: errors.New("COUNT and UNTIL are mutually exclusive")}
	}
	opt.Dtstart = time.Time{}
	if _, err := rrule.NewRRule(*opt); err != nil {
		return Rule{}, &RuleParseError{Text: text, Err: err}
	}
	return Rule{opt: *opt}, nil
}

// MustParseRule is ParseRule for rule literals.
func MustParseRule(text string) Rule {
	rule, err := ParseRule(text)
	if err != nil {
		panic(err)
	}
	return rule
}

func (r Rule) Frequency() rrule.Frequency {
	return r.opt.Freq
}

func (r Rule) Interval() int {
	if r.opt.Interval < 1 {
		return 1
	}
	return r.opt.Interval
}

// Count is the number of occurrences, 0 when the rule is not bounded by COUNT.
func (r Rule) Count() int {
	return r.opt.Count
}

func (r Rule) Until() (time.Time, bool) {
	return r.opt.Until, !r.opt.Until.IsZero()
}

// Bounded reports whether the rule ends, either by COUNT or by UNTIL.
func (r Rule) Bounded() bool {
	return r.opt.Count > 0 || !r.opt.Until.IsZero()
}

func (r Rule) WithUntil(until time.Time) Rule {
	opt := r.opt
	opt.Count = 0
	opt.Until = until
	return Rule{opt: opt}
}

func (r Rule) String() string {
	return "RRULE:" + r.opt.RRuleString()
}

func (r Rule) Equal(other Rule) bool {
	return r.String() == other.String()
}

func (r Rule) build(anchor time.Time) (*rrule.RRule, error) {
	opt := r.opt
	opt.Dtstart = anchor
	return rrule.NewRRule(opt)
}

// RepairUntil moves an UNTIL that falls before the slot's own end up to that
// end, so the anchor occurrence is never lost. UNTIL is only ever extended.
func RepairUntil(rule Rule, slotEnd time.Time) Rule {
	until, ok := rule.Until()
	if !ok || !until.Before(slotEnd) {
		return rule
	}
	// RRULE text carries whole seconds only.
	repaired := slotEnd.Truncate(time.Second)
	if repaired.Before(slotEnd) {
		repaired = repaired.Add(time.Second)
	}
	return rule.WithUntil(repaired.UTC())
}
