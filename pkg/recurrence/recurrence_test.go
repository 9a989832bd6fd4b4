package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

// 2025-01-06 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2025, time.January, 6, hour, minute, 0, 0, time.UTC)
}

func recurringSlot(t *testing.T, from, to time.Time, recur string, exDates ...time.Time) timeslot.Timeslot {
	t.Helper()
	slot, err := timeslot.NewRecurring(from, to, recur, exDates)
	require.NoError(t, err)
	return slot
}

func newTestResolver() *Resolver {
	return NewResolver(NewRRuleExpander(0))
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		freq      rrule.Frequency
		count     int
		hasUntil  bool
		wantError bool
	}{
		{name: "prefixed weekly", text: "RRULE:FREQ=WEEKLY", freq: rrule.WEEKLY},
		{name: "bare daily with count", text: "FREQ=DAILY;COUNT=3", freq: rrule.DAILY, count: 3},
		{name: "monthly with until", text: "RRULE:FREQ=MONTHLY;UNTIL=20250601T000000Z", freq: rrule.MONTHLY, hasUntil: true},
		{name: "surrounding whitespace", text: "  RRULE:FREQ=WEEKLY;INTERVAL=2\n", freq: rrule.WEEKLY},
		{name: "empty", text: "", wantError: true},
		{name: "no frequency", text: "RRULE:COUNT=3", wantError: true},
		{name: "unknown property", text: "RRULE:FREQ=WEEKLY;EVERY=TUESDAY", wantError: true},
		{name: "count and until", text: "RRULE:FREQ=WEEKLY;COUNT=2;UNTIL=20250601T000000Z", wantError: true},
		{name: "out of range", text: "RRULE:FREQ=MONTHLY;BYMONTHDAY=40", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule(tt.text)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrRuleParse)
				var parseErr *RuleParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.text, parseErr.Text)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.freq, rule.Frequency())
			assert.Equal(t, tt.count, rule.Count())
			_, hasUntil := rule.Until()
			assert.Equal(t, tt.hasUntil, hasUntil)
			assert.Equal(t, tt.count > 0 || tt.hasUntil, rule.Bounded())
		})
	}

	t.Run("should re-emit a parseable rule", func(t *testing.T) {
		rule := MustParseRule("FREQ=WEEKLY;INTERVAL=2;UNTIL=20250601T000000Z")

		reparsed, err := ParseRule(rule.String())

		require.NoError(t, err)
		assert.Equal(t, "RRULE:FREQ=WEEKLY;INTERVAL=2;UNTIL=20250601T000000Z", rule.String())
		assert.True(t, rule.Equal(reparsed))
		assert.Equal(t, 2, reparsed.Interval())
	})
}

func TestRepairUntil(t *testing.T) {
	slotEnd := monday(15, 0)

	t.Run("should extend an until that precedes the slot end", func(t *testing.T) {
		rule := MustParseRule("RRULE:FREQ=WEEKLY;UNTIL=20250106T143000Z")

		repaired := RepairUntil(rule, slotEnd)

		until, ok := repaired.Until()
		require.True(t, ok)
		assert.True(t, until.Equal(slotEnd))
		assert.Equal(t, "RRULE:FREQ=WEEKLY;UNTIL=20250106T150000Z", repaired.String())
	})

	t.Run("should never shorten until", func(t *testing.T) {
		rule := MustParseRule("RRULE:FREQ=WEEKLY;UNTIL=20250301T000000Z")

		repaired := RepairUntil(rule, slotEnd)

		assert.True(t, repaired.Equal(rule))
	})

	t.Run("should leave rules without until alone", func(t *testing.T) {
		for _, text := range []string{"RRULE:FREQ=WEEKLY", "RRULE:FREQ=DAILY;COUNT=4"} {
			rule := MustParseRule(text)
			assert.True(t, RepairUntil(rule, slotEnd).Equal(rule), text)
		}
	})

	t.Run("should round sub-second ends up to the next second", func(t *testing.T) {
		rule := MustParseRule("RRULE:FREQ=DAILY;UNTIL=20250106T000000Z")
		end := slotEnd.Add(250 * time.Millisecond)

		repaired := RepairUntil(rule, end)

		until, _ := repaired.Until()
		assert.False(t, until.Before(end))
		assert.True(t, RepairUntil(MustParseRule(repaired.String()), end).Equal(repaired))
	})

	t.Run("should be idempotent and monotonic", func(t *testing.T) {
		untils := []string{"20250101T000000Z", "20250106T140000Z", "20250106T145959Z", "20250106T150000Z", "20250107T000000Z"}
		for _, u := range untils {
			rule := MustParseRule("RRULE:FREQ=WEEKLY;UNTIL=" + u)

			once := RepairUntil(rule, slotEnd)
			twice := RepairUntil(once, slotEnd)

			assert.True(t, once.Equal(twice), u)
			until, _ := once.Until()
			assert.False(t, until.Before(slotEnd), u)
		}
	})
}

func TestResolver_LastOccurrenceEnd(t *testing.T) {
	resolver := newTestResolver()

	t.Run("non-recurring slot ends at its own end", func(t *testing.T) {
		slot := timeslot.MustNew(monday(14, 0), monday(15, 0))

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.Equal(t, monday(15, 0), end)
	})

	t.Run("until before the slot end is repaired to the slot end", func(t *testing.T) {
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "RRULE:FREQ=WEEKLY;UNTIL=20250106T143000Z")

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.True(t, end.Equal(monday(15, 0)), end.String())
	})

	t.Run("count bounded weekly slot ends with its last occurrence", func(t *testing.T) {
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "RRULE:FREQ=WEEKLY;COUNT=3")

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.True(t, end.Equal(monday(15, 0).AddDate(0, 0, 14)), end.String())
	})

	t.Run("excluded last occurrence moves the end back", func(t *testing.T) {
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "RRULE:FREQ=WEEKLY;COUNT=3", monday(14, 0).AddDate(0, 0, 14))

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.True(t, end.Equal(monday(15, 0).AddDate(0, 0, 7)), end.String())
	})

	t.Run("bounded rule longer than the occurrence cap is not truncated", func(t *testing.T) {
		from := time.Date(2026, time.January, 5, 14, 0, 0, 0, time.UTC)
		slot := recurringSlot(t, from, from.Add(time.Hour), "RRULE:FREQ=DAILY;COUNT=6000")

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		expected := time.Date(2042, time.June, 9, 15, 0, 0, 0, time.UTC)
		assert.True(t, end.Equal(expected), end.String())
	})

	t.Run("until bounded daily slot", func(t *testing.T) {
		slot := recurringSlot(t, monday(9, 0), monday(9, 30), "RRULE:FREQ=DAILY;UNTIL=20250110T090000Z")

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.True(t, end.Equal(time.Date(2025, time.January, 10, 9, 30, 0, 0, time.UTC)), end.String())
	})

	t.Run("every occurrence excluded falls back to the slot end", func(t *testing.T) {
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "RRULE:FREQ=WEEKLY;COUNT=1", monday(14, 0))

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.Equal(t, monday(15, 0), end)
	})

	t.Run("unbounded recurrence resolves to forever and signals a warning", func(t *testing.T) {
		var warnings []UnboundedRecurrenceWarning
		resolver := newTestResolver()
		resolver.OnUnbounded(func(w UnboundedRecurrenceWarning) {
			warnings = append(warnings, w)
		})
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "RRULE:FREQ=WEEKLY")

		end, err := resolver.LastOccurrenceEnd(slot)

		require.NoError(t, err)
		assert.Equal(t, Forever, end)
		require.Len(t, warnings, 1)
		assert.True(t, warnings[0].Slot.Equal(slot))
	})

	t.Run("malformed rule is a typed error with a fallback", func(t *testing.T) {
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "repeat weekly")

		_, err := resolver.LastOccurrenceEnd(slot)

		assert.ErrorIs(t, err, ErrRuleParse)
		assert.Equal(t, monday(15, 0), resolver.LastOccurrenceEndOrFallback(slot))
	})
}

func TestResolver_RepairSlot(t *testing.T) {
	resolver := newTestResolver()

	t.Run("rewrites a truncated until", func(t *testing.T) {
		ex := monday(14, 0).AddDate(0, 0, 7)
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "RRULE:FREQ=WEEKLY;UNTIL=20250106T143000Z", ex)

		repaired, err := resolver.RepairSlot(slot)

		require.NoError(t, err)
		assert.Equal(t, "RRULE:FREQ=WEEKLY;UNTIL=20250106T150000Z", repaired.Recur())
		assert.Equal(t, []time.Time{ex}, repaired.ExceptionDates())
	})

	t.Run("keeps the original text when nothing changes", func(t *testing.T) {
		slot := recurringSlot(t, monday(14, 0), monday(15, 0), "FREQ=WEEKLY;COUNT=2")

		repaired, err := resolver.RepairSlot(slot)

		require.NoError(t, err)
		assert.Equal(t, "FREQ=WEEKLY;COUNT=2", repaired.Recur())
	})
}

func TestResolver_Occurrences(t *testing.T) {
	resolver := newTestResolver()

	t.Run("unbounded rule is capped at the horizon", func(t *testing.T) {
		slot := recurringSlot(t, monday(9, 0), monday(10, 0), "RRULE:FREQ=WEEKLY")

		instances, err := resolver.Occurrences(slot, monday(9, 0).AddDate(0, 0, 21))

		require.NoError(t, err)
		require.Len(t, instances, 3)
		for i, instance := range instances {
			assert.True(t, instance.From().Equal(monday(9, 0).AddDate(0, 0, 7*i)))
			assert.Equal(t, time.Hour, instance.Duration())
			assert.False(t, instance.IsRecurring())
		}
	})

	t.Run("unbounded rule without a horizon is refused", func(t *testing.T) {
		slot := recurringSlot(t, monday(9, 0), monday(10, 0), "RRULE:FREQ=DAILY")

		_, err := resolver.Occurrences(slot, time.Time{})

		assert.ErrorIs(t, err, ErrUnboundedExpansion)
	})

	t.Run("exception dates are skipped", func(t *testing.T) {
		slot := recurringSlot(t, monday(9, 0), monday(10, 0), "RRULE:FREQ=DAILY;COUNT=3", monday(9, 0).AddDate(0, 0, 1))

		instances, err := resolver.Occurrences(slot, time.Time{})

		require.NoError(t, err)
		require.Len(t, instances, 2)
		assert.True(t, instances[1].From().Equal(monday(9, 0).AddDate(0, 0, 2)))
	})

	t.Run("expansion is capped by max occurrences", func(t *testing.T) {
		capped := NewResolver(NewRRuleExpander(10))
		slot := recurringSlot(t, monday(9, 0), monday(10, 0), "RRULE:FREQ=DAILY")

		instances, err := capped.Occurrences(slot, monday(9, 0).AddDate(1, 0, 0))

		require.NoError(t, err)
		assert.Len(t, instances, 10)
	})

	t.Run("one-off slot past the horizon yields nothing", func(t *testing.T) {
		slot := timeslot.MustNew(monday(9, 0), monday(10, 0))

		instances, err := resolver.Occurrences(slot, monday(8, 0))

		require.NoError(t, err)
		assert.Empty(t, instances)
	})

	t.Run("malformed rule degrades to the anchor", func(t *testing.T) {
		slot := recurringSlot(t, monday(9, 0), monday(10, 0), "RRULE:FREQ=SOMETIMES")

		instances := resolver.OccurrencesOrAnchor(slot, monday(9, 0).AddDate(0, 1, 0))

		require.Len(t, instances, 1)
		assert.True(t, instances[0].Equal(slot.WithoutRecurrence()))
	})
}

func TestResolver_OccurrencesBetween(t *testing.T) {
	anchor := time.Date(2010, time.January, 4, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

	t.Run("should count the cap inside the window only", func(t *testing.T) {
		// given
		capped := NewResolver(NewRRuleExpander(10))
		slot := recurringSlot(t, anchor, anchor.Add(3*time.Hour), "RRULE:FREQ=DAILY")

		// when
		instances, err := capped.OccurrencesBetween(slot, now, now.AddDate(0, 0, 3))

		// then
		require.NoError(t, err)
		require.Len(t, instances, 3)
		assert.True(t, instances[0].From().Equal(now.Add(9*time.Hour)), instances[0].String())
	})

	t.Run("should keep the latest occurrences without a window start", func(t *testing.T) {
		capped := NewResolver(NewRRuleExpander(10))
		slot := recurringSlot(t, anchor, anchor.Add(3*time.Hour), "RRULE:FREQ=DAILY")

		instances, err := capped.Occurrences(slot, now)

		require.NoError(t, err)
		require.Len(t, instances, 10)
		last := instances[len(instances)-1]
		assert.True(t, last.From().Equal(now.Add(-15*time.Hour)), last.String())
	})

	t.Run("should include an instance already running at the window start", func(t *testing.T) {
		resolver := newTestResolver()
		slot := recurringSlot(t, monday(9, 0), monday(12, 0), "RRULE:FREQ=DAILY")

		instances, err := resolver.OccurrencesBetween(slot, monday(10, 0), monday(11, 0))

		require.NoError(t, err)
		require.Len(t, instances, 1)
		assert.True(t, instances[0].From().Equal(monday(9, 0)))
	})

	t.Run("should skip a one-off slot that ended before the window", func(t *testing.T) {
		resolver := newTestResolver()
		slot := timeslot.MustNew(monday(9, 0), monday(10, 0))

		instances, err := resolver.OccurrencesBetween(slot, monday(10, 0), monday(12, 0))

		require.NoError(t, err)
		assert.Empty(t, instances)
	})
}
