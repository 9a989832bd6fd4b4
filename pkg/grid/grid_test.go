package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

func TestMapper_SlotFromGrid(t *testing.T) {
	mapper := NewMapper(DefaultColumnWidth, time.UTC)

	t.Run("should snap a drag gesture to the grid", func(t *testing.T) {
		// when
		slot, err := mapper.SlotFromGrid(47, Position{X: 164, Y: 101})

		// then
		require.NoError(t, err)
		assert.Equal(t, time.Tuesday, slot.From().Weekday())
		assert.Equal(t, time.Date(1970, time.January, 6, 2, 0, 0, 0, time.UTC), slot.From())
		assert.Equal(t, time.Date(1970, time.January, 6, 3, 0, 0, 0, time.UTC), slot.To())
	})

	tests := []struct {
		name        string
		position    Position
		height      float64
		wantFrom    time.Time
		wantMinutes int64
	}{
		{name: "exact half step rounds up", position: Position{X: 0, Y: 6}, height: 18, wantFrom: time.Date(1970, time.January, 4, 0, 15, 0, 0, time.UTC), wantMinutes: 30},
		{name: "below half step rounds down", position: Position{X: 0, Y: 5.9}, height: 17.9, wantFrom: time.Date(1970, time.January, 4, 0, 0, 0, 0, time.UTC), wantMinutes: 15},
		{name: "column is floored", position: Position{X: 81.9, Y: 0}, height: 12, wantFrom: time.Date(1970, time.January, 4, 0, 0, 0, 0, time.UTC), wantMinutes: 15},
		{name: "8:37 for 36 minutes becomes 8:30 for 30 minutes", position: Position{X: 82 * 6, Y: 413.6}, height: 28.8, wantFrom: time.Date(1970, time.January, 10, 8, 30, 0, 0, time.UTC), wantMinutes: 30},
		{name: "x past the last column is clamped", position: Position{X: 82 * 9, Y: 48}, height: 48, wantFrom: time.Date(1970, time.January, 10, 1, 0, 0, 0, time.UTC), wantMinutes: 60},
		{name: "negative y is clamped to midnight", position: Position{X: 82, Y: -30}, height: 24, wantFrom: time.Date(1970, time.January, 5, 0, 0, 0, 0, time.UTC), wantMinutes: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := mapper.SlotFromGrid(tt.height, tt.position)

			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, slot.From())
			assert.Equal(t, tt.wantMinutes, slot.DurationMinutes())
		})
	}

	t.Run("should reject a height below half a step", func(t *testing.T) {
		_, err := mapper.SlotFromGrid(5, Position{X: 0, Y: 0})

		assert.ErrorIs(t, err, ErrEmptySlot)
	})

	t.Run("should reject a non-positive column width", func(t *testing.T) {
		_, err := NewMapper(0, time.UTC).SlotFromGrid(48, Position{})

		assert.ErrorIs(t, err, ErrInvalidColumnWidth)
	})
}

func TestMapper_PositionOf(t *testing.T) {
	mapper := NewMapper(DefaultColumnWidth, time.UTC)
	// 2025-01-07 is a Tuesday
	slot := timeslot.MustNew(
		time.Date(2025, time.January, 7, 2, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 7, 3, 0, 0, 0, time.UTC),
	)

	assert.Equal(t, Position{X: 164, Y: 96}, mapper.PositionOf(slot))
	assert.Equal(t, 48.0, mapper.HeightOf(slot))
}

func TestMapper_PositionOfUsesLocation(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	mapper := NewMapper(DefaultColumnWidth, warsaw)
	// Saturday 23:30 UTC is Sunday 00:30 in Warsaw
	slot := timeslot.MustNew(
		time.Date(2025, time.January, 11, 23, 30, 0, 0, time.UTC),
		time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC),
	)

	assert.Equal(t, Position{X: 0, Y: 24}, mapper.PositionOf(slot))
}

func TestMapper_RoundTrip(t *testing.T) {
	widths := []float64{1, 82, 100.5, 333.3}
	monday := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

	for _, w := range widths {
		mapper := NewMapper(w, time.UTC).ForWeek(time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC))
		for day := 0; day < DaysPerWeek; day++ {
			for _, startMinutes := range []int{0, 15, 525, 1380} {
				for _, durationMinutes := range []int{15, 45, 60} {
					from := monday.AddDate(0, 0, day-1).Add(time.Duration(startMinutes) * time.Minute)
					slot := timeslot.MustNew(from, from.Add(time.Duration(durationMinutes)*time.Minute))

					back, err := mapper.SlotFromGrid(mapper.HeightOf(slot), mapper.PositionOf(slot))

					require.NoError(t, err)
					assert.True(t, slot.Equal(back), "width %v: %s became %s", w, slot, back)
				}
			}
		}
	}
}

func TestMapper_SnapIsIdempotent(t *testing.T) {
	mapper := NewMapper(DefaultColumnWidth, time.UTC)
	inputs := []Cell{
		{Position: Position{X: 164, Y: 101}, Height: 47},
		{Position: Position{X: 10, Y: 413.3}, Height: 29},
		{Position: Position{X: 500, Y: 6}, Height: 6},
		{Position: Position{X: 492, Y: 1150}, Height: 24},
	}
	for _, input := range inputs {
		once, err := mapper.SlotFromCell(input)
		require.NoError(t, err)

		twice, err := mapper.SlotFromCell(mapper.CellOf(once))

		require.NoError(t, err)
		assert.True(t, once.Equal(twice), "%v: %s then %s", input, once, twice)
	}
}

func TestMapper_SlotFromGrid_BottomOfColumn(t *testing.T) {
	mapper := NewMapper(DefaultColumnWidth, time.UTC)

	slot, err := mapper.SlotFromGrid(24, Position{X: 492, Y: 1150})

	require.NoError(t, err)
	saturday := time.Date(1970, time.January, 10, 23, 45, 0, 0, time.UTC)
	assert.True(t, slot.From().Equal(saturday), slot.String())
	assert.Equal(t, 30*time.Minute, slot.Duration())
}
