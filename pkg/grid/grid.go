package grid

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

const (
	DaysPerWeek = 7
	// SlotMinutes is the smallest bookable step; one step is PixelsPerSlot tall.
	SlotMinutes        = 15
	PixelsPerSlot      = 12
	DefaultColumnWidth = 82
	minutesPerDay      = 24 * 60
)

var (
	ErrInvalidColumnWidth = errors.New("column width must be positive")
	ErrEmptySlot          = errors.New("slot is shorter than one grid step")
)

// Position is the top-left corner of a slot in the weekly calendar widget.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell is a slot projected onto the grid.
type Cell struct {
	Position Position `json:"position"`
	Height   float64  `json:"height"`
}

// Mapper converts between the seven column weekly grid and timeslots. Column 0
// is the weekday of WeekStart.
type Mapper struct {
	ColumnWidth float64
	Location    *time.Location
	WeekStart   time.Time
}

// NewMapper returns a mapper whose first column is Sunday, 4 January 1970 in loc.
func NewMapper(columnWidth float64, loc *time.Location) Mapper {
	if loc == nil {
		loc = time.UTC
	}
	return Mapper{
		ColumnWidth: columnWidth,
		Location:    loc,
		WeekStart:   time.Date(1970, time.January, 4, 0, 0, 0, 0, loc),
	}
}

// ForWeek returns a copy of m whose grid starts on the day containing weekStart.
func (m Mapper) ForWeek(weekStart time.Time) Mapper {
	local := weekStart.In(m.location())
	m.WeekStart = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.location())
	return m
}

func (m Mapper) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

func (m Mapper) weekStart() time.Time {
	if m.WeekStart.IsZero() {
		return time.Date(1970, time.January, 4, 0, 0, 0, 0, m.location())
	}
	return m.WeekStart.In(m.location())
}

func (m Mapper) PositionOf(slot timeslot.Timeslot) Position {
	local := slot.From().In(m.location())
	column := (int(local.Weekday()) - int(m.weekStart().Weekday()) + DaysPerWeek) % DaysPerWeek
	minutes := float64(local.Hour()*60+local.Minute()) + float64(local.Second())/60
	return Position{
		X: float64(column) * m.ColumnWidth,
		Y: minutes / SlotMinutes * PixelsPerSlot,
	}
}

func (m Mapper) HeightOf(slot timeslot.Timeslot) float64 {
	return slot.Duration().Minutes() / SlotMinutes * PixelsPerSlot
}

func (m Mapper) CellOf(slot timeslot.Timeslot) Cell {
	return Cell{Position: m.PositionOf(slot), Height: m.HeightOf(slot)}
}

// SlotFromGrid snaps y and height to the nearest grid step, with exact halves
// rounding up, and takes the column from x rounded down.
func (m Mapper) SlotFromGrid(height float64, position Position) (timeslot.Timeslot, error) {
	if m.ColumnWidth <= 0 || math.IsNaN(m.ColumnWidth) {
		return timeslot.Timeslot{}, fmt.Errorf("%w: %v", ErrInvalidColumnWidth, m.ColumnWidth)
	}
	column := int(math.Floor(position.X/m.ColumnWidth + 1e-9))
	column = min(max(column, 0), DaysPerWeek-1)

	startSteps := min(max(snap(position.Y), 0), minutesPerDay/SlotMinutes-1)
	durationSteps := snap(height)
	if durationSteps <= 0 {
		return timeslot.Timeslot{}, fmt.Errorf("%w: height %v", ErrEmptySlot, height)
	}

	day := m.weekStart().AddDate(0, 0, column)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, startSteps*SlotMinutes, 0, 0, m.location())
	to := from.Add(time.Duration(durationSteps*SlotMinutes) * time.Minute)
	return timeslot.New(from, to)
}

func (m Mapper) SlotFromCell(cell Cell) (timeslot.Timeslot, error) {
	return m.SlotFromGrid(cell.Height, cell.Position)
}

// snap returns the number of whole grid steps nearest to pixels.
func snap(pixels float64) int {
	return int(math.Floor(pixels/PixelsPerSlot + 0.5))
}
