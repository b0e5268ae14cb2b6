// Package heatmap builds the calendar heatmap shown for every habit: a week-aligned
// grid of days, approximate month labels, day activity lookup and the view state
// that ties them to a view mode and a click handler.
package heatmap

import (
	"errors"
	"fmt"
	"time"

	"github.com/belphemur/habit-tracker/internal/models"
)

// DaysPerWeek is the number of cells in a grid week. Row 0 is Sunday.
const DaysPerWeek = 7

const (
	monthLabelSlots = 12
	monthSlotDays   = 30
)

// ErrInvalidRange is returned when the start date is after the end date
var ErrInvalidRange = errors.New("invalid date range")

// Cell represents a single day cell in the grid. Placeholders have a zero Date.
type Cell struct {
	Date time.Time
}

// IsPlaceholder reports whether the cell only pads a partial week
func (c Cell) IsPlaceholder() bool {
	return c.Date.IsZero()
}

// Week is one column of the grid, indexed by weekday (Sunday = 0)
type Week [DaysPerWeek]Cell

// Grid is an ordered sequence of weeks covering [Start, End]
type Grid struct {
	Start time.Time
	End   time.Time
	Weeks []Week
}

// BuildGrid organizes every day of [start, end] into weeks, padding the first and
// last week with placeholders. Both bounds are inclusive and truncated to the start
// of their day in start's location.
func BuildGrid(start, end time.Time) (*Grid, error) {
	start = models.StartOfDay(start, nil)
	end = models.StartOfDay(end, start.Location())
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	grid := &Grid{Start: start, End: end}
	var currentWeek Week
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		currentWeek[day.Weekday()] = Cell{Date: day}
		// Saturday closes the week
		if day.Weekday() == time.Saturday {
			grid.Weeks = append(grid.Weeks, currentWeek)
			currentWeek = Week{}
		}
	}
	if end.Weekday() != time.Saturday {
		grid.Weeks = append(grid.Weeks, currentWeek)
	}

	return grid, nil
}

// Cell returns the cell at the given week and weekday index
func (g *Grid) Cell(week, day int) (Cell, bool) {
	if week < 0 || week >= len(g.Weeks) || day < 0 || day >= DaysPerWeek {
		return Cell{}, false
	}
	return g.Weeks[week][day], true
}

// DayCount returns the number of non-placeholder cells
func (g *Grid) DayCount() int {
	count := 0
	for _, week := range g.Weeks {
		for _, cell := range week {
			if !cell.IsPlaceholder() {
				count++
			}
		}
	}
	return count
}

// Locate returns the position of date in the grid
func (g *Grid) Locate(date time.Time) (week, day int, ok bool) {
	key := models.DayKey(date, g.Start.Location())
	for w, cells := range g.Weeks {
		for d, cell := range cells {
			if !cell.IsPlaceholder() && models.DayKey(cell.Date, nil) == key {
				return w, d, true
			}
		}
	}
	return 0, 0, false
}

// MonthLabels splits the range into 12 equal 30-day slots and labels each slot with
// the short month name of its first day. Slots starting on or after end get an empty
// label. This is an approximation, not calendar-accurate month boundaries.
func MonthLabels(start, end time.Time) []string {
	labels := make([]string, monthLabelSlots)
	for i := range labels {
		slotStart := start.AddDate(0, 0, i*monthSlotDays)
		if slotStart.Before(end) {
			labels[i] = slotStart.Format("Jan")
		}
	}
	return labels
}
