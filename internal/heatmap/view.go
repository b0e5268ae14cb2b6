package heatmap

import (
	"errors"
	"fmt"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/models"
)

// yearViewDays is the length of the trailing range shown in year view, today included
const yearViewDays = 365

// DayLabels are the row headers of a grid week, Sunday first
var DayLabels = [DaysPerWeek]string{"S", "M", "T", "W", "T", "F", "S"}

// ErrCellOutOfRange is returned when a click targets a cell outside the grid
var ErrCellOutOfRange = errors.New("cell out of range")

// ToggleFunc is invoked when a real day cell is clicked. Persistence is the
// caller's business; the view never talks to the store.
type ToggleFunc func(habitID string, date time.Time) error

// ViewOptions configures a View
type ViewOptions struct {
	Mode     constants.ViewMode // defaults to year
	Today    time.Time          // defaults to time.Now()
	Location *time.Location     // reference timezone, defaults to UTC
	OnToggle ToggleFunc
}

// View is the heatmap of one habit for the selected view mode
type View struct {
	habitID  string
	mode     constants.ViewMode
	today    time.Time
	loc      *time.Location
	activity *ActivitySet
	onToggle ToggleFunc

	grid   *Grid
	labels []string
}

// DateRange returns the inclusive range displayed for mode on today:
// the trailing 365 days for year, the calendar month up to today for month.
func DateRange(mode constants.ViewMode, today time.Time, loc *time.Location) (start, end time.Time) {
	end = models.StartOfDay(today, loc)
	if mode == constants.ViewModeMonth {
		year, month, _ := end.Date()
		return time.Date(year, month, 1, 0, 0, 0, 0, end.Location()), end
	}
	return end.AddDate(0, 0, -(yearViewDays - 1)), end
}

// NewView builds the heatmap of a habit from its entry dates
func NewView(habitID string, entries []time.Time, opts ViewOptions) (*View, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Mode == "" {
		opts.Mode = constants.DefaultViewMode
	}
	if !opts.Mode.IsValid() {
		return nil, fmt.Errorf("invalid view mode: %s", opts.Mode)
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}

	v := &View{
		habitID:  habitID,
		mode:     opts.Mode,
		today:    opts.Today,
		loc:      opts.Location,
		activity: NewActivitySet(entries, opts.Location),
		onToggle: opts.OnToggle,
	}
	if err := v.rebuild(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) rebuild() error {
	start, end := DateRange(v.mode, v.today, v.loc)
	grid, err := BuildGrid(start, end)
	if err != nil {
		return fmt.Errorf("failed to build heatmap grid: %w", err)
	}
	v.grid = grid
	v.labels = nil
	if v.mode == constants.ViewModeYear {
		v.labels = MonthLabels(start, end)
	}
	return nil
}

// SetMode switches the view mode and rebuilds the grid
func (v *View) SetMode(mode constants.ViewMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid view mode: %s", mode)
	}
	if mode == v.mode {
		return nil
	}
	v.mode = mode
	return v.rebuild()
}

// SetEntries replaces the recorded dates used to color the cells
func (v *View) SetEntries(entries []time.Time) {
	v.activity = NewActivitySet(entries, v.loc)
}

// HabitID returns the habit this view renders
func (v *View) HabitID() string { return v.habitID }

// Mode returns the current view mode
func (v *View) Mode() constants.ViewMode { return v.mode }

// Grid returns the grid for the current mode
func (v *View) Grid() *Grid { return v.grid }

// MonthLabels returns the approximate month labels; empty in month view
func (v *View) MonthLabels() []string { return v.labels }

// Today returns the last day of the displayed range
func (v *View) Today() time.Time { return v.grid.End }

// Title describes the displayed range
func (v *View) Title() string {
	if v.mode == constants.ViewModeMonth {
		return v.grid.End.Format("January 2006")
	}
	return fmt.Sprintf("Last 365 days (%s - %s)", v.grid.Start.Format("Jan 2, 2006"), v.grid.End.Format("Jan 2, 2006"))
}

// IsActive reports whether the cell's day has an entry
func (v *View) IsActive(c Cell) bool {
	return v.activity.HasCell(c)
}

// Click dispatches a toggle for the cell at (week, day). Placeholder cells are
// inert: no callback, no error.
func (v *View) Click(week, day int) error {
	cell, ok := v.grid.Cell(week, day)
	if !ok {
		return fmt.Errorf("%w: week %d day %d", ErrCellOutOfRange, week, day)
	}
	if cell.IsPlaceholder() || v.onToggle == nil {
		return nil
	}
	return v.onToggle(v.habitID, cell.Date)
}
