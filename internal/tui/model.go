// Package tui is the terminal heatmap of habitctl: one habit at a time, a cursor
// over its days, toggles through the habits controller.
package tui

import (
	"context"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/habits"
	"github.com/belphemur/habit-tracker/internal/heatmap"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/belphemur/habit-tracker/internal/signals"
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// requestTimeout bounds every controller call made from the TUI
const requestTimeout = 15 * time.Second

type loadedMsg struct {
	result habits.LoadResult
	err    error
}

type toggledMsg struct {
	date   time.Time
	result habits.ToggleResult
	err    error
}

type habitsChangedMsg signals.HabitsChangedData

// toggleIntent receives the day clicked on the heatmap view. It is shared by
// every copy of the model.
type toggleIntent struct {
	habitID string
	date    time.Time
	set     bool
}

// Options configures a Model
type Options struct {
	HabitID string             // habit selected first, defaults to the newest
	Mode    constants.ViewMode // defaults to year
	Now     func() time.Time
}

// Model is the bubbletea model of the heatmap TUI
type Model struct {
	ctrl *habits.Controller
	sess habits.Session
	keys KeyMap
	help help.Model
	now  func() time.Time

	habits   []models.HabitWithEntries
	selected string
	mode     constants.ViewMode
	view     *heatmap.View
	week     int
	day      int

	intent      *toggleIntent
	listenerKey string
	changes     chan signals.HabitsChangedData
	done        chan struct{}

	loading  bool
	status   string
	err      error
	width    int
	quitting bool
}

// NewModel creates the TUI model and subscribes it to habit changes. Call Close
// once the program has exited.
func NewModel(ctrl *habits.Controller, sess habits.Session, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !opts.Mode.IsValid() {
		opts.Mode = constants.DefaultViewMode
	}

	m := Model{
		ctrl:        ctrl,
		sess:        sess,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		now:         opts.Now,
		selected:    opts.HabitID,
		mode:        opts.Mode,
		intent:      &toggleIntent{},
		listenerKey: "tui-" + uuid.NewString(),
		changes:     make(chan signals.HabitsChangedData, 16),
		done:        make(chan struct{}),
		loading:     true,
	}

	changes := m.changes
	signals.OnHabitsChanged(func(ctx context.Context, data signals.HabitsChangedData) {
		// never block the controller on a slow UI
		select {
		case changes <- data:
		default:
		}
	}, m.listenerKey)
	return m
}

// Close unsubscribes the model from habit changes
func (m Model) Close() {
	signals.OffHabitsChanged(m.listenerKey)
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// Init loads the habits and starts listening for changes
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.waitForChange())
}

func (m Model) loadCmd() tea.Cmd {
	ctrl, sess := m.ctrl, m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := ctrl.Load(ctx, sess, nil)
		return loadedMsg{result: res, err: err}
	}
}

func (m Model) toggleCmd(habitID string, date time.Time) tea.Cmd {
	ctrl, sess := m.ctrl, m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := ctrl.ToggleDay(ctx, sess, habitID, date)
		return toggledMsg{date: date, result: res, err: err}
	}
}

// waitForChange delivers the next HabitsChanged signal as a message
func (m Model) waitForChange() tea.Cmd {
	changes, done := m.changes, m.done
	return func() tea.Msg {
		select {
		case data := <-changes:
			return habitsChangedMsg(data)
		case <-done:
			return nil
		}
	}
}

// selectedIndex returns the position of the selected habit, -1 when there is none
func (m Model) selectedIndex() int {
	for i, h := range m.habits {
		if h.ID == m.selected {
			return i
		}
	}
	return -1
}

// refresh takes a new snapshot of the controller and rebuilds the view of the
// selected habit, falling back to the first habit when it vanished.
func (m *Model) refresh() {
	m.habits = m.ctrl.Habits()
	if len(m.habits) == 0 {
		m.selected = ""
		m.view = nil
		return
	}
	if m.selectedIndex() < 0 {
		m.selected = m.habits[0].ID
		m.view = nil
	}
	habit := m.habits[m.selectedIndex()]

	if m.view != nil && m.view.HabitID() == habit.ID {
		m.view.SetEntries(habit.EntryDates())
		return
	}
	m.buildView(habit)
}

func (m *Model) buildView(habit models.HabitWithEntries) {
	intent := m.intent
	view, err := heatmap.NewView(habit.ID, habit.EntryDates(), heatmap.ViewOptions{
		Mode:     m.mode,
		Today:    m.now(),
		Location: m.ctrl.Location(),
		OnToggle: func(habitID string, date time.Time) error {
			*intent = toggleIntent{habitID: habitID, date: date, set: true}
			return nil
		},
	})
	if err != nil {
		m.err = err
		m.view = nil
		return
	}
	m.view = view
	m.cursorToToday()
}

// cursorToToday puts the cursor on the last day of the grid
func (m *Model) cursorToToday() {
	if m.view == nil {
		return
	}
	if week, day, ok := m.view.Grid().Locate(m.view.Today()); ok {
		m.week, m.day = week, day
	}
}

// moveCursor steps through the grid in column order (week by week, Sunday to
// Saturday) and skips placeholder cells. The cursor stays put at the edges.
func (m *Model) moveCursor(step int) {
	if m.view == nil {
		return
	}
	grid := m.view.Grid()
	pos := m.week*heatmap.DaysPerWeek + m.day
	for {
		pos += step
		week, day := pos/heatmap.DaysPerWeek, pos%heatmap.DaysPerWeek
		if pos < 0 {
			return
		}
		cell, ok := grid.Cell(week, day)
		if !ok {
			return
		}
		if !cell.IsPlaceholder() {
			m.week, m.day = week, day
			return
		}
	}
}

// CursorDate returns the day under the cursor
func (m Model) CursorDate() (time.Time, bool) {
	if m.view == nil {
		return time.Time{}, false
	}
	cell, ok := m.view.Grid().Cell(m.week, m.day)
	if !ok || cell.IsPlaceholder() {
		return time.Time{}, false
	}
	return cell.Date, true
}
