package tui

import (
	"errors"
	"fmt"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/habits"
	"github.com/belphemur/habit-tracker/internal/heatmap"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles key presses and the results of controller calls
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil && msg.result.Degraded {
			m.err = fmt.Errorf("could not reach the server: %w", msg.result.Cause)
		}
		m.refresh()

	case toggledMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			if errors.Is(msg.err, habits.ErrTogglePending) {
				m.err = nil
				m.status = "Still saving the previous change for this day"
			}
			return m, nil
		}
		m.err = nil
		day := msg.date.Format(constants.DateFormat)
		switch msg.result.Outcome {
		case habits.ToggleCreated:
			m.status = "Marked " + day
		case habits.ToggleDeleted:
			m.status = "Unmarked " + day
		case habits.ToggleReconciled:
			m.status = "Synced " + day + " with the server"
		}
		m.refresh()

	case habitsChangedMsg:
		m.refresh()
		return m, m.waitForChange()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-heatmap.DaysPerWeek)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(heatmap.DaysPerWeek)
	case key.Matches(msg, m.keys.Month):
		m.setMode(constants.ViewModeMonth)
	case key.Matches(msg, m.keys.Year):
		m.setMode(constants.ViewModeYear)
	case key.Matches(msg, m.keys.NextHabit):
		m.cycleHabit(1)
	case key.Matches(msg, m.keys.PrevHabit):
		m.cycleHabit(-1)
	case key.Matches(msg, m.keys.Toggle):
		return m.toggleCursor()
	}
	return m, nil
}

func (m *Model) setMode(mode constants.ViewMode) {
	m.mode = mode
	if m.view == nil || m.view.Mode() == mode {
		return
	}
	if err := m.view.SetMode(mode); err != nil {
		m.err = err
		return
	}
	m.cursorToToday()
}

func (m *Model) cycleHabit(step int) {
	if len(m.habits) == 0 {
		return
	}
	i := (m.selectedIndex() + step + len(m.habits)) % len(m.habits)
	m.selected = m.habits[i].ID
	m.status = ""
	m.buildView(m.habits[i])
}

// toggleCursor clicks the cell under the cursor and sends the toggle it asked for
func (m Model) toggleCursor() (tea.Model, tea.Cmd) {
	if m.view == nil {
		return m, nil
	}
	*m.intent = toggleIntent{}
	if err := m.view.Click(m.week, m.day); err != nil {
		m.err = err
		return m, nil
	}
	if !m.intent.set {
		return m, nil
	}
	intent := *m.intent
	m.status = "Saving " + intent.date.Format(constants.DateFormat) + "..."
	return m, m.toggleCmd(intent.habitID, intent.date)
}
