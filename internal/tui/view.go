package tui

import (
	"fmt"
	"strings"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/heatmap"
	"github.com/charmbracelet/lipgloss"
)

// View renders the selected habit, the status line and the key help
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	switch {
	case m.loading && len(m.habits) == 0:
		sections = append(sections, subtitleStyle.Render("Loading habits..."))
	case m.view == nil:
		sections = append(sections, subtitleStyle.Render("No habits yet. Add one with `habitctl add NAME`."))
	default:
		sections = append(sections, m.viewHeader(), m.viewHeatmap())
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	sections = append(sections, m.help.View(m.keys))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) viewHeader() string {
	i := m.selectedIndex()
	name := titleStyle.Render(m.habits[i].Name)
	position := subtitleStyle.Render(fmt.Sprintf(" (%d/%d)", i+1, len(m.habits)))

	sub := m.view.Title()
	if date, ok := m.CursorDate(); ok {
		state := "not done"
		if m.view.IsActive(heatmap.Cell{Date: date}) {
			state = "done"
		}
		sub += " · " + date.Format("Mon Jan 2") + " " + state
	}
	return lipgloss.JoinVertical(lipgloss.Left, name+position, subtitleStyle.Render(sub), "")
}

func (m Model) viewHeatmap() string {
	return renderGrid(m.view, func(week, day int) bool {
		return week == m.week && day == m.day
	})
}

// Render draws a habit's heatmap without a cursor, for one-shot output
func Render(name string, view *heatmap.View) string {
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(name),
		subtitleStyle.Render(view.Title()),
		"",
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, renderGrid(view, nil))
}

// renderGrid draws one line per weekday, one column per week
func renderGrid(view *heatmap.View, isCursor func(week, day int) bool) string {
	grid := view.Grid()
	var b strings.Builder

	if labels := view.MonthLabels(); len(labels) > 0 && view.Mode() == constants.ViewModeYear {
		b.WriteString(labelStyle.Render(""))
		// spread the labels evenly over the week columns
		width := len(grid.Weeks) * 2
		slot := width / len(labels)
		for _, label := range labels {
			b.WriteString(subtitleStyle.Width(slot).Render(label))
		}
		b.WriteString("\n")
	}

	for day := 0; day < heatmap.DaysPerWeek; day++ {
		b.WriteString(labelStyle.Render(heatmap.DayLabels[day]))
		for week, cells := range grid.Weeks {
			b.WriteString(renderCell(view, cells[day], isCursor != nil && isCursor(week, day)))
			b.WriteString(" ")
		}
		if day < heatmap.DaysPerWeek-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderCell(view *heatmap.View, cell heatmap.Cell, cursor bool) string {
	if cell.IsPlaceholder() {
		return placeholderGlyph
	}
	style := emptyCellStyle
	if view.IsActive(cell) {
		style = activeCellStyle
	}
	if cursor {
		style = style.Inherit(cursorStyle)
	}
	return style.Render(cellGlyph)
}
