package tui

import "github.com/charmbracelet/lipgloss"

const (
	cellGlyph        = "■"
	placeholderGlyph = " "
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(2)

	emptyCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("237"))

	activeCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35"))

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35"))

	docStyle = lipgloss.NewStyle().Padding(1, 2)
)
