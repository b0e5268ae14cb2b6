package cli

import (
	"fmt"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/heatmap"
	"github.com/belphemur/habit-tracker/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

type ShowCmd struct {
	ID   string             `arg:"" help:"Habit ID."`
	View constants.ViewMode `help:"Heatmap range (month or year)." enum:"month,year" default:"year"`
}

func (c *ShowCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.requestContext()
	defer cancel()

	habit, err := ctx.habit(reqCtx, c.ID)
	if err != nil {
		return err
	}

	view, err := heatmap.NewView(habit.ID, habit.EntryDates(), heatmap.ViewOptions{
		Mode:     c.View,
		Today:    ctx.now(),
		Location: ctx.Ctrl.Location(),
	})
	if err != nil {
		return err
	}
	ctx.printf("%s\n", tui.Render(habit.Name, view))
	return nil
}

type TuiCmd struct {
	Habit string             `help:"Habit ID to open first."`
	View  constants.ViewMode `help:"Initial heatmap range (month or year)." enum:"month,year" default:"year"`
}

func (c *TuiCmd) Run(ctx *Context) error {
	m := tui.NewModel(ctx.Ctrl, ctx.Session, tui.Options{
		HabitID: c.Habit,
		Mode:    c.View,
		Now:     ctx.Now,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
