package cli

import (
	"fmt"

	"github.com/belphemur/habit-tracker/internal/models"
)

type ListCmd struct{}

func (c *ListCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.requestContext()
	defer cancel()

	if err := ctx.load(reqCtx); err != nil {
		return err
	}

	list := ctx.Ctrl.Habits()
	if len(list) == 0 {
		ctx.printf("No habits yet\n")
		return nil
	}

	loc := ctx.Ctrl.Location()
	today := ctx.now()
	for _, h := range list {
		mark := " "
		if doneToday(h, today, loc) {
			mark = "x"
		}
		ctx.printf("[%s] %s  %s (%d days)\n", mark, h.ID, h.Name, len(h.Entries))
	}
	return nil
}

type AddCmd struct {
	Name string `arg:"" help:"Habit name (1-50 characters)."`
}

func (c *AddCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.requestContext()
	defer cancel()

	habit, err := ctx.Ctrl.Create(reqCtx, ctx.Session, c.Name)
	if err != nil {
		return err
	}
	ctx.printf("Created habit %q (%s)\n", habit.Name, habit.ID)
	return nil
}

type RenameCmd struct {
	ID   string `arg:"" help:"Habit ID."`
	Name string `arg:"" help:"New habit name (1-50 characters)."`
}

func (c *RenameCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.requestContext()
	defer cancel()

	habit, err := ctx.Ctrl.Update(reqCtx, ctx.Session, models.Habit{ID: c.ID, Name: c.Name})
	if err != nil {
		return err
	}
	ctx.printf("Renamed habit %s to %q\n", habit.ID, habit.Name)
	return nil
}

type RmCmd struct {
	ID string `arg:"" help:"Habit ID."`
}

func (c *RmCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.requestContext()
	defer cancel()

	if err := ctx.Ctrl.Delete(reqCtx, ctx.Session, c.ID); err != nil {
		return err
	}
	ctx.printf("Deleted habit %s\n", c.ID)
	return nil
}

type ToggleCmd struct {
	ID   string `arg:"" help:"Habit ID."`
	Date string `arg:"" optional:"" help:"Day to toggle (YYYY-MM-DD), defaults to today."`
}

func (c *ToggleCmd) Run(ctx *Context) error {
	day, err := ctx.parseDay(c.Date)
	if err != nil {
		return err
	}

	reqCtx, cancel := ctx.requestContext()
	defer cancel()

	if _, err := ctx.habit(reqCtx, c.ID); err != nil {
		return err
	}
	res, err := ctx.Ctrl.ToggleDay(reqCtx, ctx.Session, c.ID, day)
	if err != nil {
		return fmt.Errorf("failed to toggle %s: %w", formatDay(day), err)
	}

	habit, _ := ctx.Ctrl.Habit(c.ID)
	done := doneToday(habit, day, ctx.Ctrl.Location())
	state := "not done"
	if done {
		state = "done"
	}
	ctx.printf("%s on %s: %s (%s)\n", habit.Name, formatDay(day), state, res.Outcome)
	return nil
}
