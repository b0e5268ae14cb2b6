// Package cli implements the habitctl commands on top of the habits controller.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/habits"
	"github.com/belphemur/habit-tracker/internal/models"
)

// Context is shared by every command
type Context struct {
	Ctrl    *habits.Controller
	Session habits.Session
	Out     io.Writer
	Timeout time.Duration
	Now     func() time.Time
}

// requestContext bounds a single command
func (c *Context) requestContext() (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// load populates the controller. A degraded load is an error on the command line.
func (c *Context) load(ctx context.Context) error {
	res, err := c.Ctrl.Load(ctx, c.Session, nil)
	if err != nil {
		return err
	}
	if res.Degraded {
		return fmt.Errorf("failed to load habits: %w", res.Cause)
	}
	return nil
}

// habit loads the collection and returns the habit with id
func (c *Context) habit(ctx context.Context, id string) (models.HabitWithEntries, error) {
	if err := c.load(ctx); err != nil {
		return models.HabitWithEntries{}, err
	}
	habit, ok := c.Ctrl.Habit(id)
	if !ok {
		return models.HabitWithEntries{}, fmt.Errorf("habit %s: %w", id, models.ErrNotFound)
	}
	return habit, nil
}

// parseDay reads a YYYY-MM-DD or RFC 3339 date, today when empty
func (c *Context) parseDay(s string) (time.Time, error) {
	loc := c.Ctrl.Location()
	if s == "" {
		return models.StartOfDay(c.now(), loc), nil
	}
	return models.ParseEntryDate(s, loc)
}

// ReferenceLocation resolves the timezone entry dates are normalized in. The
// server's timezone wins; override only confirms it and must name the same zone.
func ReferenceLocation(server, override string) (*time.Location, error) {
	name := server
	if name == "" {
		name = override
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	if override != "" && server != "" {
		want, err := time.LoadLocation(override)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", override, err)
		}
		if want.String() != loc.String() {
			return nil, fmt.Errorf("timezone %q does not match the server's %q", override, server)
		}
	}
	return loc, nil
}

func doneToday(habit models.HabitWithEntries, today time.Time, loc *time.Location) bool {
	key := models.DayKey(today, loc)
	for _, e := range habit.Entries {
		if models.DayKey(e.Date, loc) == key {
			return true
		}
	}
	return false
}

func formatDay(t time.Time) string {
	return t.Format(constants.DateFormat)
}
