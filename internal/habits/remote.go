package habits

import (
	"context"
	"time"

	"github.com/belphemur/habit-tracker/internal/models"
)

// Session identifies the signed-in user for every remote call
type Session struct {
	UserID string
	Token  string
}

// IsZero reports whether the session carries no credentials at all
func (s Session) IsZero() bool {
	return s.UserID == "" && s.Token == ""
}

// Remote is the habit store the controller synchronizes with.
// Every call is scoped to the session's user; a non-success response is
// returned as an error wrapping one of the models.Err* kinds.
type Remote interface {
	ListHabits(ctx context.Context, sess Session) ([]models.HabitWithEntries, error)
	CreateHabit(ctx context.Context, sess Session, name string) (*models.Habit, error)
	UpdateHabit(ctx context.Context, sess Session, id, name string) (*models.Habit, error)
	DeleteHabit(ctx context.Context, sess Session, id string) error

	ListEntries(ctx context.Context, sess Session, habitID string) ([]models.Entry, error)
	CreateEntry(ctx context.Context, sess Session, habitID string, date time.Time) (*models.Entry, error)
	DeleteEntry(ctx context.Context, sess Session, habitID, entryID string) error
}
