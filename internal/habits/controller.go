// Package habits holds the client-side copy of a user's habits and their entries
// and keeps it in step with a Remote store. Local state only ever changes after the
// remote confirmed the mutation.
package habits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/belphemur/habit-tracker/internal/signals"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// ErrTogglePending is returned when the same habit day is toggled again before
// the previous toggle completed
var ErrTogglePending = errors.New("toggle already in progress")

// maxLoadAttempts bounds how often Load re-fetches because local mutations
// landed while the listing was in flight
const maxLoadAttempts = 3

// Options configures a Controller
type Options struct {
	// Location is the reference timezone entry dates are normalized in. Defaults to UTC.
	Location *time.Location
	// Logger overrides the component logger
	Logger *zerolog.Logger
}

// LoadResult describes how the collection was populated by Load
type LoadResult struct {
	// Degraded is set when the remote failed and the fallback list was installed
	Degraded bool
	// Cause is the remote failure behind a degraded load
	Cause error
	// Stale is set when a newer Load started before this one finished, or local
	// mutations kept landing during every fetch; nothing was installed
	Stale bool
	Count int
}

// ToggleOutcome names what a toggle did to the day
type ToggleOutcome int

const (
	ToggleCreated ToggleOutcome = iota + 1
	ToggleDeleted
	// ToggleReconciled means the remote already had an entry for the day and the
	// local entries were refreshed from it
	ToggleReconciled
)

func (o ToggleOutcome) String() string {
	switch o {
	case ToggleCreated:
		return "created"
	case ToggleDeleted:
		return "deleted"
	case ToggleReconciled:
		return "reconciled"
	default:
		return "unknown"
	}
}

// ToggleResult is returned by a successful ToggleDay
type ToggleResult struct {
	Outcome ToggleOutcome
	// Entry is the created, deleted or reconciled entry. Nil when a reconcile found
	// no entry for the day.
	Entry *models.Entry
}

type toggleKey struct {
	habitID string
	day     string
}

// Controller is the authoritative client-side collection of habits with entries
type Controller struct {
	remote Remote
	loc    *time.Location
	logger zerolog.Logger

	mu      sync.RWMutex
	habits  []models.HabitWithEntries
	pending map[toggleKey]struct{}

	loadToken *atomic.Uint64
	inFlight  *atomic.Int64
	// generation counts confirmed local mutations; bumped with mu held
	generation *atomic.Uint64
}

// New creates a controller backed by remote
func New(remote Remote, opts Options) *Controller {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := logging.GetLogger("habits")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Controller{
		remote:    remote,
		loc:       loc,
		logger:    logger,
		habits:    []models.HabitWithEntries{},
		pending:   make(map[toggleKey]struct{}),
		loadToken:  atomic.NewUint64(0),
		inFlight:   atomic.NewInt64(0),
		generation: atomic.NewUint64(0),
	}
}

// Location returns the reference timezone
func (c *Controller) Location() *time.Location {
	return c.loc
}

// InFlight returns the number of remote calls currently outstanding
func (c *Controller) InFlight() int64 {
	return c.inFlight.Load()
}

// Habits returns a deep copy of the collection
func (c *Controller) Habits() []models.HabitWithEntries {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.HabitWithEntries, len(c.habits))
	for i, h := range c.habits {
		out[i] = h.Clone()
	}
	return out
}

// Habit returns a deep copy of a single habit
func (c *Controller) Habit(id string) (models.HabitWithEntries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.HabitWithEntries{}, false
	}
	return c.habits[i].Clone(), true
}

// indexOf must be called with the lock held
func (c *Controller) indexOf(id string) int {
	for i := range c.habits {
		if c.habits[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) track() func() {
	c.inFlight.Inc()
	return func() { c.inFlight.Dec() }
}

func requireSession(sess Session) error {
	if sess.IsZero() {
		return fmt.Errorf("no signed-in user: %w", models.ErrUnauthenticated)
	}
	return nil
}

func (c *Controller) emit(ctx context.Context, kind signals.HabitsChangeKind, sess Session, habitID string) {
	signals.EmitHabitsChanged(ctx, signals.HabitsChangedData{
		Kind:    kind,
		UserID:  sess.UserID,
		HabitID: habitID,
	})
}

// Load fetches every habit with its entries. When the remote fails the fallback
// habits are installed with empty entries and the result is marked degraded; that
// is not an error. A load superseded by a newer one installs nothing, and a
// listing fetched before a confirmed local mutation is fetched again.
func (c *Controller) Load(ctx context.Context, sess Session, fallback []models.Habit) (LoadResult, error) {
	if err := requireSession(sess); err != nil {
		return LoadResult{}, err
	}
	token := c.loadToken.Inc()

	for attempt := 1; attempt <= maxLoadAttempts; attempt++ {
		gen := c.generation.Load()

		done := c.track()
		list, err := c.remote.ListHabits(ctx, sess)
		done()

		if token != c.loadToken.Load() {
			c.logger.Debug().Uint64("token", token).Msg("Discarding stale habit load")
			return LoadResult{Stale: true}, nil
		}

		result := LoadResult{}
		if err != nil {
			c.logger.Warn().Err(err).Int("fallback_count", len(fallback)).Msg("Failed to load habits, using fallback")
			list = make([]models.HabitWithEntries, 0, len(fallback))
			for _, h := range fallback {
				list = append(list, models.HabitWithEntries{Habit: h, Entries: []models.Entry{}})
			}
			result.Degraded = true
			result.Cause = err
		}
		for i := range list {
			if list[i].Entries == nil {
				list[i].Entries = []models.Entry{}
			}
		}

		c.mu.Lock()
		// A newer load may have started while we were waiting for the lock
		if token != c.loadToken.Load() {
			c.mu.Unlock()
			return LoadResult{Stale: true}, nil
		}
		// The listing predates a confirmed mutation, installing it would undo that
		if gen != c.generation.Load() {
			c.mu.Unlock()
			c.logger.Debug().Int("attempt", attempt).Msg("Habits changed during load, fetching again")
			continue
		}
		c.habits = list
		c.mu.Unlock()

		result.Count = len(list)
		c.logger.Debug().Int("count", result.Count).Bool("degraded", result.Degraded).Msg("Habits loaded")
		c.emit(ctx, signals.HabitsLoaded, sess, "")
		return result, nil
	}

	c.logger.Warn().Int("attempts", maxLoadAttempts).Msg("Habits kept changing during load, keeping local state")
	return LoadResult{Stale: true}, nil
}

// Create validates name, creates the habit remotely and appends it with no entries
func (c *Controller) Create(ctx context.Context, sess Session, name string) (*models.HabitWithEntries, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := models.ValidateHabitName(name); err != nil {
		return nil, err
	}

	done := c.track()
	habit, err := c.remote.CreateHabit(ctx, sess, name)
	done()
	if err != nil {
		c.logger.Error().Err(err).Str("name", name).Msg("Failed to create habit")
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	created := models.HabitWithEntries{Habit: *habit, Entries: []models.Entry{}}
	c.mu.Lock()
	c.habits = append(c.habits, created)
	c.generation.Inc()
	c.mu.Unlock()

	c.logger.Info().Str("habit_id", habit.ID).Msg("Habit created")
	c.emit(ctx, signals.HabitCreated, sess, habit.ID)
	out := created.Clone()
	return &out, nil
}

// Update sends the habit's name to the remote. Only the local name is patched on
// success; any other field the caller changed is ignored.
func (c *Controller) Update(ctx context.Context, sess Session, habit models.Habit) (*models.HabitWithEntries, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := models.ValidateHabitName(habit.Name); err != nil {
		return nil, err
	}

	done := c.track()
	updated, err := c.remote.UpdateHabit(ctx, sess, habit.ID, habit.Name)
	done()
	if err != nil {
		c.logger.Error().Err(err).Str("habit_id", habit.ID).Msg("Failed to update habit")
		return nil, fmt.Errorf("failed to update habit %s: %w", habit.ID, err)
	}

	c.mu.Lock()
	i := c.indexOf(habit.ID)
	if i < 0 {
		c.mu.Unlock()
		// Renamed remotely but no longer held locally
		return &models.HabitWithEntries{Habit: *updated, Entries: []models.Entry{}}, nil
	}
	c.habits[i].Name = updated.Name
	c.generation.Inc()
	out := c.habits[i].Clone()
	c.mu.Unlock()

	c.emit(ctx, signals.HabitRenamed, sess, habit.ID)
	return &out, nil
}

// Delete removes the habit remotely, then locally
func (c *Controller) Delete(ctx context.Context, sess Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	done := c.track()
	err := c.remote.DeleteHabit(ctx, sess, id)
	done()
	if err != nil {
		c.logger.Error().Err(err).Str("habit_id", id).Msg("Failed to delete habit")
		return fmt.Errorf("failed to delete habit %s: %w", id, err)
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.habits = append(c.habits[:i], c.habits[i+1:]...)
	}
	c.generation.Inc()
	c.mu.Unlock()

	c.logger.Info().Str("habit_id", id).Msg("Habit deleted")
	c.emit(ctx, signals.HabitDeleted, sess, id)
	return nil
}

// ToggleDay flips whether the habit has an entry on date's calendar day: an
// existing entry is deleted, otherwise one is created and the server's entry is
// appended.
func (c *Controller) ToggleDay(ctx context.Context, sess Session, habitID string, date time.Time) (ToggleResult, error) {
	if err := requireSession(sess); err != nil {
		return ToggleResult{}, err
	}
	day := models.StartOfDay(date, c.loc)
	key := toggleKey{habitID: habitID, day: models.DayKey(day, c.loc)}

	c.mu.Lock()
	i := c.indexOf(habitID)
	if i < 0 {
		c.mu.Unlock()
		return ToggleResult{}, fmt.Errorf("habit %s: %w", habitID, models.ErrNotFound)
	}
	if _, busy := c.pending[key]; busy {
		c.mu.Unlock()
		return ToggleResult{}, fmt.Errorf("habit %s on %s: %w", habitID, key.day, ErrTogglePending)
	}
	existing := c.findEntry(i, key.day)
	c.pending[key] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	}()

	logger := c.logger.With().Str("habit_id", habitID).Str("day", key.day).Logger()

	if existing != nil {
		return c.deleteEntry(ctx, sess, logger, *existing)
	}
	return c.createEntry(ctx, sess, logger, habitID, day, key.day)
}

// findEntry must be called with the lock held
func (c *Controller) findEntry(habitIdx int, day string) *models.Entry {
	for _, e := range c.habits[habitIdx].Entries {
		if models.DayKey(e.Date, c.loc) == day {
			entry := e
			return &entry
		}
	}
	return nil
}

func (c *Controller) deleteEntry(ctx context.Context, sess Session, logger zerolog.Logger, entry models.Entry) (ToggleResult, error) {
	done := c.track()
	err := c.remote.DeleteEntry(ctx, sess, entry.HabitID, entry.ID)
	done()

	if err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to delete entry")
		return ToggleResult{}, fmt.Errorf("failed to delete entry %s: %w", entry.ID, err)
	}

	// A vanished entry is dropped locally as well, but still reported
	c.mu.Lock()
	c.removeEntry(entry.HabitID, entry.ID)
	c.generation.Inc()
	c.mu.Unlock()
	c.emit(ctx, signals.EntryDeleted, sess, entry.HabitID)

	if err != nil {
		logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("Entry was already gone, removed stale local copy")
		return ToggleResult{}, fmt.Errorf("failed to delete entry %s: %w", entry.ID, err)
	}
	logger.Debug().Str("entry_id", entry.ID).Msg("Entry deleted")
	return ToggleResult{Outcome: ToggleDeleted, Entry: &entry}, nil
}

// removeEntry must be called with the lock held
func (c *Controller) removeEntry(habitID, entryID string) {
	i := c.indexOf(habitID)
	if i < 0 {
		return
	}
	entries := c.habits[i].Entries
	for j := range entries {
		if entries[j].ID == entryID {
			c.habits[i].Entries = append(entries[:j], entries[j+1:]...)
			return
		}
	}
}

func (c *Controller) createEntry(ctx context.Context, sess Session, logger zerolog.Logger, habitID string, day time.Time, dayKey string) (ToggleResult, error) {
	done := c.track()
	entry, err := c.remote.CreateEntry(ctx, sess, habitID, day)
	done()

	if errors.Is(err, models.ErrConflict) {
		logger.Info().Msg("Entry already exists remotely, reconciling")
		return c.reconcile(ctx, sess, logger, habitID, dayKey)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create entry")
		return ToggleResult{}, fmt.Errorf("failed to create entry: %w", err)
	}

	c.mu.Lock()
	if i := c.indexOf(habitID); i >= 0 {
		c.habits[i].Entries = append(c.habits[i].Entries, *entry)
	}
	c.generation.Inc()
	c.mu.Unlock()

	logger.Debug().Str("entry_id", entry.ID).Msg("Entry created")
	c.emit(ctx, signals.EntryCreated, sess, habitID)
	return ToggleResult{Outcome: ToggleCreated, Entry: entry}, nil
}

// reconcile replaces the habit's local entries with the remote ones
func (c *Controller) reconcile(ctx context.Context, sess Session, logger zerolog.Logger, habitID, dayKey string) (ToggleResult, error) {
	done := c.track()
	entries, err := c.remote.ListEntries(ctx, sess, habitID)
	done()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reconcile entries")
		return ToggleResult{}, fmt.Errorf("failed to reconcile entries of habit %s: %w", habitID, err)
	}
	if entries == nil {
		entries = []models.Entry{}
	}

	c.mu.Lock()
	var match *models.Entry
	if i := c.indexOf(habitID); i >= 0 {
		c.habits[i].Entries = entries
		match = c.findEntry(i, dayKey)
	}
	c.generation.Inc()
	c.mu.Unlock()

	c.emit(ctx, signals.EntriesReconciled, sess, habitID)
	return ToggleResult{Outcome: ToggleReconciled, Entry: match}, nil
}
