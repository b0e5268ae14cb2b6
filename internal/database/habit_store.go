package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timestampFormat has a fixed width so that stored timestamps sort as text
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// HabitStore persists habits and their entries. Every operation is scoped to a user:
// a habit owned by someone else is reported as not found.
type HabitStore struct {
	db     *DB
	loc    *time.Location
	logger zerolog.Logger
	now    func() time.Time
}

// NewHabitStore creates a store normalizing entry dates in loc
func NewHabitStore(db *DB, loc *time.Location) *HabitStore {
	if loc == nil {
		loc = time.UTC
	}
	return &HabitStore{
		db:     db,
		loc:    loc,
		logger: logging.GetLogger("habit-store"),
		now:    time.Now,
	}
}

// Location returns the reference timezone entry dates are normalized in
func (s *HabitStore) Location() *time.Location {
	return s.loc
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(v string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return t, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// Primary result code only, when extended codes are off
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}

func habitNotFound(id string) error {
	return fmt.Errorf("habit %s: %w", id, models.ErrNotFound)
}

func scanHabit(scan func(dest ...any) error) (*models.Habit, error) {
	var h models.Habit
	var createdAt, updatedAt string
	if err := scan(&h.ID, &h.UserID, &h.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if h.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *HabitStore) scanEntry(scan func(dest ...any) error) (*models.Entry, error) {
	var e models.Entry
	var entryDate, createdAt string
	if err := scan(&e.ID, &e.HabitID, &e.UserID, &entryDate, &createdAt); err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation(constants.DateFormat, entryDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry date %q: %w", entryDate, err)
	}
	e.Date = date
	if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *HabitStore) getHabit(ctx context.Context, q querier, userID, id string) (*models.Habit, error) {
	row := q.QueryRowContext(ctx, `
SELECT id, user_id, name, created_at, updated_at
FROM habits
WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, habitNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit %s: %w", id, err)
	}
	return h, nil
}

func (s *HabitStore) listEntries(ctx context.Context, q querier, query string, args ...any) ([]models.Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := s.scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// ListHabits returns every habit of the user with its entries, newest habit first
// and each habit's entries newest date first
func (s *HabitStore) ListHabits(ctx context.Context, userID string) ([]models.HabitWithEntries, error) {
	conn := s.db.Conn()
	rows, err := conn.QueryContext(ctx, `
SELECT id, user_id, name, created_at, updated_at
FROM habits
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	habits := []models.HabitWithEntries{}
	index := make(map[string]int)
	for rows.Next() {
		h, err := scanHabit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		index[h.ID] = len(habits)
		habits = append(habits, models.HabitWithEntries{Habit: *h, Entries: []models.Entry{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	entries, err := s.listEntries(ctx, conn, `
SELECT id, habit_id, user_id, entry_date, created_at
FROM habit_entries
WHERE user_id = ?
ORDER BY entry_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if i, ok := index[e.HabitID]; ok {
			habits[i].Entries = append(habits[i].Entries, e)
		}
	}

	s.logger.Debug().Str("user_id", userID).Int("habits", len(habits)).Int("entries", len(entries)).Msg("Listed habits")
	return habits, nil
}

// GetHabit returns one habit with its entries
func (s *HabitStore) GetHabit(ctx context.Context, userID, id string) (*models.HabitWithEntries, error) {
	conn := s.db.Conn()
	h, err := s.getHabit(ctx, conn, userID, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.listEntries(ctx, conn, `
SELECT id, habit_id, user_id, entry_date, created_at
FROM habit_entries
WHERE habit_id = ?
ORDER BY entry_date DESC`, id)
	if err != nil {
		return nil, err
	}
	return &models.HabitWithEntries{Habit: *h, Entries: entries}, nil
}

// CreateHabit stores a new habit for the user
func (s *HabitStore) CreateHabit(ctx context.Context, userID, name string) (*models.Habit, error) {
	if err := models.ValidateHabitName(name); err != nil {
		return nil, err
	}

	now := s.now()
	h := &models.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	_, err := s.db.Conn().ExecContext(ctx, `
INSERT INTO habits (id, user_id, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`, h.ID, h.UserID, h.Name, formatTimestamp(h.CreatedAt), formatTimestamp(h.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("habit_id", h.ID).Msg("Habit created")
	return h, nil
}

// RenameHabit changes the name of a habit
func (s *HabitStore) RenameHabit(ctx context.Context, userID, id, name string) (*models.Habit, error) {
	if err := models.ValidateHabitName(name); err != nil {
		return nil, err
	}

	var habit *models.Habit
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		h, err := s.getHabit(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		h.Name = name
		h.UpdatedAt = s.now().UTC()
		if _, err := tx.ExecContext(ctx, `
UPDATE habits SET name = ?, updated_at = ?
WHERE id = ? AND user_id = ?`, h.Name, formatTimestamp(h.UpdatedAt), id, userID); err != nil {
			return fmt.Errorf("failed to rename habit %s: %w", id, err)
		}
		habit = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// DeleteHabit removes a habit; its entries go with it
func (s *HabitStore) DeleteHabit(ctx context.Context, userID, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return habitNotFound(id)
	}
	s.logger.Info().Str("user_id", userID).Str("habit_id", id).Msg("Habit deleted")
	return nil
}

// ListEntries returns the entries of a habit, newest date first
func (s *HabitStore) ListEntries(ctx context.Context, userID, habitID string) ([]models.Entry, error) {
	conn := s.db.Conn()
	if _, err := s.getHabit(ctx, conn, userID, habitID); err != nil {
		return nil, err
	}
	return s.listEntries(ctx, conn, `
SELECT id, habit_id, user_id, entry_date, created_at
FROM habit_entries
WHERE habit_id = ?
ORDER BY entry_date DESC`, habitID)
}

func (s *HabitStore) insertEntry(ctx context.Context, q querier, userID, habitID string, date time.Time) (*models.Entry, error) {
	day := models.StartOfDay(date, s.loc)
	e := &models.Entry{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    userID,
		Date:      day,
		CreatedAt: s.now().UTC(),
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO habit_entries (id, habit_id, user_id, entry_date, created_at)
VALUES (?, ?, ?, ?, ?)`, e.ID, e.HabitID, e.UserID, models.DayKey(day, s.loc), formatTimestamp(e.CreatedAt))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("entry for %s on %s: %w", habitID, models.DayKey(day, s.loc), models.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return e, nil
}

// CreateEntry records the habit as done on date's calendar day. A second entry for
// the same day fails with models.ErrConflict.
func (s *HabitStore) CreateEntry(ctx context.Context, userID, habitID string, date time.Time) (*models.Entry, error) {
	var entry *models.Entry
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.getHabit(ctx, tx, userID, habitID); err != nil {
			return err
		}
		e, err := s.insertEntry(ctx, tx, userID, habitID, date)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("habit_id", habitID).Str("entry_id", entry.ID).Msg("Entry created")
	return entry, nil
}

// DeleteEntry removes a single entry of the habit
func (s *HabitStore) DeleteEntry(ctx context.Context, userID, habitID, entryID string) error {
	res, err := s.db.Conn().ExecContext(ctx, `
DELETE FROM habit_entries
WHERE id = ? AND habit_id = ? AND user_id = ?`, entryID, habitID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", entryID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %s: %w", entryID, models.ErrNotFound)
	}
	s.logger.Debug().Str("habit_id", habitID).Str("entry_id", entryID).Msg("Entry deleted")
	return nil
}

// ToggleEntry deletes the habit's entry on date's day if there is one, otherwise
// creates it. It runs in a single transaction. created reports which happened.
func (s *HabitStore) ToggleEntry(ctx context.Context, userID, habitID string, date time.Time) (entry *models.Entry, created bool, err error) {
	dayKey := models.DayKey(date, s.loc)
	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.getHabit(ctx, tx, userID, habitID); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `
SELECT id, habit_id, user_id, entry_date, created_at
FROM habit_entries
WHERE habit_id = ? AND entry_date = ?`, habitID, dayKey)
		existing, err := s.scanEntry(row.Scan)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			e, err := s.insertEntry(ctx, tx, userID, habitID, date)
			if err != nil {
				return err
			}
			entry, created = e, true
			return nil
		case err != nil:
			return fmt.Errorf("failed to look up entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM habit_entries WHERE id = ?`, existing.ID); err != nil {
			return fmt.Errorf("failed to delete entry %s: %w", existing.ID, err)
		}
		entry, created = existing, false
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	s.logger.Debug().Str("habit_id", habitID).Str("day", dayKey).Bool("created", created).Msg("Entry toggled")
	return entry, created, nil
}
