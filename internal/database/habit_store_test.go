package database

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHabitStore(t *testing.T) *HabitStore {
	t.Helper()
	return NewHabitStore(setupTestDB(t), time.UTC)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestHabitStore_CreateAndList(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	store.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	first, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)
	second, err := store.CreateHabit(ctx, "user-1", "Exercise")
	require.NoError(t, err)
	_, err = store.CreateHabit(ctx, "user-2", "Other user")
	require.NoError(t, err)

	habits, err := store.ListHabits(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, second.ID, habits[0].ID, "newest habit first")
	assert.Equal(t, first.ID, habits[1].ID)
	assert.Equal(t, first.CreatedAt, habits[1].CreatedAt)
	for _, h := range habits {
		assert.NotNil(t, h.Entries)
		assert.Empty(t, h.Entries)
	}

	empty, err := store.ListHabits(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestHabitStore_CreateValidation(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	testCases := []struct {
		name      string
		habitName string
		valid     bool
	}{
		{"empty", "", false},
		{"fifty one characters", strings.Repeat("a", 51), false},
		{"fifty characters", strings.Repeat("a", 50), true},
		{"fifty multibyte characters", strings.Repeat("ü", 50), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := store.CreateHabit(ctx, "user-1", tc.habitName)
			if !tc.valid {
				assert.ErrorIs(t, err, models.ErrValidation)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.habitName, h.Name)
		})
	}
}

func TestHabitStore_GetHabitOwnership(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)

	got, err := store.GetHabit(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", got.Name)

	_, err = store.GetHabit(ctx, "user-2", h.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetHabit(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHabitStore_RenameHabit(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)

	renamed, err := store.RenameHabit(ctx, "user-1", h.ID, "Read books")
	require.NoError(t, err)
	assert.Equal(t, "Read books", renamed.Name)
	assert.Equal(t, h.CreatedAt, renamed.CreatedAt)

	got, err := store.GetHabit(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read books", got.Name)

	_, err = store.RenameHabit(ctx, "user-2", h.ID, "Stolen")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.RenameHabit(ctx, "user-1", h.ID, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestHabitStore_DeleteCascadesEntries(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)
	_, err = store.CreateEntry(ctx, "user-1", h.ID, mustDate(t, "2024-01-01"))
	require.NoError(t, err)

	assert.ErrorIs(t, store.DeleteHabit(ctx, "user-2", h.ID), models.ErrNotFound)
	require.NoError(t, store.DeleteHabit(ctx, "user-1", h.ID))
	assert.ErrorIs(t, store.DeleteHabit(ctx, "user-1", h.ID), models.ErrNotFound)

	var count int
	require.NoError(t, store.db.Conn().QueryRow(`SELECT COUNT(*) FROM habit_entries WHERE habit_id = ?`, h.ID).Scan(&count))
	assert.Equal(t, 0, count, "entries are deleted with their habit")
}

func TestHabitStore_Entries(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)

	t.Run("Create normalizes to start of day", func(t *testing.T) {
		e, err := store.CreateEntry(ctx, "user-1", h.ID, time.Date(2024, 1, 2, 17, 30, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, mustDate(t, "2024-01-02"), e.Date)
		assert.Equal(t, "user-1", e.UserID)
		assert.Equal(t, h.ID, e.HabitID)
	})

	t.Run("Duplicate day conflicts", func(t *testing.T) {
		_, err := store.CreateEntry(ctx, "user-1", h.ID, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("Other user's habit is not found", func(t *testing.T) {
		_, err := store.CreateEntry(ctx, "user-2", h.ID, mustDate(t, "2024-01-03"))
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = store.ListEntries(ctx, "user-2", h.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("List newest date first", func(t *testing.T) {
		_, err := store.CreateEntry(ctx, "user-1", h.ID, mustDate(t, "2023-12-31"))
		require.NoError(t, err)
		_, err = store.CreateEntry(ctx, "user-1", h.ID, mustDate(t, "2024-01-05"))
		require.NoError(t, err)

		entries, err := store.ListEntries(ctx, "user-1", h.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, mustDate(t, "2024-01-05"), entries[0].Date)
		assert.Equal(t, mustDate(t, "2024-01-02"), entries[1].Date)
		assert.Equal(t, mustDate(t, "2023-12-31"), entries[2].Date)

		habits, err := store.ListHabits(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, habits, 1)
		assert.Equal(t, entries, habits[0].Entries)
	})

	t.Run("Delete", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, "user-1", h.ID)
		require.NoError(t, err)
		target := entries[0]

		assert.ErrorIs(t, store.DeleteEntry(ctx, "user-2", h.ID, target.ID), models.ErrNotFound)
		require.NoError(t, store.DeleteEntry(ctx, "user-1", h.ID, target.ID))
		assert.ErrorIs(t, store.DeleteEntry(ctx, "user-1", h.ID, target.ID), models.ErrNotFound)

		after, err := store.ListEntries(ctx, "user-1", h.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(entries)-1)
	})
}

func TestHabitStore_ReferenceTimezone(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	store := NewHabitStore(setupTestDB(t), auckland)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)

	// 20:00 UTC on June 1st is June 2nd in Auckland
	e, err := store.CreateEntry(ctx, "user-1", h.ID, time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, auckland), e.Date)

	entries, err := store.ListEntries(ctx, "user-1", h.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, e.Date.Equal(entries[0].Date))
}

func TestHabitStore_ToggleEntry(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)
	day := mustDate(t, "2024-02-29")

	entry, created, err := store.ToggleEntry(ctx, "user-1", h.ID, day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, day, entry.Date)

	removed, created, err := store.ToggleEntry(ctx, "user-1", h.ID, day)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, entry.ID, removed.ID)

	entries, err := store.ListEntries(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, _, err = store.ToggleEntry(ctx, "user-2", h.ID, day)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHabitStore_ConcurrentCreateKeepsOneEntry(t *testing.T) {
	store := setupHabitStore(t)
	ctx := context.Background()

	h, err := store.CreateHabit(ctx, "user-1", "Read")
	require.NoError(t, err)

	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CreateEntry(ctx, "user-1", h.ID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	entries, err := store.ListEntries(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
