package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a migrated database in a temporary directory
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(NewDefaultOptions(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateDatabase())
	return db
}

func TestDBClose(t *testing.T) {
	db, err := New(NewDefaultOptions(filepath.Join(t.TempDir(), "close.db")))
	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	assert.NoError(t, err)

	// Verify connection is closed by trying to ping
	err = db.conn.Ping()
	assert.Error(t, err)
}

// TestPragmaSettings verifies that the DSN pragmas are in effect on the connection
func TestPragmaSettings(t *testing.T) {
	testCases := []struct {
		name            string
		opts            func(path string) SQLiteOptions
		expectedJournal string
		expectedBusy    int
		expectedCache   int
		expectedFK      int // 0 for false, 1 for true
		expectedSync    int // 0=OFF, 1=NORMAL, 2=FULL, 3=EXTRA
	}{
		{
			name:            "Default Options",
			opts:            NewDefaultOptions,
			expectedJournal: "wal",
			expectedBusy:    5000,
			expectedCache:   2000,
			expectedFK:      1,
			expectedSync:    1,
		},
		{
			name: "Custom Options",
			opts: func(path string) SQLiteOptions {
				return SQLiteOptions{
					Path:        path,
					Journal:     JournalDelete,
					BusyTimeout: 12345,
					CacheSize:   -4000,
					ForeignKeys: false,
					Synchronous: SynchronousFull,
				}
			},
			expectedJournal: "delete",
			expectedBusy:    12345,
			expectedCache:   -4000,
			expectedFK:      0,
			expectedSync:    2,
		},
		{
			name: "Custom Options KB Cache",
			opts: func(path string) SQLiteOptions {
				return SQLiteOptions{
					Path:        path,
					Journal:     JournalMemory,
					BusyTimeout: 999,
					CacheSize:   8000,
					ForeignKeys: true,
					Synchronous: SynchronousOff,
				}
			},
			expectedJournal: "memory",
			expectedBusy:    999,
			expectedCache:   8000,
			expectedFK:      1,
			expectedSync:    0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, err := New(tc.opts(filepath.Join(t.TempDir(), "pragma.db")))
			require.NoError(t, err, "Failed to create DB connection")
			defer db.Close()

			var journalMode string
			require.NoError(t, db.conn.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
			assert.Equal(t, tc.expectedJournal, journalMode, "Unexpected journal_mode")

			var busyTimeout int
			require.NoError(t, db.conn.QueryRow("PRAGMA busy_timeout;").Scan(&busyTimeout))
			assert.Equal(t, tc.expectedBusy, busyTimeout, "Unexpected busy_timeout")

			var cacheSize int
			require.NoError(t, db.conn.QueryRow("PRAGMA cache_size;").Scan(&cacheSize))
			assert.Equal(t, tc.expectedCache, cacheSize, "Unexpected cache_size")

			var foreignKeys int
			require.NoError(t, db.conn.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeys))
			assert.Equal(t, tc.expectedFK, foreignKeys, "Unexpected foreign_keys setting")

			var synchronous int
			require.NoError(t, db.conn.QueryRow("PRAGMA synchronous;").Scan(&synchronous))
			assert.Equal(t, tc.expectedSync, synchronous, "Unexpected synchronous setting")
		})
	}
}

func TestMigrateDatabase(t *testing.T) {
	db := setupTestDB(t)

	version, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	for _, table := range []string{"habits", "habit_entries", "sessions"} {
		var name string
		err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}

	// Running again is a no-op
	require.NoError(t, db.MigrateDatabase())
}

func insertHabitRow(ctx context.Context, tx *sql.Tx, id, name string) error {
	now := formatTimestamp(time.Now())
	_, err := tx.ExecContext(ctx, `
INSERT INTO habits (id, user_id, name, created_at, updated_at)
VALUES (?, 'tx-user', ?, ?, ?)`, id, name, now, now)
	return err
}

func countHabits(t *testing.T, db *DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM habits WHERE user_id = 'tx-user'").Scan(&count))
	return count
}

// TestWithTransaction tests the transaction functionality
func TestWithTransaction(t *testing.T) {
	db := setupTestDB(t)

	t.Run("Successful Transaction", func(t *testing.T) {
		ctx := context.Background()
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return insertHabitRow(ctx, tx, "commit-1", "Committed")
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, countHabits(t, db))
	})

	t.Run("Transaction Rollback on Error", func(t *testing.T) {
		ctx := context.Background()
		countBefore := countHabits(t, db)

		testError := errors.New("test error")
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := insertHabitRow(ctx, tx, "rollback-1", "Rolled back"); err != nil {
				return err
			}
			return testError
		})

		assert.Equal(t, testError, err)
		assert.Equal(t, countBefore, countHabits(t, db))
	})

	t.Run("Transaction Rollback on Panic", func(t *testing.T) {
		ctx := context.Background()
		countBefore := countHabits(t, db)

		assert.Panics(t, func() {
			_ = db.WithTransaction(ctx, func(tx *sql.Tx) error {
				if err := insertHabitRow(ctx, tx, "panic-1", "Panicked"); err != nil {
					return err
				}
				panic("test panic")
			})
		})

		assert.Equal(t, countBefore, countHabits(t, db))
	})

	t.Run("Check Constraint Rolls Back", func(t *testing.T) {
		ctx := context.Background()
		countBefore := countHabits(t, db)

		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := insertHabitRow(ctx, tx, "ok-1", "Fine"); err != nil {
				return err
			}
			return insertHabitRow(ctx, tx, "empty-1", "")
		})

		assert.Error(t, err)
		assert.Equal(t, countBefore, countHabits(t, db))
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return insertHabitRow(ctx, tx, "cancel-1", "Cancelled")
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "context")
	})
}
