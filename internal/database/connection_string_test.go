package database

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDSN(t *testing.T, dsn string) (string, url.Values) {
	t.Helper()
	path, query, _ := strings.Cut(dsn, "?")
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	return path, values
}

func TestBuildConnectionString_PathHandling(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "plain path",
			path:     "test.db",
			expected: "file:test.db",
		},
		{
			name:     "path with file prefix",
			path:     "file:test.db",
			expected: "file:test.db",
		},
		{
			name:     "memory database",
			path:     ":memory:",
			expected: "file::memory:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := SQLiteOptions{Path: tt.path}
			path, _ := parseDSN(t, opts.buildConnectionString())
			assert.Equal(t, tt.expected, path)
		})
	}
}

func TestBuildConnectionString_DefaultOptions(t *testing.T) {
	opts := NewDefaultOptions("test.db")
	path, values := parseDSN(t, opts.buildConnectionString())

	assert.Equal(t, "file:test.db", path)
	assert.Equal(t, []string{
		"busy_timeout(5000)",
		"journal_mode(WAL)",
		"foreign_keys(1)",
		"synchronous(NORMAL)",
		"cache_size(2000)",
	}, values["_pragma"], "pragmas keep their order, busy_timeout first")
	assert.Equal(t, "immediate", values.Get("_txlock"))
	assert.Equal(t, "private", values.Get("cache"))
	assert.Equal(t, "rwc", values.Get("mode"))
	assert.Empty(t, values.Get("immutable"))
}

func TestBuildConnectionString_Options(t *testing.T) {
	tests := []struct {
		name            string
		opts            SQLiteOptions
		expectedPragmas []string
		expectedParams  map[string]string
	}{
		{
			name:            "foreign keys always set",
			opts:            SQLiteOptions{Path: "test.db"},
			expectedPragmas: []string{"foreign_keys(0)"},
		},
		{
			name: "locking and vacuum",
			opts: SQLiteOptions{
				Path:        "locked.db",
				ForeignKeys: true,
				LockingMode: LockingExclusive,
				AutoVacuum:  "incremental",
				TxLock:      TxLockExclusive,
			},
			expectedPragmas: []string{"foreign_keys(1)", "locking_mode(EXCLUSIVE)", "auto_vacuum(incremental)"},
			expectedParams:  map[string]string{"_txlock": "exclusive"},
		},
		{
			name: "negative cache size and immutable",
			opts: SQLiteOptions{
				Path:      "ro.db",
				CacheSize: -4000,
				Immutable: true,
				Mode:      "ro",
			},
			expectedPragmas: []string{"foreign_keys(0)", "cache_size(-4000)"},
			expectedParams:  map[string]string{"immutable": "1", "mode": "ro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, values := parseDSN(t, tt.opts.buildConnectionString())
			assert.Equal(t, tt.expectedPragmas, values["_pragma"])
			for k, v := range tt.expectedParams {
				assert.Equal(t, v, values.Get(k), "parameter %s", k)
			}
		})
	}
}
