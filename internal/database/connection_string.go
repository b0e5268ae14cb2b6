package database

import (
	"fmt"
	"net/url"
	"strings"
)

// buildConnectionString generates a modernc.org/sqlite DSN from options.
// Pragmas are encoded as repeated _pragma=name(value) parameters and applied by the
// driver, in order, on every new connection. busy_timeout comes first so that the
// journal_mode switch already waits on a locked database.
func (opts *SQLiteOptions) buildConnectionString() string {
	params := url.Values{}

	if opts.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout))
	}
	if opts.Journal != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", opts.Journal))
	}
	if opts.ForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	} else {
		params.Add("_pragma", "foreign_keys(0)")
	}
	if opts.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", opts.Synchronous))
	}
	if opts.CacheSize != 0 {
		params.Add("_pragma", fmt.Sprintf("cache_size(%d)", opts.CacheSize))
	}
	if opts.LockingMode != "" {
		params.Add("_pragma", fmt.Sprintf("locking_mode(%s)", opts.LockingMode))
	}
	if opts.AutoVacuum != "" {
		params.Add("_pragma", fmt.Sprintf("auto_vacuum(%s)", opts.AutoVacuum))
	}

	if opts.TxLock != "" {
		params.Set("_txlock", string(opts.TxLock))
	}
	if opts.Cache != "" {
		params.Set("cache", string(opts.Cache))
	}
	if opts.Immutable {
		params.Set("immutable", "1")
	}
	if opts.Mode != "" {
		params.Set("mode", opts.Mode)
	}

	// Build the final connection string
	connStr := opts.Path
	if !strings.HasPrefix(connStr, "file:") {
		connStr = "file:" + connStr
	}
	if encoded := params.Encode(); encoded != "" {
		connStr += "?" + encoded
	}

	return connStr
}
