package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// BusyTimeout is how long a connection waits on a locked feature database
// before failing.
const BusyTimeout = 5 * time.Second

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./features.db". For in-memory
// databases, pass ":memory:".
func Open(dsn string) (*sql.DB, error) { return sql.Open("sqlite", dsn) }

// OpenContext opens dsn and prepares it for the vptree module. File
// databases switch to WAL journaling with a busy timeout so readers of the
// virtual table do not block a rebuild. An in-memory database is private to
// one connection, so the pool is capped at one.
func OpenContext(ctx context.Context, dsn string) (*sql.DB, error) {
	if isMemory(dsn) {
		db, err := Open(dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, db.PingContext(ctx)
	}
	// busy_timeout is per connection, so it travels in the DSN.
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := Open(fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, BusyTimeout.Milliseconds()))
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: journal_mode: %w", err)
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
