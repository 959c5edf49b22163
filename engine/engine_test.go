package engine

import (
	"context"
	"path/filepath"
	"testing"
)

// TestOpenInMemory verifies that a single in-memory database survives across
// statements issued through the pool.
func TestOpenInMemory(t *testing.T) {
	db, err := OpenContext(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenContext(:memory:) failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE features(id TEXT PRIMARY KEY, vector BLOB)"); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO features(id) VALUES ('a'),('b'),('c')"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM features").Scan(&n); err != nil {
		t.Fatalf("COUNT failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestOpenFileUsesWAL(t *testing.T) {
	db, err := OpenContext(context.Background(), filepath.Join(t.TempDir(), "features.db"))
	if err != nil {
		t.Fatalf("OpenContext failed: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode failed: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}
