package vptab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	idxapi "github.com/viant/sqlite-vptree/index"
	"github.com/viant/sqlite-vptree/index/bruteforce"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/logging"
)

const defaultSource = feature.DefaultTable

// ensureStorage ensures the shared vptree_storage and lock tables exist.
func ensureStorage(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("vptree: db is nil")
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS vptree_storage (
    table_name TEXT PRIMARY KEY,
    "index"    BLOB
)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS vptree_storage_locks (
    table_name TEXT PRIMARY KEY,
    owner      TEXT NOT NULL,
    locked_at  INTEGER NOT NULL
)`)
	return err
}

// ensureTriggers installs triggers on the source table that delete the
// persisted tree and invalidate cached ones on any write.
func ensureTriggers(ctx context.Context, db *sql.DB, source string) error {
	base := sanitizeName("trg_vptree_" + source)
	lit := quoteLiteral(source)
	body := `DELETE FROM vptree_storage WHERE table_name = ` + lit + `; SELECT vptree_invalidate(` + lit + `);`
	for _, event := range []string{"INSERT", "UPDATE", "DELETE"} {
		stmt := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_%s AFTER %s ON %s BEGIN %s END;`,
			base, strings.ToLower(event[:3]), event, quoteIdent(source), body)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// loadItems reads every (id, vector) row of the source table ordered by id.
func loadItems(ctx context.Context, db *sql.DB, source string) ([]feature.Item, error) {
	q := fmt.Sprintf(`SELECT id, vector FROM %s WHERE vector IS NOT NULL ORDER BY id`, quoteIdent(source))
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []feature.Item
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		if len(blob) == 0 {
			continue
		}
		vec, err := feature.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("vptree: item %q: %w", id, err)
		}
		items = append(items, feature.Item{ID: id, Vector: vec})
	}
	return items, rows.Err()
}

func loadPersistedTree(ctx context.Context, db *sql.DB, source string, tree *vptree.Tree) (bool, error) {
	var blob []byte
	err := db.QueryRowContext(ctx, `SELECT "index" FROM vptree_storage WHERE table_name = ?`, source).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if len(blob) == 0 {
		return false, nil
	}
	// a blob written for another metric is rebuilt
	if err := tree.UnmarshalBinary(blob); err != nil {
		return false, nil
	}
	return true, nil
}

func persistTree(ctx context.Context, db *sql.DB, source string, tree *vptree.Tree) error {
	data, err := tree.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO vptree_storage(table_name, "index") VALUES(?, ?)`, source, data)
	return err
}

const (
	lockRetryDelay = 50 * time.Millisecond
	lockStaleAfter = 2 * time.Minute
)

var lockOwnerID = uuid.NewString()

// acquireBuildLock serializes tree builds for source across processes
// sharing the database file. Locks older than lockStaleAfter are taken over.
func acquireBuildLock(ctx context.Context, db *sql.DB, source string) (func(), error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now := time.Now().Unix()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO vptree_storage_locks(table_name, owner, locked_at) VALUES(?, ?, ?)`, source, lockOwnerID, now); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		var owner string
		var lockedAt int64
		if err := tx.QueryRowContext(ctx, `SELECT owner, locked_at FROM vptree_storage_locks WHERE table_name = ?`, source).Scan(&owner, &lockedAt); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if owner != lockOwnerID && lockedAt <= time.Now().Add(-lockStaleAfter).Unix() {
			res, err := tx.ExecContext(ctx, `UPDATE vptree_storage_locks SET owner = ?, locked_at = ? WHERE table_name = ? AND locked_at = ?`, lockOwnerID, now, source, lockedAt)
			if err != nil {
				_ = tx.Rollback()
				return nil, err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				owner = lockOwnerID
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		if owner == lockOwnerID {
			return func() {
				_, _ = db.ExecContext(context.Background(), `DELETE FROM vptree_storage_locks WHERE table_name = ? AND owner = ?`, source, lockOwnerID)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}

// buildIndex loads the source items and builds the index of the given kind.
// Trees are persisted in vptree_storage.
func buildIndex(ctx context.Context, db *sql.DB, source, kind string, metric distance.Metric, opts []vptree.Option) (idxapi.Index, error) {
	items, err := loadItems(ctx, db, source)
	if err != nil {
		return nil, err
	}
	if kind == kindBrute {
		bf := bruteforce.New(metric)
		if err := bf.Build(items); err != nil {
			return nil, err
		}
		return bf, nil
	}
	tree := vptree.New(metric, opts...)
	if err := tree.Build(items); err != nil {
		return nil, err
	}
	if err := persistTree(ctx, db, source, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Reindex rebuilds the tree over source, persists it and drops cached
// copies. It returns the number of indexed items.
func Reindex(ctx context.Context, db *sql.DB, source string, metric distance.Metric, opts ...vptree.Option) (int, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("vptree: source table is required: %w", feature.ErrInvalidInput)
	}
	if err := ensureStorage(ctx, db); err != nil {
		return 0, err
	}
	unlock, err := acquireBuildLock(ctx, db, source)
	if err != nil {
		return 0, err
	}
	defer unlock()
	idx, err := buildIndex(ctx, db, source, kindTree, metric, opts)
	if err != nil {
		return 0, err
	}
	InvalidateCache(source)
	return idx.Len(), nil
}

// ReindexLogged wraps Reindex with a log record.
func ReindexLogged(ctx context.Context, logger *logging.Logger, db *sql.DB, source string, metric distance.Metric, opts ...vptree.Option) (int, error) {
	n, err := Reindex(ctx, db, source, metric, opts...)
	logging.OrNoop(logger).LogReindex(ctx, source, n, err)
	return n, err
}

func resolveDbPath(ctx context.Context, db *sql.DB, dbName string) (string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, file FROM pragma_database_list`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	if dbName == "" {
		dbName = "main"
	}
	for rows.Next() {
		var name, file string
		if err := rows.Scan(&name, &file); err != nil {
			return "", err
		}
		if name == dbName {
			if file == "" {
				return name, nil
			}
			return file, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return dbName, nil
}

// sanitizeName converts a qualified name into a safe identifier for triggers.
func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '.', '-', ' ', '"', '\'':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// quoteLiteral returns SQL string literal with single quotes escaped for safe embedding.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent quotes each part of a possibly schema-qualified identifier.
func quoteIdent(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
