package feature

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore implements Store on top of a SQLite database. Items live in the
// features table, groupings in feature_groups.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed Store. It ensures the schema
// exists in the provided database.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("feature: db is nil")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// PutItems upserts items in a single transaction. Every item needs a
// non-empty identifier and vector.
func (s *SQLiteStore) PutItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO features(id, vector) VALUES(?, ?)
ON CONFLICT(id) DO UPDATE SET vector = excluded.vector`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("feature: item id must be set: %w", ErrInvalidInput)
		}
		if len(item.Vector) == 0 {
			return fmt.Errorf("feature: item %q has an empty vector: %w", item.ID, ErrInvalidInput)
		}
		blob, err := EncodeVector(item.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, item.ID, blob); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Items returns all stored items ordered by id.
func (s *SQLiteStore) Items(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vector FROM features ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("feature: item %q: %w", id, err)
		}
		out = append(out, Item{ID: id, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Item loads a single item by id.
func (s *SQLiteStore) Item(ctx context.Context, id string) (*Item, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM features WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &UnknownIdentifierError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	vec, err := DecodeVector(blob)
	if err != nil {
		return nil, err
	}
	return &Item{ID: id, Vector: vec}, nil
}

// Remove deletes an item and its group memberships.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("feature: Remove called with empty id: %w", ErrInvalidInput)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM features WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM feature_groups WHERE id = ?`, id)
	return err
}

// PutGrouping replaces every membership row of the named grouping.
func (s *SQLiteStore) PutGrouping(ctx context.Context, name string, g Grouping) error {
	if name == "" {
		return fmt.Errorf("feature: grouping name must be set: %w", ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_groups WHERE grouping = ?`, name); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO feature_groups(grouping, label, id) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, label := range g.Labels() {
		for _, id := range g[label] {
			if _, err := stmt.ExecContext(ctx, name, label, id); err != nil {
				return fmt.Errorf("feature: grouping %q label %q id %q: %w", name, label, id, err)
			}
		}
	}
	return tx.Commit()
}

// Grouping loads the named grouping; an unknown name yields an error wrapping
// ErrUnknownIdentifier.
func (s *SQLiteStore) Grouping(ctx context.Context, name string) (Grouping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, id FROM feature_groups WHERE grouping = ? ORDER BY label, id`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	g := Grouping{}
	for rows.Next() {
		var label, id string
		if err := rows.Scan(&label, &id); err != nil {
			return nil, err
		}
		g[label] = append(g[label], id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(g) == 0 {
		return nil, fmt.Errorf("feature: grouping %q: %w", name, ErrUnknownIdentifier)
	}
	return g, nil
}

// Groupings lists the stored grouping names.
func (s *SQLiteStore) Groupings(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT grouping FROM feature_groups ORDER BY grouping`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
