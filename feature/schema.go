package feature

import (
	"context"
	"database/sql"
)

const featuresSchema = `
CREATE TABLE IF NOT EXISTS features (
    id TEXT PRIMARY KEY,
    vector BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS feature_groups (
    grouping TEXT NOT NULL,
    label TEXT NOT NULL,
    id TEXT NOT NULL,
    PRIMARY KEY (grouping, id)
);
`

// DefaultTable is the table SQLiteStore keeps items in.
const DefaultTable = "features"

// EnsureSchema creates the features and feature_groups tables in the
// provided database if they do not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, featuresSchema)
	return err
}
