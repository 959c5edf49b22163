// Package vputil provides a file-oriented API over a feature table and its
// vptree virtual table. Feature extraction stays with the caller, supplied
// as an ExtractFunc.
package vputil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
)

// ExtractFunc computes the feature vector of the image at path.
//
// Implementations typically concatenate normalized colour and texture
// histograms; this module only depends on the numeric vector.
type ExtractFunc func(ctx context.Context, path string) ([]float32, error)

// ItemID derives the identifier of an image file: its base name.
func ItemID(path string) string {
	return filepath.Base(path)
}

// MatchVector runs a radius query against a vptree virtual table and returns
// the matches ordered by distance.
//
// Table names are interpolated into SQL; callers should ensure that
// virtualTable is trusted and not derived from untrusted input.
func MatchVector(ctx context.Context, db *sql.DB, virtualTable string, vec []float32, tau float64) ([]index.Match, error) {
	if db == nil {
		return nil, fmt.Errorf("vputil: db is nil")
	}
	if err := index.ValidateRadius(tau); err != nil {
		return nil, err
	}
	blob, err := feature.EncodeVector(vec)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("vputil: empty query vector: %w", feature.ErrInvalidInput)
	}
	q := fmt.Sprintf("SELECT id, distance FROM %s WHERE query MATCH ? AND radius = ?", strings.TrimSpace(virtualTable))
	rows, err := db.QueryContext(ctx, q, blob, tau)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []index.Match
	for rows.Next() {
		var m index.Match
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
