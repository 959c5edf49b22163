package vputil

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
)

// DefaultParallelism bounds concurrent ExtractFunc calls in UpsertFiles.
const DefaultParallelism = 4

// Index ties a feature store, its vptree virtual table and an extractor
// together.
type Index struct {
	Store       *feature.SQLiteStore
	Table       string
	Extract     ExtractFunc
	Parallelism int
}

// NewIndex constructs an Index for the given vptree virtual table. The
// caller is responsible for having created the virtual table.
func NewIndex(store *feature.SQLiteStore, virtualTable string, extract ExtractFunc) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("vputil: store is nil")
	}
	if extract == nil {
		return nil, fmt.Errorf("vputil: ExtractFunc is nil")
	}
	return &Index{Store: store, Table: virtualTable, Extract: extract, Parallelism: DefaultParallelism}, nil
}

// UpsertFiles extracts features from every path and upserts them in one
// transaction, keyed by ItemID. Triggers installed by the vptree module
// invalidate the persisted tree, so the next MATCH rebuilds it.
func (ix *Index) UpsertFiles(ctx context.Context, paths []string) ([]feature.Item, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	items := make([]feature.Item, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	limit := ix.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			vec, err := ix.Extract(gctx, path)
			if err != nil {
				return fmt.Errorf("vputil: extract %s: %w", path, err)
			}
			items[i] = feature.Item{ID: ItemID(path), Vector: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ix.Store.PutItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItems removes items with the given ids.
func (ix *Index) DeleteItems(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := ix.Store.Remove(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// QueryFile extracts the features of the image at path and returns every
// stored item within tau of it, ordered by distance.
func (ix *Index) QueryFile(ctx context.Context, path string, tau float64) ([]index.Match, error) {
	vec, err := ix.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("vputil: extract %s: %w", path, err)
	}
	return MatchVector(ctx, ix.Store.DB(), ix.Table, vec, tau)
}
