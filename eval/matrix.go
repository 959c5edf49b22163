package eval

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index"
)

// Matrix holds pairwise distances between items, row i and column j
// addressing IDs[i] and IDs[j].
type Matrix struct {
	IDs  []string
	Rows [][]float64
}

// At returns the distance between items i and j.
func (m *Matrix) At(i, j int) float64 { return m.Rows[i][j] }

// DistanceMatrix evaluates metric over every pair of items. Rows are filled
// concurrently over the upper triangle and mirrored.
func DistanceMatrix(ctx context.Context, items []feature.Item, metric distance.Metric, parallelism int) (*Matrix, error) {
	if _, err := index.ValidateItems(items, metric); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	n := len(items)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < n; j++ {
				rows[i][j] = metric.Distance(items[i].Vector, items[j].Vector)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rows[j][i] = rows[i][j]
		}
	}
	return &Matrix{IDs: feature.IDs(items), Rows: rows}, nil
}
