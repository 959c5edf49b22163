package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
)

func clusteredItems() ([]feature.Item, feature.Grouping) {
	items := []feature.Item{
		{ID: "a1", Vector: []float32{0, 0}},
		{ID: "a2", Vector: []float32{0.1, 0}},
		{ID: "a3", Vector: []float32{0, 0.1}},
		{ID: "b1", Vector: []float32{5, 5}},
		{ID: "b2", Vector: []float32{5.2, 5}},
		{ID: "c", Vector: []float32{10, 10}},
	}
	grouping := feature.Grouping{
		"a": {"a1", "a2", "a3"},
		"b": {"b1", "b2"},
	}
	return items, grouping
}

func TestScore(t *testing.T) {
	s := Score(2, 4, 2)
	assert.InDelta(t, 0.5, s.Precision, 1e-12)
	assert.InDelta(t, 1.0, s.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.F1, 1e-12)

	assert.Equal(t, Scores{}, Score(0, 0, 0))
	assert.Equal(t, Scores{}, Score(0, 3, 2))
}

func TestRelevanceScore(t *testing.T) {
	items, grouping := clusteredItems()
	ids := feature.IDs(items)

	rel, err := newRelevance(ids, grouping, false)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, rel.queries())
	assert.False(t, rel.clustered(5))

	got := rel.score(0, rel.bitmap([]string{"a1", "a2", "a3"}))
	assert.Equal(t, Scores{Precision: 1, Recall: 1, F1: 1}, got)

	got = rel.score(0, rel.bitmap([]string{"a1", "a2", "b1"}))
	assert.InDelta(t, 0.5, got.Precision, 1e-12)
	assert.InDelta(t, 0.5, got.Recall, 1e-12)

	withSelf, err := newRelevance(ids, grouping, true)
	require.NoError(t, err)
	got = withSelf.score(0, withSelf.bitmap([]string{"a1"}))
	assert.InDelta(t, 1.0, got.Precision, 1e-12)
	assert.InDelta(t, 1.0/3.0, got.Recall, 1e-12)

	_, err = newRelevance(ids, feature.Grouping{"x": {"missing"}}, false)
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	items, grouping := clusteredItems()
	cfg := DefaultConfig()
	cfg.Tau = 0.5
	cfg.Trials = 3
	cfg.Seed = 42

	report, err := Run(context.Background(), items, grouping, distance.Euclidean{N: 2}, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 6, report.Items)
	require.Len(t, report.Trials, 3)
	for i, trial := range report.Trials {
		assert.Equal(t, i+1, trial.Trial)
		assert.Equal(t, int64(42+i), trial.Seed)
		assert.Equal(t, 6, trial.Stats.Nodes)
		assert.InDelta(t, 1.0, trial.F1, 1e-12)
		assert.LessOrEqual(t, trial.AvgComparisons, 6.0)
	}
	assert.InDelta(t, 6.0, report.Exhaustive.AvgComparisons, 1e-12)
	assert.InDelta(t, 0.0, report.Exhaustive.StdComparisons, 1e-12)
	assert.InDelta(t, 1.0, report.Exhaustive.F1, 1e-12)
	assert.InDelta(t, 1.0, report.Tree.F1, 1e-12)
	assert.InDelta(t, 1.0, report.Tree.Precision, 1e-12)
	assert.GreaterOrEqual(t, report.ComparisonSpeedup, 1.0)
}

func TestRunInvalid(t *testing.T) {
	items, grouping := clusteredItems()
	metric := distance.Euclidean{N: 2}

	cfg := DefaultConfig()
	cfg.Trials = 0
	_, err := Run(context.Background(), items, grouping, metric, cfg)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))

	cfg = DefaultConfig()
	cfg.Tau = -1
	_, err = Run(context.Background(), items, grouping, metric, cfg)
	require.Error(t, err)

	_, err = Run(context.Background(), items, feature.Grouping{"x": {"nope"}}, metric, DefaultConfig())
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, items, grouping, metric, DefaultConfig())
	require.Error(t, err)
}

func TestDistanceMatrix(t *testing.T) {
	items, _ := clusteredItems()
	m, err := DistanceMatrix(context.Background(), items, distance.Euclidean{N: 2}, 2)
	require.NoError(t, err)
	require.Len(t, m.Rows, 6)
	for i := range items {
		assert.Equal(t, 0.0, m.At(i, i))
		for j := range items {
			assert.Equal(t, m.At(i, j), m.At(j, i))
		}
	}
	assert.InDelta(t, 0.1, m.At(0, 1), 1e-6)
	assert.Equal(t, feature.IDs(items), m.IDs)
}

func TestRadii(t *testing.T) {
	radii, err := Radii(0, 0.3, 0.1)
	require.NoError(t, err)
	require.Len(t, radii, 3)
	assert.InDelta(t, 0.2, radii[2], 1e-12)

	radii, err = Radii(0.5, 0.5, 0.1)
	require.NoError(t, err)
	assert.Empty(t, radii)

	_, err = Radii(0, 1, 0)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))
	_, err = Radii(-1, 1, 0.1)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))
}

func TestSweep(t *testing.T) {
	items, grouping := clusteredItems()
	m, err := DistanceMatrix(context.Background(), items, distance.Euclidean{N: 2}, 0)
	require.NoError(t, err)

	report, err := Sweep(m, grouping, 0, 1, 0.25, false)
	require.NoError(t, err)
	require.Len(t, report.Points, 4)
	assert.Equal(t, Scores{}, report.Points[0].Scores)
	assert.InDelta(t, 0.25, report.Best.Tau, 1e-12)
	assert.InDelta(t, 1.0, report.Best.F1, 1e-12)

	_, err = Sweep(m, grouping, 1, 1, 0.25, false)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))
}
