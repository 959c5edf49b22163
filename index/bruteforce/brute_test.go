package bruteforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
)

func TestIndex_Range(t *testing.T) {
	idx := New(distance.Euclidean{N: 2})
	require.NoError(t, idx.Build([]feature.Item{
		{ID: "a", Vector: []float32{0, 0}},
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{0, 3}},
		{ID: "d", Vector: []float32{5, 5}},
	}))

	testCases := []struct {
		description string
		query       []float32
		tau         float64
		expect      []string
	}{
		{description: "zero radius", query: []float32{0, 0}, tau: 0, expect: []string{"a"}},
		{description: "unit radius", query: []float32{0, 0}, tau: 1, expect: []string{"a", "b"}},
		{description: "wide radius", query: []float32{0, 0}, tau: 3, expect: []string{"a", "b", "c"}},
		{description: "nothing", query: []float32{20, 20}, tau: 1},
	}
	for _, tc := range testCases {
		res, err := idx.Range(context.Background(), tc.query, tc.tau)
		require.NoError(t, err, tc.description)
		assert.Equal(t, 4, res.Comparisons, tc.description)
		res.SortByDistance()
		assert.ElementsMatch(t, tc.expect, res.IDs(), tc.description)
	}
}

func TestIndex_Invalid(t *testing.T) {
	idx := New(distance.Euclidean{})
	require.NoError(t, idx.Build([]feature.Item{{ID: "a", Vector: []float32{0, 0}}}))

	_, err := idx.Range(context.Background(), []float32{0, 0}, -1)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))
	_, err = idx.Range(context.Background(), []float32{0, 0, 0}, 1)
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))

	err = idx.Build([]feature.Item{{ID: "a", Vector: []float32{0}}, {ID: "a", Vector: []float32{1}}})
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))
	err = idx.Build([]feature.Item{{ID: "a", Vector: []float32{0}}, {ID: "b", Vector: []float32{1, 2}}})
	assert.True(t, errors.Is(err, feature.ErrInvalidInput))
	assert.Equal(t, 1, idx.Len(), "failed build keeps previous content")
}

func TestIndex_Empty(t *testing.T) {
	idx := New(distance.Euclidean{})
	require.NoError(t, idx.Build(nil))
	res, err := idx.Range(context.Background(), []float32{1, 2}, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, 0, res.Comparisons)
}

func TestIndex_MarshalBinary(t *testing.T) {
	idx := New(distance.Euclidean{})
	require.NoError(t, idx.Build([]feature.Item{
		{ID: "a", Vector: []float32{0, 0.5}},
		{ID: "bb", Vector: []float32{1, -2}},
	}))
	data, err := idx.MarshalBinary()
	require.NoError(t, err)

	restored := New(distance.Euclidean{})
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, 2, restored.Len())
	res, err := restored.Range(context.Background(), []float32{1, -2}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bb"}, res.IDs())

	assert.Error(t, restored.UnmarshalBinary(data[:len(data)-3]))
}

func TestIndex_Cancelled(t *testing.T) {
	idx := New(distance.Euclidean{})
	require.NoError(t, idx.Build([]feature.Item{{ID: "a", Vector: []float32{0}}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Range(ctx, []float32{0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
