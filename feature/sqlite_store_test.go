package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/engine"
	"github.com/viant/sqlite-vptree/feature"
)

func newStore(t *testing.T) *feature.SQLiteStore {
	t.Helper()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	store, err := feature.NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func TestSQLiteStore_PutItemsRemove(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	items := []feature.Item{
		{ID: "b", Vector: []float32{0.5, 0.5}},
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{0, 1}},
	}
	require.NoError(t, store.PutItems(ctx, items))

	got, err := store.Items(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, feature.IDs(got))
	assert.Equal(t, []float32{1, 0}, got[0].Vector)

	// Upsert replaces the vector.
	require.NoError(t, store.PutItems(ctx, []feature.Item{{ID: "a", Vector: []float32{0.25, 0.75}}}))
	item, err := store.Item(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.75}, item.Vector)

	require.NoError(t, store.Remove(ctx, "b"))
	_, err = store.Item(ctx, "b")
	assert.ErrorIs(t, err, feature.ErrUnknownIdentifier)

	got, err = store.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, feature.IDs(got))
}

func TestSQLiteStore_PutItemsInvalid(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.PutItems(ctx, []feature.Item{{ID: "", Vector: []float32{1}}})
	assert.ErrorIs(t, err, feature.ErrInvalidInput)
	err = store.PutItems(ctx, []feature.Item{{ID: "x"}})
	assert.ErrorIs(t, err, feature.ErrInvalidInput)

	got, err := store.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_Groupings(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	g := feature.Grouping{"0": {"a", "b"}, "1": {"c"}}
	require.NoError(t, store.PutGrouping(ctx, "k_means_clusters", g))
	require.NoError(t, store.PutGrouping(ctx, "dbscan_clusters", feature.Grouping{"0": {"a"}}))

	loaded, err := store.Grouping(ctx, "k_means_clusters")
	require.NoError(t, err)
	assert.Equal(t, g, loaded)

	names, err := store.Groupings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dbscan_clusters", "k_means_clusters"}, names)

	_, err = store.Grouping(ctx, "missing")
	assert.ErrorIs(t, err, feature.ErrUnknownIdentifier)

	// Replacing a grouping drops the old rows.
	require.NoError(t, store.PutGrouping(ctx, "k_means_clusters", feature.Grouping{"7": {"c"}}))
	loaded, err = store.Grouping(ctx, "k_means_clusters")
	require.NoError(t, err)
	assert.Equal(t, feature.Grouping{"7": {"c"}}, loaded)
}
