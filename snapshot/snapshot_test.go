package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/distance"
	"github.com/viant/sqlite-vptree/feature"
	"github.com/viant/sqlite-vptree/index/vptree"
	"github.com/viant/sqlite-vptree/internal/compress"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "trees/missing.vpt")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Put(ctx, "trees/a.vpt", []byte("one")))
	require.NoError(t, store.Put(ctx, "trees/b.vpt", []byte("two")))
	require.NoError(t, store.Put(ctx, "other.vpt", []byte("three")))
	require.NoError(t, store.Put(ctx, "trees/a.vpt", []byte("uno")))

	data, err := store.Get(ctx, "trees/a.vpt")
	require.NoError(t, err)
	assert.Equal(t, "uno", string(data))

	names, err := store.List(ctx, "trees/")
	require.NoError(t, err)
	assert.Equal(t, []string{"trees/a.vpt", "trees/b.vpt"}, names)

	require.NoError(t, store.Delete(ctx, "trees/a.vpt"))
	require.NoError(t, store.Delete(ctx, "trees/a.vpt"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"other.vpt", "trees/b.vpt"}, names)
}

func TestLocal(t *testing.T) {
	exerciseStore(t, NewLocal(t.TempDir()))

	store := NewLocal(t.TempDir())
	assert.Error(t, store.Put(context.Background(), "../escape", []byte("x")))
	names, err := NewLocal(t.TempDir() + "/absent").List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSaveLoadTree(t *testing.T) {
	ctx := context.Background()
	metric := distance.Euclidean{N: 2}
	items := []feature.Item{
		{ID: "a", Vector: []float32{0, 0}},
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "c", Vector: []float32{0, 3}},
	}
	tree := vptree.New(metric, vptree.WithSeed(5), vptree.WithCompression(compress.ZSTD))
	require.NoError(t, tree.Build(items))

	store := NewLocal(t.TempDir())
	size, err := Save(ctx, store, "features.vpt", tree)
	require.NoError(t, err)
	assert.Greater(t, size, 0)

	loaded := vptree.New(metric)
	n, err := Load(ctx, store, "features.vpt", loaded)
	require.NoError(t, err)
	assert.Equal(t, size, n)
	assert.Equal(t, 3, loaded.Len())

	res, err := loaded.Range(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	res.SortByDistance()
	assert.Equal(t, []string{"a", "b"}, res.IDs())

	_, err = Load(ctx, store, "absent.vpt", loaded)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = Load(ctx, NewMemory(), "x", loaded)
	assert.Error(t, err)
	require.NoError(t, store.Put(ctx, "garbage.vpt", []byte("nope")))
	_, err = Load(ctx, store, "garbage.vpt", loaded)
	assert.Error(t, err)
}
