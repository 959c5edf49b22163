package s3

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/snapshot"
)

func TestKey(t *testing.T) {
	s := &Store{prefix: "trees"}
	assert.Equal(t, "trees/features.vpt", s.key("features.vpt"))
	s = &Store{}
	assert.Equal(t, "features.vpt", s.key("features.vpt"))
}

// TestStoreIntegration runs against S3_BUCKET with the default AWS
// credential chain.
func TestStoreIntegration(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("S3_BUCKET not set")
	}
	ctx := context.Background()
	store, err := NewFromEnv(ctx, os.Getenv("AWS_REGION"), os.Getenv("S3_ENDPOINT"), bucket, "vptree-it")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "features.vpt", []byte("tree")))
	data, err := store.Get(ctx, "features.vpt")
	require.NoError(t, err)
	assert.Equal(t, "tree", string(data))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "features.vpt")

	require.NoError(t, store.Delete(ctx, "features.vpt"))
	_, err = store.Get(ctx, "features.vpt")
	assert.True(t, errors.Is(err, snapshot.ErrNotFound))
}
