package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-vptree/snapshot"
)

// TestStoreIntegration requires a running MinIO instance at MINIO_ENDPOINT.
func TestStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	access, secret := os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY")
	if access == "" {
		access, secret = "minioadmin", "minioadmin"
	}
	store, err := Dial(endpoint, access, secret, false, "test-vptree", "it-prefix")
	require.NoError(t, err)

	ctx := context.Background()
	if err := store.EnsureBucket(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	require.NoError(t, store.Put(ctx, "trees/features.vpt", []byte("tree")))
	data, err := store.Get(ctx, "trees/features.vpt")
	require.NoError(t, err)
	assert.Equal(t, "tree", string(data))

	names, err := store.List(ctx, "trees/")
	require.NoError(t, err)
	assert.Contains(t, names, "trees/features.vpt")

	require.NoError(t, store.Delete(ctx, "trees/features.vpt"))
	_, err = store.Get(ctx, "trees/features.vpt")
	assert.True(t, errors.Is(err, snapshot.ErrNotFound))
}
