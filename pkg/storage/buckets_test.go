package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBucketLifecycle covers
// object refuses DeleteBucket with BucketNotEmpty; deleting the object
// first lets DeleteBucket succeed and removes the database file and any
// sidecars from disk.
func TestBucketLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "x")

	_, err := e.PutObject(ctx, PutObjectInput{Bucket: "x", Key: "k", Body: []byte("v")})
	require.NoError(t, err)

	err = e.DeleteBucket(ctx, "x")
	require.Error(t, err)
	assert.Equal(t, ErrBucketNotEmpty, CodeOf(err))

	require.NoError(t, e.DeleteObject(ctx, "x", "k"))
	require.NoError(t, e.DeleteBucket(ctx, "x"))

	path := e.registry.bucketPath("x")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	for _, suffix := range sidecarSuffixes {
		_, statErr := os.Stat(path + suffix)
		assert.True(t, os.IsNotExist(statErr))
	}

	exists, err := e.HeadBucket(ctx, "x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateBucketAlreadyExists(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "dup")

	err := e.CreateBucket(ctx, "dup")
	require.Error(t, err)
	assert.Equal(t, ErrBucketAlreadyExists, CodeOf(err))
}

func TestCreateBucketInvalidName(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	for _, name := range []string{"ab", "-bad", "bad-", "Has_Upper", ""} {
		err := e.CreateBucket(ctx, name)
		require.Error(t, err, "expected name %q to be rejected", name)
		assert.Equal(t, ErrInvalidArgument, CodeOf(err))
	}
}

func TestListBucketsAndHeadBucket(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "alpha")
	mustCreateBucket(t, e, "beta")

	exists, err := e.HeadBucket(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = e.HeadBucket(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	buckets, err := e.ListBuckets(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestDiscoverRegistersExistingBucketFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	e1, err := NewEngine(EngineConfig{Root: root, Default: DefaultBucketConfig(), ConcurrencyLimit: 16})
	require.NoError(t, err)
	require.NoError(t, e1.CreateBucket(ctx, "persisted"))
	require.NoError(t, e1.Close())

	require.FileExists(t, filepath.Join(root, "persisted.sqlite3"))

	e2, err := NewEngine(EngineConfig{Root: root, Default: DefaultBucketConfig(), ConcurrencyLimit: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e2.Close() })

	exists, err := e2.HeadBucket(ctx, "persisted")
	require.NoError(t, err)
	assert.True(t, exists)
}
