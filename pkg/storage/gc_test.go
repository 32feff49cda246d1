package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipartGCReapsAbandonedUploads(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "abandoned", "test-access-key")
	require.NoError(t, err)
	_, err = e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 1, Body: []byte("part")})
	require.NoError(t, err)

	// A TTL of zero treats every existing upload as older than the cutoff.
	reaped, err := e.gcBucket(ctx, "tests", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)

	_, err = e.ListParts(ctx, "tests", uploadID)
	assert.Equal(t, ErrNoSuchUpload, CodeOf(err))
}

func TestMultipartGCLeavesFreshUploadsAlone(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "fresh", "test-access-key")
	require.NoError(t, err)

	reaped, err := e.gcBucket(ctx, "tests", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, reaped)

	uploads, err := e.ListMultipartUploads(ctx, "tests")
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, uploadID, uploads[0].UploadID)
}

func TestRunMultipartGCSweepsAllBuckets(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "alpha")
	mustCreateBucket(t, e, "beta")

	_, err := e.CreateMultipartUpload(ctx, "alpha", "k", "test-access-key")
	require.NoError(t, err)
	_, err = e.CreateMultipartUpload(ctx, "beta", "k", "test-access-key")
	require.NoError(t, err)

	e.RunMultipartGC(ctx, 0)

	for _, b := range []string{"alpha", "beta"} {
		uploads, err := e.ListMultipartUploads(ctx, b)
		require.NoError(t, err)
		assert.Empty(t, uploads)
	}
}
