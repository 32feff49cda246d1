package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMultipartUploadRoundTrip covers
// followed by a 3-byte part complete into a single object whose size and
// ETag suffix reflect both parts.
func TestMultipartUploadRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "big", "test-access-key")
	require.NoError(t, err)

	part1Body := bytes.Repeat([]byte{0xAA}, 5*1024*1024)
	part1, err := e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 1, Body: part1Body})
	require.NoError(t, err)

	part2Body := []byte("end")
	part2, err := e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 2, Body: part2Body})
	require.NoError(t, err)

	out, err := e.CompleteMultipartUpload(ctx, "tests", "big", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: part1.ETag},
		{PartNumber: 2, ETag: part2.ETag},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.ETag, "-2"))
	assert.EqualValues(t, len(part1Body)+len(part2Body), out.Size)

	got, err := e.GetObject(ctx, GetObjectInput{Bucket: "tests", Key: "big"})
	require.NoError(t, err)
	assert.EqualValues(t, len(part1Body)+len(part2Body), got.ObjectSize)
	assert.True(t, bytes.Equal(part1Body, got.Body[:len(part1Body)]))
	assert.True(t, bytes.Equal(part2Body, got.Body[len(part1Body):]))

	_, err = e.ListParts(ctx, "tests", uploadID)
	assert.Equal(t, ErrNoSuchUpload, CodeOf(err))
}

func TestMultipartUploadPartInvalidPartNumber(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "k", "test-access-key")
	require.NoError(t, err)

	_, err = e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 0, Body: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidArgument, CodeOf(err))

	_, err = e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: maxPartNumber + 1, Body: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidArgument, CodeOf(err))
}

func TestMultipartUploadPartNoSuchUpload(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	bogusID := bytes.Repeat([]byte{0x01}, 16)
	_, err := e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: bogusID, PartNumber: 1, Body: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, ErrNoSuchUpload, CodeOf(err))
}

// TestMultipartCompleteEntityTooSmall covers the minimum-part-size rule:
// every part but the last must be at least 5 MiB.
func TestMultipartCompleteEntityTooSmall(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "small", "test-access-key")
	require.NoError(t, err)

	part1, err := e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 1, Body: []byte("too small")})
	require.NoError(t, err)
	part2, err := e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 2, Body: []byte("also small")})
	require.NoError(t, err)

	_, err = e.CompleteMultipartUpload(ctx, "tests", "small", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: part1.ETag},
		{PartNumber: 2, ETag: part2.ETag},
	})
	require.Error(t, err)
	assert.Equal(t, ErrEntityTooSmall, CodeOf(err))
}

func TestMultipartCompleteInvalidPart(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "k", "test-access-key")
	require.NoError(t, err)

	_, err = e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: uploadID, PartNumber: 1, Body: bytes.Repeat([]byte{0x01}, minPartSize)})
	require.NoError(t, err)

	_, err = e.CompleteMultipartUpload(ctx, "tests", "k", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: "deadbeefdeadbeefdeadbeefdeadbeef"},
	})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidPart, CodeOf(err))

	_, err = e.CompleteMultipartUpload(ctx, "tests", "k", uploadID, []CompletedPart{
		{PartNumber: 7, ETag: "deadbeefdeadbeefdeadbeefdeadbeef"},
	})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidPart, CodeOf(err))
}

// TestMultipartAbortIsIdempotent covers
// aborting twice, or aborting an unknown upload ID, succeeds silently.
func TestMultipartAbortIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	uploadID, err := e.CreateMultipartUpload(ctx, "tests", "k", "test-access-key")
	require.NoError(t, err)

	require.NoError(t, e.AbortMultipartUpload(ctx, "tests", uploadID))
	require.NoError(t, e.AbortMultipartUpload(ctx, "tests", uploadID))

	bogusID := bytes.Repeat([]byte{0x02}, 16)
	require.NoError(t, e.AbortMultipartUpload(ctx, "tests", bogusID))
}

func TestMultipartListUploadsAndParts(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	mustCreateBucket(t, e, "tests")

	id1, err := e.CreateMultipartUpload(ctx, "tests", "a", "test-access-key")
	require.NoError(t, err)
	id2, err := e.CreateMultipartUpload(ctx, "tests", "b", "test-access-key")
	require.NoError(t, err)

	uploads, err := e.ListMultipartUploads(ctx, "tests")
	require.NoError(t, err)
	require.Len(t, uploads, 2)

	_, err = e.UploadPart(ctx, UploadPartInput{Bucket: "tests", UploadID: id1, PartNumber: 1, Body: []byte("part-a")})
	require.NoError(t, err)

	parts, err := e.ListParts(ctx, "tests", id1)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, 1, parts[0].PartNumber)

	require.NoError(t, e.AbortMultipartUpload(ctx, "tests", id2))
	uploads, err = e.ListMultipartUploads(ctx, "tests")
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "a", uploads[0].Key)
}
