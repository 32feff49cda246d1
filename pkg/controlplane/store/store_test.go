package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3lite/s3lite/pkg/controlplane/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controlplane.sqlite3")
	s, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCredentialLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := &models.Credential{AccessKey: "AKIATEST", SecretHash: "hash", Label: "ci"}
	require.NoError(t, s.CreateCredential(ctx, cred))

	got, err := s.GetCredential(ctx, "AKIATEST")
	require.NoError(t, err)
	assert.Equal(t, "ci", got.Label)
	assert.False(t, got.Disabled)

	require.NoError(t, s.SetDisabled(ctx, "AKIATEST", true))
	got, err = s.GetCredential(ctx, "AKIATEST")
	require.NoError(t, err)
	assert.True(t, got.Disabled)

	list, err := s.ListCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteCredential(ctx, "AKIATEST"))
	_, err = s.GetCredential(ctx, "AKIATEST")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestBucketOverrideLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ro := true
	override := &models.BucketOverride{Bucket: "logs", ReadOnly: &ro, JournalMode: "WAL"}
	require.NoError(t, s.UpsertBucketOverride(ctx, override))

	got, err := s.GetBucketOverride(ctx, "logs")
	require.NoError(t, err)
	require.NotNil(t, got.ReadOnly)
	assert.True(t, *got.ReadOnly)

	list, err := s.ListBucketOverrides(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteBucketOverride(ctx, "logs"))
	_, err = s.GetBucketOverride(ctx, "logs")
	assert.ErrorIs(t, err, ErrOverrideNotFound)
}
