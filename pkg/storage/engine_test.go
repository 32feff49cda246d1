package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestEngine constructs an Engine rooted at a fresh temp directory, with
// the service-level defaults from DefaultBucketConfig() and no concurrency
// limit beyond the default.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{
		Root:             t.TempDir(),
		Default:          DefaultBucketConfig(),
		ConcurrencyLimit: 16,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func mustCreateBucket(t *testing.T, e *Engine, name string) {
	t.Helper()
	require.NoError(t, e.CreateBucket(context.Background(), name))
}

// TestWithTxRejectsPerBucketReadOnlyBeforeAcquiringAHandle exercises the
// checkWritable gate: a bucket marked read-only via its override must fail
// with ErrAccessDenied, not surface as an ErrInternal pragma failure once a
// transaction is already open.
func TestWithTxRejectsPerBucketReadOnlyBeforeAcquiringAHandle(t *testing.T) {
	engine := newTestEngine(t)
	mustCreateBucket(t, engine, "locked-down")

	override := DefaultBucketConfig().Merge(BucketConfig{ReadOnly: true})
	engine.registry.SetOverride("locked-down", override)

	err := engine.withTx(context.Background(), "PutObject", "locked-down", func(tx *sql.Tx) error {
		t.Fatal("fn should not run: the bucket is read-only and no handle should be acquired")
		return nil
	})
	require.Error(t, err)
	require.Equal(t, ErrAccessDenied, CodeOf(err))
}

// TestWithTxAllowsBucketNotCoveredByAnyOverride confirms checkWritable only
// rejects buckets whose own effective config is read-only; a bucket with no
// override is writable even though the registry tracks overrides for others.
func TestWithTxAllowsBucketNotCoveredByAnyOverride(t *testing.T) {
	engine := newTestEngine(t)
	mustCreateBucket(t, engine, "writable")

	err := engine.withTx(context.Background(), "PutObject", "writable", func(tx *sql.Tx) error {
		return nil
	})
	require.NoError(t, err)
}
