package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/s3lite/s3lite/internal/logger"
)

// EngineConfig bundles the inputs needed to construct an Engine.
type EngineConfig struct {
	Root             string
	Default          BucketConfig
	ConcurrencyLimit int
	ReadOnly         func() bool // service-level read_only flag, re-evaluated per write
	Metrics          Metrics     // may be nil

	// Overrides carries per-bucket pragma/read-only overrides (
	// "buckets:" config map), applied before Discover so that a bucket
	// already present on disk opens with its override from the start.
	Overrides map[string]BucketConfig
}

// Engine is the top-level façade over the storage engine: it wires the
// Admission Controller, the Connection Pool Registry, and the individual
// component methods (PutObject, ListObjectsV2, CreateMultipartUpload, ...)
// declared across this package's other files.
type Engine struct {
	registry  *Registry
	admission *admission
	metrics   Metrics
	gcStop    chan struct{}
}

// NewEngine constructs an Engine rooted at cfg.Root and discovers any
// buckets already present on disk.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	registry := NewRegistry(cfg.Root, cfg.Default)
	for bucket, override := range cfg.Overrides {
		registry.SetOverride(bucket, override)
	}
	if err := registry.Discover(); err != nil {
		return nil, err
	}
	readOnly := cfg.ReadOnly
	if readOnly == nil {
		readOnly = func() bool { return false }
	}
	return &Engine{
		registry:  registry,
		admission: newAdmission(cfg.ConcurrencyLimit, readOnly),
		metrics:   cfg.Metrics,
	}, nil
}

// Close drains every bucket pool and stops the background GC ticker, if
// running. Safe to call even if StartMultipartGC was never called.
func (e *Engine) Close() error {
	if e.gcStop != nil {
		close(e.gcStop)
		e.gcStop = nil
	}
	return e.registry.closeAll()
}

// checkWritable returns ErrAccessDenied if bucket's effective configuration
// (service default merged with any per-bucket override) is read-only. It
// consults no handle and does no I/O, so it can reject a mutating operation
// before admission or the connection pool are ever touched.
func (e *Engine) checkWritable(bucket string) error {
	if e.registry.effectiveConfig(bucket).ReadOnly {
		return newErr(ErrAccessDenied, bucket, "", "bucket is read-only")
	}
	return nil
}

// withTx acquires a handle for bucket, begins a transaction, invokes fn,
// and commits on success or rolls back on error; every operation runs
// inside a single SQL transaction per request. A handle is discarded
// rather than returned to the pool when fn reports an internal (not
// domain) error, since that signals corruption or a lost connection.
func (e *Engine) withTx(ctx context.Context, op, bucket string, fn func(tx *sql.Tx) error) error {
	if err := e.checkWritable(bucket); err != nil {
		logOperationError(ctx, op, err)
		return err
	}

	start := time.Now()
	release, err := e.admission.acquire(ctx, opWrite)
	if err != nil {
		logOperationError(ctx, op, err)
		return err
	}
	observeAdmissionWait(e.metrics, time.Since(start))
	defer release()

	return e.instrumented(ctx, op, bucket, fn)
}

// withReadTx is withTx without the write-gate consultation, used by
// read-only operations so they are never rejected by the service-level
// read_only flag.
func (e *Engine) withReadTx(ctx context.Context, op, bucket string, fn func(tx *sql.Tx) error) error {
	release, err := e.admission.acquire(ctx, opRead)
	if err != nil {
		logOperationError(ctx, op, err)
		return err
	}
	defer release()

	return e.instrumented(ctx, op, bucket, fn)
}

// instrumented runs fn inside a transaction and records its outcome under
// operation name op, matching the start/defer timing pattern the
// teacher's content stores use around S3 calls.
func (e *Engine) instrumented(ctx context.Context, op, bucket string, fn func(tx *sql.Tx) error) error {
	start := time.Now()
	err := e.runTx(ctx, bucket, fn)
	observeOperation(e.metrics, op, time.Since(start), err)
	logOperationError(ctx, op, err)
	return err
}

func (e *Engine) runTx(ctx context.Context, bucket string, fn func(tx *sql.Tx) error) error {
	db, err := e.registry.acquire(ctx, bucket)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		e.registry.discard(bucket, db)
		return wrapErr(ErrInternal, bucket, "", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if CodeOf(err) == ErrInternal {
			e.registry.discard(bucket, db)
		} else {
			e.registry.release(bucket, db)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		e.registry.discard(bucket, db)
		return wrapErr(ErrInternal, bucket, "", err)
	}
	e.registry.release(bucket, db)
	return nil
}

// logOperationError emits a warning for any non-domain error surfaced to
// a caller, so operational problems show up in logs even when the HTTP
// layer only sees a typed *Error.
func logOperationError(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	if CodeOf(err) == ErrInternal {
		logger.ErrorCtx(ctx, "storage operation failed",
			logger.Operation(operation), logger.Err(err))
		return
	}
	logger.DebugCtx(ctx, "storage operation rejected",
		logger.Operation(operation), logger.ErrorCode(CodeOf(err).String()), logger.Err(err))
}
