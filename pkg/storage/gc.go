package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/s3lite/s3lite/internal/logger"
)

// defaultMultipartGCInterval is the default period between periodic GC
// sweeps.
const defaultMultipartGCInterval = 15 * time.Minute

// RunMultipartGC deletes multipart_upload rows (and their cascaded parts)
// older than ttl across every registered bucket, and separately removes
// orphaned part rows whose parent upload no longer exists. A bucket whose
// override sets its own MultipartTTL is swept with that TTL instead.
// It is safe to call at process startup and on a recurring timer.
func (e *Engine) RunMultipartGC(ctx context.Context, ttl time.Duration) {
	for _, b := range e.registry.list() {
		bucketTTL := ttl
		e.registry.mu.RLock()
		if override, ok := e.registry.overrides[b.Name]; ok && override.MultipartTTL != 0 {
			bucketTTL = override.MultipartTTL
		}
		e.registry.mu.RUnlock()
		reaped, err := e.gcBucket(ctx, b.Name, bucketTTL)
		if err != nil {
			logger.WarnCtx(ctx, "multipart GC failed for bucket",
				logger.Bucket(b.Name), logger.Err(err))
			continue
		}
		if reaped > 0 {
			logger.InfoCtx(ctx, "multipart GC reaped abandoned uploads",
				logger.Bucket(b.Name), "count", reaped)
		}
		incMultipartGC(e.metrics, reaped)
	}
}

func (e *Engine) gcBucket(ctx context.Context, bucket string, ttl time.Duration) (int, error) {
	cutoff := formatTime(time.Now().UTC().Add(-ttl))
	reaped := 0
	err := e.withTx(ctx, "MultipartGC", bucket, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM multipart_upload WHERE last_modified <= ?`, cutoff)
		if err != nil {
			return wrapErr(ErrInternal, bucket, "", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			reaped += int(n)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM multipart_upload_part
			 WHERE upload_id NOT IN (SELECT upload_id FROM multipart_upload)`); err != nil {
			return wrapErr(ErrInternal, bucket, "", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reaped, nil
}

// StartMultipartGC runs one GC pass immediately and then launches a
// background goroutine that repeats it every interval until the Engine is
// closed. interval<=0 uses the default.
func (e *Engine) StartMultipartGC(ctx context.Context, ttl, interval time.Duration) {
	if interval <= 0 {
		interval = defaultMultipartGCInterval
	}
	e.RunMultipartGC(ctx, ttl)

	e.gcStop = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.RunMultipartGC(ctx, ttl)
			case <-e.gcStop:
				return
			}
		}
	}()
}
