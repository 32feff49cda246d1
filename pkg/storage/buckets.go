package storage

import (
	"context"
	"database/sql"
	"regexp"
	"time"
)

// bucketNameRE enforces a conservative bucket naming subset: 3-63 bytes,
// lowercase letters/digits/hyphens, no leading/trailing hyphen. Dots are
// not part of the allowed character set at all here, which also rules out
// consecutive dots.
var bucketNameRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61})[a-z0-9]$`)

// ValidateBucketName reports whether name satisfies the bucket naming rules.
func ValidateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return newErr(ErrInvalidArgument, name, "", "bucket name must be 3-63 bytes, got %d", len(name))
	}
	if !bucketNameRE.MatchString(name) {
		return newErr(ErrInvalidArgument, name, "", "bucket name %q must be lowercase letters, digits, and hyphens, with no leading/trailing hyphen", name)
	}
	return nil
}

// CreateBucket validates name, rejects an existing file or sidecar, and
// creates+registers the bucket database.
func (e *Engine) CreateBucket(ctx context.Context, name string) (err error) {
	defer func(start time.Time) {
		observeOperation(e.metrics, "CreateBucket", time.Since(start), err)
		logOperationError(ctx, "CreateBucket", err)
	}(time.Now())

	if err = ValidateBucketName(name); err != nil {
		return err
	}
	release, acqErr := e.admission.acquire(ctx, opWrite)
	if acqErr != nil {
		err = acqErr
		return err
	}
	defer release()
	err = e.registry.create(ctx, name, nil)
	return err
}

// DeleteBucket drains the bucket's pool, verifies its data table is
// empty, then removes the database file and its sidecars.
func (e *Engine) DeleteBucket(ctx context.Context, name string) (err error) {
	defer func(start time.Time) {
		observeOperation(e.metrics, "DeleteBucket", time.Since(start), err)
		logOperationError(ctx, "DeleteBucket", err)
	}(time.Now())

	release, acqErr := e.admission.acquire(ctx, opWrite)
	if acqErr != nil {
		err = acqErr
		return err
	}
	defer release()

	empty, emptyErr := e.bucketIsEmpty(ctx, name)
	if emptyErr != nil {
		err = emptyErr
		return err
	}
	if !empty {
		err = newErr(ErrBucketNotEmpty, name, "", "bucket %q is not empty", name)
		return err
	}
	err = e.registry.drop(name)
	return err
}

func (e *Engine) bucketIsEmpty(ctx context.Context, bucket string) (bool, error) {
	var empty bool
	err := e.runTx(ctx, bucket, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM data LIMIT 1`).Scan(&count); err != nil {
			return wrapErr(ErrInternal, bucket, "", err)
		}
		empty = count == 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return empty, nil
}

// HeadBucket reports whether bucket is registered.
func (e *Engine) HeadBucket(ctx context.Context, name string) (exists bool, err error) {
	defer func(start time.Time) {
		observeOperation(e.metrics, "HeadBucket", time.Since(start), err)
	}(time.Now())

	release, acqErr := e.admission.acquire(ctx, opRead)
	if acqErr != nil {
		err = acqErr
		return false, err
	}
	defer release()
	return e.registry.exists(name), nil
}

// ListBuckets returns every registered bucket with its creation time.
func (e *Engine) ListBuckets(ctx context.Context) (buckets []BucketInfo, err error) {
	defer func(start time.Time) {
		observeOperation(e.metrics, "ListBuckets", time.Since(start), err)
	}(time.Now())

	release, acqErr := e.admission.acquire(ctx, opRead)
	if acqErr != nil {
		err = acqErr
		return nil, err
	}
	defer release()
	return e.registry.list(), nil
}
