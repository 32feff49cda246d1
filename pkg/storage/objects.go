package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"
)

// PutObject stores body under (bucket, key), verifying declared_md5 if
// present, and returns the resulting ETag.
func (e *Engine) PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error) {
	if err := checkDigest(in.Bucket, in.Key, in.DeclaredMD5, in.Body); err != nil {
		return PutObjectOutput{}, err
	}
	md5hex := etagOf(in.Body)
	now := time.Now().UTC().Truncate(time.Second)

	metaJSON, err := marshalUserMetadata(in.UserMetadata)
	if err != nil {
		return PutObjectOutput{}, wrapErr(ErrInvalidArgument, in.Bucket, in.Key, err)
	}

	err = e.withTx(ctx, "PutObject", in.Bucket, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO data(key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			in.Key, in.Body); err != nil {
			return wrapErr(ErrInternal, in.Bucket, in.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metadata(key, size, metadata, last_modified, md5) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET
				size = excluded.size,
				metadata = excluded.metadata,
				last_modified = excluded.last_modified,
				md5 = excluded.md5`,
			in.Key, len(in.Body), metaJSON, formatTime(now), md5hex); err != nil {
			return wrapErr(ErrInternal, in.Bucket, in.Key, err)
		}
		return nil
	})
	if err != nil {
		return PutObjectOutput{}, err
	}
	observeBytes(e.metrics, "PutObject", int64(len(in.Body)))
	return PutObjectOutput{ETag: md5hex, LastModified: now}, nil
}

// GetObject reads the full object, or a single byte range if in.Range is set.
func (e *Engine) GetObject(ctx context.Context, in GetObjectInput) (GetObjectOutput, error) {
	var out GetObjectOutput
	err := e.withReadTx(ctx, "GetObject", in.Bucket, func(tx *sql.Tx) error {
		row, err := scanMetadataRow(ctx, tx, in.Bucket, in.Key)
		if err != nil {
			return err
		}
		var body []byte
		if err := tx.QueryRowContext(ctx, `SELECT value FROM data WHERE key = ?`, in.Key).Scan(&body); err != nil {
			return wrapErr(ErrInternal, in.Bucket, in.Key, err)
		}

		out.ObjectSize = row.size
		out.ETag = row.md5
		out.LastModified = row.lastModified
		out.UserMetadata = row.userMetadata

		if in.Range == nil {
			out.Body = body
			return nil
		}
		start, end := in.Range.Start, in.Range.End
		if start > row.size-1 {
			return newErr(ErrInvalidRange, in.Bucket, in.Key,
				"range start %d exceeds object size %d", start, row.size)
		}
		if end < 0 || end > row.size-1 {
			end = row.size - 1
		}
		out.Body = body[start : end+1]
		out.ContentRange = &ByteRange{Start: start, End: end}
		return nil
	})
	if err != nil {
		return GetObjectOutput{}, err
	}
	observeBytes(e.metrics, "GetObject", int64(len(out.Body)))
	return out, nil
}

// HeadObject returns an object's metadata without its body.
func (e *Engine) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	var info ObjectInfo
	err := e.withReadTx(ctx, "HeadObject", bucket, func(tx *sql.Tx) error {
		row, err := scanMetadataRow(ctx, tx, bucket, key)
		if err != nil {
			return err
		}
		info = ObjectInfo{
			Key:          key,
			Size:         row.size,
			ETag:         row.md5,
			LastModified: row.lastModified,
			UserMetadata: row.userMetadata,
		}
		return nil
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return info, nil
}

// DeleteObject removes an object; a missing key succeeds silently,
// matching S3 semantics.
func (e *Engine) DeleteObject(ctx context.Context, bucket, key string) error {
	return e.withTx(ctx, "DeleteObject", bucket, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM data WHERE key = ?`, key); err != nil {
			return wrapErr(ErrInternal, bucket, key, err)
		}
		return nil
	})
}

// DeleteObjects deletes multiple keys in a single transaction, recording a
// per-key error for any failure but continuing with the remaining keys.
func (e *Engine) DeleteObjects(ctx context.Context, bucket string, keys []string) (DeleteObjectsResult, error) {
	result := DeleteObjectsResult{Errors: make(map[string]error)}
	err := e.withTx(ctx, "DeleteObjects", bucket, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM data WHERE key = ?`, key); err != nil {
				result.Errors[key] = wrapErr(ErrInternal, bucket, key, err)
				continue
			}
			result.Deleted = append(result.Deleted, key)
		}
		return nil
	})
	if err != nil {
		return DeleteObjectsResult{}, err
	}
	return result, nil
}

// CopyObject duplicates an object across (possibly distinct) buckets and
// keys. A cross-bucket copy reads the source in one transaction and writes
// the destination in a separate one; it never holds both buckets' handles
// at once and takes them in call order, not lexicographic bucket-name order.
func (e *Engine) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (PutObjectOutput, error) {
	if srcBucket == dstBucket && srcKey == dstKey {
		info, err := e.HeadObject(ctx, srcBucket, srcKey)
		if err != nil {
			return PutObjectOutput{}, err
		}
		return PutObjectOutput{ETag: info.ETag, LastModified: info.LastModified}, nil
	}

	if srcBucket == dstBucket {
		var out PutObjectOutput
		err := e.withTx(ctx, "CopyObject", srcBucket, func(tx *sql.Tx) error {
			row, body, err := readObjectForCopy(ctx, tx, srcBucket, srcKey)
			if err != nil {
				return err
			}
			out.LastModified = time.Now().UTC().Truncate(time.Second)
			out.ETag = row.md5
			return writeObjectInTx(ctx, tx, dstBucket, dstKey, body, row.md5, row.userMetadata, out.LastModified)
		})
		if err != nil {
			return PutObjectOutput{}, err
		}
		return out, nil
	}

	// Read and write happen in separate transactions against separate
	// bucket pools, never holding both handles at once, so no canonical
	// lock ordering is required here (unlike a scheme that pins both
	// connections for the duration of the copy).
	var body []byte
	var row metadataRow
	err := e.withReadTx(ctx, "CopyObject", srcBucket, func(tx *sql.Tx) error {
		r, b, err := readObjectForCopy(ctx, tx, srcBucket, srcKey)
		if err != nil {
			return err
		}
		row, body = r, b
		return nil
	})
	if err != nil {
		return PutObjectOutput{}, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	err = e.withTx(ctx, "CopyObject", dstBucket, func(tx *sql.Tx) error {
		return writeObjectInTx(ctx, tx, dstBucket, dstKey, body, row.md5, row.userMetadata, now)
	})
	if err != nil {
		return PutObjectOutput{}, err
	}
	return PutObjectOutput{ETag: row.md5, LastModified: now}, nil
}

func readObjectForCopy(ctx context.Context, tx *sql.Tx, bucket, key string) (metadataRow, []byte, error) {
	row, err := scanMetadataRow(ctx, tx, bucket, key)
	if err != nil {
		return metadataRow{}, nil, err
	}
	var body []byte
	if err := tx.QueryRowContext(ctx, `SELECT value FROM data WHERE key = ?`, key).Scan(&body); err != nil {
		return metadataRow{}, nil, wrapErr(ErrInternal, bucket, key, err)
	}
	return row, body, nil
}

func writeObjectInTx(ctx context.Context, tx *sql.Tx, bucket, key string, body []byte, md5hex string, userMetadata map[string]string, when time.Time) error {
	metaJSON, err := marshalUserMetadata(userMetadata)
	if err != nil {
		return wrapErr(ErrInvalidArgument, bucket, key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO data(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, body); err != nil {
		return wrapErr(ErrInternal, bucket, key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metadata(key, size, metadata, last_modified, md5) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			size = excluded.size,
			metadata = excluded.metadata,
			last_modified = excluded.last_modified,
			md5 = excluded.md5`,
		key, len(body), metaJSON, formatTime(when), md5hex); err != nil {
		return wrapErr(ErrInternal, bucket, key, err)
	}
	return nil
}

// metadataRow is the scanned shape of a `metadata` table row.
type metadataRow struct {
	key          string
	size         int64
	userMetadata map[string]string
	lastModified time.Time
	md5          string
}

func scanMetadataRow(ctx context.Context, tx *sql.Tx, bucket, key string) (metadataRow, error) {
	var (
		row      metadataRow
		metaJSON sql.NullString
		lastMod  string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT key, size, metadata, last_modified, md5 FROM metadata WHERE key = ?`, key).
		Scan(&row.key, &row.size, &metaJSON, &lastMod, &row.md5)
	if err == sql.ErrNoRows {
		return metadataRow{}, newErr(ErrNoSuchKey, bucket, key, "key %q does not exist", key)
	}
	if err != nil {
		return metadataRow{}, wrapErr(ErrInternal, bucket, key, err)
	}
	row.lastModified = parseTime(lastMod)
	row.userMetadata, err = unmarshalUserMetadata(metaJSON)
	if err != nil {
		return metadataRow{}, wrapErr(ErrInternal, bucket, key, err)
	}
	return row, nil
}

func marshalUserMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]string, len(m))
	for _, k := range keys {
		ordered[k] = m[k]
	}
	b, err := json.Marshal(ordered)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalUserMetadata(ns sql.NullString) (map[string]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

const rfc3339Seconds = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(rfc3339Seconds)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(rfc3339Seconds, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
