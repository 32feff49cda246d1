package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"sort"
	"strings"
)

const (
	defaultMaxKeys = 1000
	maxMaxKeys     = 1000
)

// snapshotRow is the minimal shape copied out of a read transaction before
// pagination and filtering run in memory against a consistent snapshot.
type snapshotRow struct {
	key  string
	info ObjectInfo
}

// ListObjectsV2 implements.4: it takes a read-transaction
// snapshot of the matching metadata slice, closes the transaction, and
// then walks the in-memory copy applying prefix/delimiter/pagination
// rules so that concurrent mutation cannot skew a page boundary.
func (e *Engine) ListObjectsV2(ctx context.Context, in ListObjectsV2Input) (ListObjectsV2Output, error) {
	maxKeys := in.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	if maxKeys > maxMaxKeys {
		maxKeys = maxMaxKeys
	}

	startKey, err := startingKey(in.Prefix, in.StartAfter, in.ContinuationToken)
	if err != nil {
		return ListObjectsV2Output{}, err
	}

	var rows []snapshotRow
	err = e.withReadTx(ctx, "ListObjectsV2", in.Bucket, func(tx *sql.Tx) error {
		snap, err := snapshotMetadata(ctx, tx, in.Bucket)
		if err != nil {
			return err
		}
		rows = snap
		return nil
	})
	if err != nil {
		return ListObjectsV2Output{}, err
	}

	return paginate(rows, in.Prefix, in.Delimiter, startKey, maxKeys), nil
}

// snapshotMetadata copies every metadata row matching prefix into memory,
// ordered by key ascending (raw UTF-8 byte order, matching S3).
func snapshotMetadata(ctx context.Context, tx *sql.Tx, bucket string) ([]snapshotRow, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT key, size, metadata, last_modified, md5 FROM metadata ORDER BY key ASC`)
	if err != nil {
		return nil, wrapErr(ErrInternal, bucket, "", err)
	}
	defer rows.Close()

	var out []snapshotRow
	for rows.Next() {
		var (
			key, lastMod string
			size         int64
			md5hex       string
			metaJSON     sql.NullString
		)
		if err := rows.Scan(&key, &size, &metaJSON, &lastMod, &md5hex); err != nil {
			return nil, wrapErr(ErrInternal, bucket, "", err)
		}
		userMeta, err := unmarshalUserMetadata(metaJSON)
		if err != nil {
			return nil, wrapErr(ErrInternal, bucket, key, err)
		}
		out = append(out, snapshotRow{
			key: key,
			info: ObjectInfo{
				Key:          key,
				Size:         size,
				ETag:         md5hex,
				LastModified: parseTime(lastMod),
				UserMetadata: userMeta,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ErrInternal, bucket, "", err)
	}
	return out, nil
}

// startingKey resolves the pagination cursor: max(prefix, start_after_or_token).
// A continuation token takes precedence over start_after when both are
// supplied, and decodes as base64 of the raw key.
func startingKey(prefix, startAfter, continuationToken string) (string, error) {
	cursor := startAfter
	if continuationToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(continuationToken)
		if err != nil {
			return "", newErr(ErrInvalidArgument, "", "", "malformed continuation token")
		}
		cursor = string(decoded)
	}
	if prefix > cursor {
		return prefix, nil
	}
	return cursor, nil
}

// paginate walks the ordered snapshot applying prefix filtering,
// delimiter-based common-prefix collapsing, and a max-keys cutoff that
// yields an opaque continuation token.
func paginate(rows []snapshotRow, prefix, delimiter, start string, maxKeys int) ListObjectsV2Output {
	var out ListObjectsV2Output
	lastEmittedCommonPrefix := ""

	startIdx := sort.Search(len(rows), func(i int) bool { return rows[i].key >= start })

	for i := startIdx; i < len(rows); i++ {
		key := rows[i].key
		if !strings.HasPrefix(key, prefix) {
			// Rows are sorted ascending, so keys sharing a prefix occupy a
			// contiguous range; once we're past it there is nothing left
			// to match.
			if key > prefix {
				break
			}
			continue
		}

		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				commonPrefix := key[:len(prefix)+idx+len(delimiter)]
				if commonPrefix == lastEmittedCommonPrefix {
					continue
				}
				if len(out.Contents)+len(out.CommonPrefixes) >= maxKeys {
					out.IsTruncated = true
					out.NextContinuationToken = encodeContinuationToken(key)
					return out
				}
				out.CommonPrefixes = append(out.CommonPrefixes, commonPrefix)
				lastEmittedCommonPrefix = commonPrefix
				continue
			}
		}

		if len(out.Contents)+len(out.CommonPrefixes) >= maxKeys {
			out.IsTruncated = true
			out.NextContinuationToken = encodeContinuationToken(key)
			return out
		}
		out.Contents = append(out.Contents, rows[i].info)
	}

	return out
}

func encodeContinuationToken(key string) string {
	return base64.StdEncoding.EncodeToString([]byte(key))
}
