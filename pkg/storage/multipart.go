package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// minPartSize is the S3 rule enforced at CompleteMultipartUpload: every
// part but the last must be at least this large.
const minPartSize = 5 * 1024 * 1024

const (
	minPartNumber = 1
	maxPartNumber = 10000
)

// CreateMultipartUpload starts a new upload, returning a fresh random
// 16-byte upload ID.
func (e *Engine) CreateMultipartUpload(ctx context.Context, bucket, key, accessKey string) ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, wrapErr(ErrInternal, bucket, key, err)
	}
	uploadID := id[:]
	now := time.Now().UTC().Truncate(time.Second)

	err = e.withTx(ctx, "CreateMultipartUpload", bucket, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO multipart_upload(upload_id, bucket, key, last_modified, access_key) VALUES (?, ?, ?, ?, ?)`,
			uploadID, bucket, key, formatTime(now), accessKey)
		if err != nil {
			return wrapErr(ErrInternal, bucket, key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uploadID, nil
}

// UploadPart validates part_number, verifies the upload exists for this
// bucket, and upserts the part.
func (e *Engine) UploadPart(ctx context.Context, in UploadPartInput) (UploadPartOutput, error) {
	if in.PartNumber < minPartNumber || in.PartNumber > maxPartNumber {
		return UploadPartOutput{}, newErr(ErrInvalidArgument, in.Bucket, "",
			"part_number %d out of range [%d,%d]", in.PartNumber, minPartNumber, maxPartNumber)
	}
	if err := checkDigest(in.Bucket, "", in.DeclaredMD5, in.Body); err != nil {
		return UploadPartOutput{}, err
	}
	md5hex := etagOf(in.Body)
	now := time.Now().UTC().Truncate(time.Second)

	err := e.withTx(ctx, "UploadPart", in.Bucket, func(tx *sql.Tx) error {
		if err := verifyUploadExists(ctx, tx, in.Bucket, in.UploadID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO multipart_upload_part(upload_id, part_number, value, size, md5, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(upload_id, part_number) DO UPDATE SET
				value = excluded.value,
				size = excluded.size,
				md5 = excluded.md5,
				last_modified = excluded.last_modified`,
			in.UploadID, in.PartNumber, in.Body, len(in.Body), md5hex, formatTime(now))
		if err != nil {
			return wrapErr(ErrInternal, in.Bucket, "", err)
		}
		return nil
	})
	if err != nil {
		return UploadPartOutput{}, err
	}
	return UploadPartOutput{ETag: md5hex}, nil
}

// CompleteMultipartUpload validates the declared part list against the
// stored parts, enforces the minimum-size rule, concatenates the parts,
// writes the final object, and removes the upload.
func (e *Engine) CompleteMultipartUpload(ctx context.Context, bucket, key string, uploadID []byte, parts []CompletedPart) (CompleteMultipartUploadOutput, error) {
	var out CompleteMultipartUploadOutput
	err := e.withTx(ctx, "CompleteMultipartUpload", bucket, func(tx *sql.Tx) error {
		if err := verifyUploadExists(ctx, tx, bucket, uploadID); err != nil {
			return err
		}

		stored, err := loadParts(ctx, tx, bucket, uploadID)
		if err != nil {
			return err
		}
		storedByNumber := make(map[int]storedPart, len(stored))
		for _, p := range stored {
			storedByNumber[p.number] = p
		}

		prevNumber := 0
		bodies := make([][]byte, 0, len(parts))
		partMD5s := make([][]byte, 0, len(parts))
		var total int64
		for i, declared := range parts {
			if declared.PartNumber <= prevNumber {
				return newErr(ErrInvalidPart, bucket, key,
					"part numbers must be strictly increasing, got %d after %d", declared.PartNumber, prevNumber)
			}
			prevNumber = declared.PartNumber

			sp, ok := storedByNumber[declared.PartNumber]
			if !ok {
				return newErr(ErrInvalidPart, bucket, key, "part %d was never uploaded", declared.PartNumber)
			}
			if !strings.EqualFold(declared.ETag, sp.md5hex) {
				return newErr(ErrInvalidPart, bucket, key,
					"declared ETag for part %d does not match stored digest", declared.PartNumber)
			}
			isLast := i == len(parts)-1
			if !isLast && sp.size < minPartSize {
				return newErr(ErrEntityTooSmall, bucket, key,
					"part %d is %d bytes, below the %d byte minimum for a non-final part",
					declared.PartNumber, sp.size, minPartSize)
			}

			bodies = append(bodies, sp.value)
			md5raw, err := hex.DecodeString(sp.md5hex)
			if err != nil {
				return wrapErr(ErrInternal, bucket, key, err)
			}
			partMD5s = append(partMD5s, md5raw)
			total += sp.size
		}
		if len(parts) == 0 {
			return newErr(ErrInvalidPart, bucket, key, "completion requires at least one part")
		}

		finalBody := bytes.Join(bodies, nil)
		finalETag := multipartETag(partMD5s)
		now := time.Now().UTC().Truncate(time.Second)

		if err := writeObjectInTx(ctx, tx, bucket, key, finalBody, finalETag, nil, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM multipart_upload WHERE upload_id = ?`, uploadID); err != nil {
			return wrapErr(ErrInternal, bucket, key, err)
		}

		out = CompleteMultipartUploadOutput{ETag: finalETag, Size: total, LastModified: now}
		return nil
	})
	if err != nil {
		return CompleteMultipartUploadOutput{}, err
	}
	return out, nil
}

// AbortMultipartUpload deletes the upload row (parts cascade); deleting an
// unknown upload ID succeeds silently.
func (e *Engine) AbortMultipartUpload(ctx context.Context, bucket string, uploadID []byte) error {
	return e.withTx(ctx, "AbortMultipartUpload", bucket, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM multipart_upload WHERE upload_id = ? AND bucket = ?`, uploadID, bucket); err != nil {
			return wrapErr(ErrInternal, bucket, "", err)
		}
		return nil
	})
}

// ListMultipartUploads returns every in-progress upload for bucket, ordered
// by key then upload ID, read inside one read transaction. The result is
// not paginated.
func (e *Engine) ListMultipartUploads(ctx context.Context, bucket string) ([]MultipartUploadInfo, error) {
	var out []MultipartUploadInfo
	err := e.withReadTx(ctx, "ListMultipartUploads", bucket, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT upload_id, key, last_modified FROM multipart_upload WHERE bucket = ? ORDER BY key ASC, upload_id ASC`, bucket)
		if err != nil {
			return wrapErr(ErrInternal, bucket, "", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				rawID   []byte
				key     string
				lastMod string
			)
			if err := rows.Scan(&rawID, &key, &lastMod); err != nil {
				return wrapErr(ErrInternal, bucket, "", err)
			}
			out = append(out, MultipartUploadInfo{UploadID: rawID, Key: key, LastModified: parseTime(lastMod)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListParts returns every stored part of an in-progress upload, ordered
// by part_number. The result is not paginated.
func (e *Engine) ListParts(ctx context.Context, bucket string, uploadID []byte) ([]PartInfo, error) {
	var out []PartInfo
	err := e.withReadTx(ctx, "ListParts", bucket, func(tx *sql.Tx) error {
		if err := verifyUploadExists(ctx, tx, bucket, uploadID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT part_number, size, md5, last_modified FROM multipart_upload_part WHERE upload_id = ? ORDER BY part_number ASC`, uploadID)
		if err != nil {
			return wrapErr(ErrInternal, bucket, "", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				partNumber int
				size       int64
				md5hex     string
				lastMod    string
			)
			if err := rows.Scan(&partNumber, &size, &md5hex, &lastMod); err != nil {
				return wrapErr(ErrInternal, bucket, "", err)
			}
			out = append(out, PartInfo{PartNumber: partNumber, Size: size, ETag: md5hex, LastModified: parseTime(lastMod)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type storedPart struct {
	number int
	value  []byte
	size   int64
	md5hex string
}

func loadParts(ctx context.Context, tx *sql.Tx, bucket string, uploadID []byte) ([]storedPart, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT part_number, value, size, md5 FROM multipart_upload_part WHERE upload_id = ? ORDER BY part_number ASC`, uploadID)
	if err != nil {
		return nil, wrapErr(ErrInternal, bucket, "", err)
	}
	defer rows.Close()

	var parts []storedPart
	for rows.Next() {
		var sp storedPart
		if err := rows.Scan(&sp.number, &sp.value, &sp.size, &sp.md5hex); err != nil {
			return nil, wrapErr(ErrInternal, bucket, "", err)
		}
		parts = append(parts, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(ErrInternal, bucket, "", err)
	}
	return parts, nil
}

func verifyUploadExists(ctx context.Context, tx *sql.Tx, bucket string, uploadID []byte) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM multipart_upload WHERE upload_id = ? AND bucket = ?`, uploadID, bucket).Scan(&exists)
	if err == sql.ErrNoRows {
		return newErr(ErrNoSuchUpload, bucket, "", "upload %s does not exist", hex.EncodeToString(uploadID))
	}
	if err != nil {
		return wrapErr(ErrInternal, bucket, "", err)
	}
	return nil
}
