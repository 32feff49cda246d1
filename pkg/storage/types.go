// Package storage implements the S3-semantic storage engine: one SQLite
// database per bucket, a bounded connection pool per bucket, and the
// transactional translation of S3 object, listing, multipart, and
// bucket-lifecycle operations into SQL.
package storage

import "time"

// ObjectInfo describes the metadata row for a stored object (,
// table `metadata`), independent of its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string // lowercase hex MD5
	LastModified time.Time
	UserMetadata map[string]string
}

// PutObjectInput is the input to PutObject.
type PutObjectInput struct {
	Bucket       string
	Key          string
	Body         []byte
	DeclaredMD5  []byte // decoded 16-byte Content-MD5, nil if not supplied
	UserMetadata map[string]string
	ContentType  string
}

// PutObjectOutput is the result of a successful PutObject.
type PutObjectOutput struct {
	ETag         string
	LastModified time.Time
}

// GetObjectInput is the input to GetObject.
type GetObjectInput struct {
	Bucket string
	Key    string
	Range  *ByteRange // nil for the whole object
}

// ByteRange is an inclusive byte range [Start, End] as sent in a Range header.
type ByteRange struct {
	Start int64
	End   int64 // -1 means "to the end of the object"
}

// GetObjectOutput is the result of a successful GetObject.
type GetObjectOutput struct {
	Body         []byte
	ObjectSize   int64 // full object size, even when Range narrowed Body
	ContentRange *ByteRange
	ETag         string
	LastModified time.Time
	UserMetadata map[string]string
}

// DeleteObjectsResult carries the per-key outcome of a batch delete.
type DeleteObjectsResult struct {
	Deleted []string
	Errors  map[string]error
}

// ListObjectsV2Input is the input to ListObjectsV2.
type ListObjectsV2Input struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	StartAfter        string
	ContinuationToken string
	MaxKeys           int
}

// ListObjectsV2Output is the result of ListObjectsV2.
type ListObjectsV2Output struct {
	Contents              []ObjectInfo
	CommonPrefixes        []string
	IsTruncated           bool
	NextContinuationToken string
}

// UploadPartInput is the input to UploadPart.
type UploadPartInput struct {
	Bucket      string
	UploadID    []byte
	PartNumber  int
	Body        []byte
	DeclaredMD5 []byte
}

// UploadPartOutput is the result of a successful UploadPart.
type UploadPartOutput struct {
	ETag string
}

// CompletedPart is one element of the ordered part list sent to CompleteMultipartUpload.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// CompleteMultipartUploadOutput is the result of a successful completion.
type CompleteMultipartUploadOutput struct {
	ETag         string
	Size         int64
	LastModified time.Time
}

// MultipartUploadInfo describes one in-progress upload (for ListMultipartUploads).
type MultipartUploadInfo struct {
	UploadID     []byte
	Key          string
	LastModified time.Time
}

// PartInfo describes one stored part (for ListParts).
type PartInfo struct {
	PartNumber   int
	Size         int64
	ETag         string
	LastModified time.Time
}

// BucketInfo describes a registered bucket (for ListBuckets).
type BucketInfo struct {
	Name      string
	CreatedAt time.Time
}
