package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Request / Operation
	// ========================================================================
	KeyOperation = "operation"  // S3 operation name: PutObject, GetObject, ...
	KeyRequestID = "request_id" // HTTP request ID
	KeyStatus    = "status"     // HTTP status code
	KeyErrorCode = "error_code" // S3 error code (NoSuchKey, BadDigest, ...)
	KeyError     = "error"      // Error message

	// ========================================================================
	// Bucket / Object
	// ========================================================================
	KeyBucket       = "bucket"        // Bucket name
	KeyKey          = "key"           // Object key
	KeySize         = "size"          // Object size in bytes
	KeyETag         = "etag"          // Object ETag
	KeyUploadID     = "upload_id"     // Multipart upload ID
	KeyPartNumber   = "part_number"   // Multipart part number
	KeyContinuation = "continuation"  // Listing continuation token

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP  = "client_ip"  // Client IP address
	KeyAccessKey = "access_key" // SigV4 access key ID

	// ========================================================================
	// Storage Engine
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyPoolSize   = "pool_size"   // Connection pool size
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Operation returns a slog.Attr for the S3 operation name.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// RequestID returns a slog.Attr for the HTTP request ID.
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

// Status returns a slog.Attr for an HTTP status code.
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// ErrorCode returns a slog.Attr for an S3 error code.
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }

// Err returns a slog.Attr for an error. Returns an empty Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Bucket returns a slog.Attr for a bucket name.
func Bucket(name string) slog.Attr { return slog.String(KeyBucket, name) }

// Key returns a slog.Attr for an object key.
func Key(k string) slog.Attr { return slog.String(KeyKey, k) }

// Size returns a slog.Attr for an object size.
func Size(n int64) slog.Attr { return slog.Int64(KeySize, n) }

// ETag returns a slog.Attr for an object ETag.
func ETag(tag string) slog.Attr { return slog.String(KeyETag, tag) }

// UploadID returns a slog.Attr for a multipart upload ID.
func UploadID(id string) slog.Attr { return slog.String(KeyUploadID, id) }

// PartNumber returns a slog.Attr for a multipart part number.
func PartNumber(n int) slog.Attr { return slog.Int(KeyPartNumber, n) }

// Continuation returns a slog.Attr for a listing continuation token.
func Continuation(token string) slog.Attr { return slog.String(KeyContinuation, token) }

// ClientIP returns a slog.Attr for the client IP address.
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }

// AccessKey returns a slog.Attr for the SigV4 access key ID.
func AccessKey(id string) slog.Attr { return slog.String(KeyAccessKey, id) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// PoolSize returns a slog.Attr for a connection pool size.
func PoolSize(n int) slog.Attr { return slog.Int(KeyPoolSize, n) }
