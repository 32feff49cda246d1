package metrics

import (
	"time"

	"github.com/s3lite/s3lite/pkg/storage"
)

// New creates a new Prometheus-backed storage.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When nil
// is returned, callers should pass nil to storage.NewEngine, which results
// in zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	engine, err := storage.NewEngine(storage.EngineConfig{Metrics: metrics.New(), ...})
//
//	// Without metrics (zero overhead)
//	engine, err := storage.NewEngine(storage.EngineConfig{Metrics: nil, ...})
func New() storage.Metrics {
	if !IsEnabled() {
		return nil
	}

	// Import prometheus package to access implementation.
	// This breaks the import cycle by using interface return type.
	return newPrometheusMetrics()
}

// newPrometheusMetrics is implemented in pkg/metrics/prometheus/s3.go.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusMetrics func() storage.Metrics

// RegisterConstructor registers the Prometheus metrics constructor. Called
// by pkg/metrics/prometheus/s3.go during package initialization.
func RegisterConstructor(constructor func() storage.Metrics) {
	newPrometheusMetrics = constructor
}

// ObserveOperation records a storage-engine operation with its duration and
// outcome.
//
// Parameters:
//   - operation: operation name (e.g., "PutObject", "GetObject", "CompleteMultipartUpload")
//   - duration: time taken to perform the operation
//   - err: error if the operation failed, nil if successful
func ObserveOperation(m storage.Metrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}

// ObserveBytes records bytes transferred for read/write operations.
func ObserveBytes(m storage.Metrics, operation string, bytes int64) {
	if m != nil {
		m.ObserveBytes(operation, bytes)
	}
}

// ObserveAdmissionWait records time spent blocked on the admission
// semaphore before an operation began executing.
func ObserveAdmissionWait(m storage.Metrics, duration time.Duration) {
	if m != nil {
		m.ObserveAdmissionWait(duration)
	}
}

// SetPoolInUse reports the current in-use connection count for a bucket.
func SetPoolInUse(m storage.Metrics, bucket string, inUse int) {
	if m != nil {
		m.SetPoolInUse(bucket, inUse)
	}
}

// IncMultipartGC records how many abandoned uploads a GC pass reaped.
func IncMultipartGC(m storage.Metrics, reaped int) {
	if m != nil {
		m.IncMultipartGC(reaped)
	}
}
