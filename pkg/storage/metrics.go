package storage

import "time"

// Metrics is the consumer-side metrics interface for the storage engine,
// implemented by pkg/metrics/prometheus against this package to avoid an
// import cycle. A nil Metrics is valid and every helper below is a no-op
// against it, so metrics stay zero-overhead when disabled.
type Metrics interface {
	// ObserveOperation records one storage-engine call with its duration
	// and outcome (err is nil on success).
	ObserveOperation(operation string, duration time.Duration, err error)
	// ObserveBytes records bytes read or written by an operation.
	ObserveBytes(operation string, bytes int64)
	// ObserveAdmissionWait records time spent blocked on the admission
	// semaphore before an operation began executing.
	ObserveAdmissionWait(duration time.Duration)
	// SetPoolInUse reports the current in-use handle count for a bucket's
	// connection pool.
	SetPoolInUse(bucket string, inUse int)
	// IncMultipartGC records how many abandoned uploads a GC pass reaped.
	IncMultipartGC(reaped int)
}

func observeOperation(m Metrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}

func observeBytes(m Metrics, operation string, n int64) {
	if m != nil && n > 0 {
		m.ObserveBytes(operation, n)
	}
}

func observeAdmissionWait(m Metrics, d time.Duration) {
	if m != nil {
		m.ObserveAdmissionWait(d)
	}
}

func setPoolInUse(m Metrics, bucket string, inUse int) {
	if m != nil {
		m.SetPoolInUse(bucket, inUse)
	}
}

func incMultipartGC(m Metrics, reaped int) {
	if m != nil && reaped > 0 {
		m.IncMultipartGC(reaped)
	}
}
