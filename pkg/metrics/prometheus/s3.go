// Package prometheus implements pkg/metrics's storage.Metrics with real
// Prometheus collectors, registered against the process-wide registry
// created by metrics.InitRegistry.
package prometheus

import (
	"time"

	"github.com/s3lite/s3lite/pkg/metrics"
	"github.com/s3lite/s3lite/pkg/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterConstructor(New)
}

// s3Metrics is the Prometheus implementation of storage.Metrics.
type s3Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	admissionWait     prometheus.Histogram
	poolInUse         *prometheus.GaugeVec
	multipartGCTotal  prometheus.Counter
}

// New creates a new Prometheus-backed storage.Metrics instance.
//
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func New() storage.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &s3Metrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3lite_operations_total",
				Help: "Total number of storage-engine operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "s3lite_operation_duration_milliseconds",
				Help: "Duration of storage-engine operations in milliseconds",
				Buckets: []float64{
					1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000,
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3lite_bytes_transferred_total",
				Help: "Total bytes transferred via storage-engine operations",
			},
			[]string{"operation"},
		),
		admissionWait: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "s3lite_admission_wait_milliseconds",
				Help: "Time operations spent blocked on the admission semaphore before executing",
				Buckets: []float64{
					1, 5, 10, 50, 100, 500, 1000, 5000,
				},
			},
		),
		poolInUse: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "s3lite_pool_connections_in_use",
				Help: "Current number of in-use SQLite connections per bucket",
			},
			[]string{"bucket"},
		),
		multipartGCTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "s3lite_multipart_gc_reaped_total",
				Help: "Total number of abandoned multipart uploads reaped by the garbage collector",
			},
		),
	}
}

func (m *s3Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}

func (m *s3Metrics) ObserveBytes(operation string, bytes int64) {
	m.bytesTransferred.WithLabelValues(operation).Add(float64(bytes))
}

func (m *s3Metrics) ObserveAdmissionWait(duration time.Duration) {
	m.admissionWait.Observe(duration.Seconds() * 1000)
}

func (m *s3Metrics) SetPoolInUse(bucket string, inUse int) {
	m.poolInUse.WithLabelValues(bucket).Set(float64(inUse))
}

func (m *s3Metrics) IncMultipartGC(reaped int) {
	m.multipartGCTotal.Add(float64(reaped))
}
