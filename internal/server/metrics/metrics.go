// Package metrics exposes the Prometheus collectors recorded by the server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	objectOps       *prometheus.CounterVec
	objectDuration  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	cascadeItems    *prometheus.CounterVec
	cascadeFailures *prometheus.CounterVec
	uploadedBytes   prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		objectOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_object_store_operations_total",
				Help: "Object store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		objectDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filevault_object_store_operation_duration_milliseconds",
				Help: "Duration of object store operations in milliseconds",
				Buckets: []float64{
					5,     // presign, head
					25,    // small objects
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s
					30000, // large uploads
				},
			},
			[]string{"operation"},
		),
		httpRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filevault_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		cascadeItems: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_cascade_items_total",
				Help: "Entities touched by delete and privacy cascades",
			},
			[]string{"cascade", "kind"},
		),
		cascadeFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filevault_cascade_failures_total",
				Help: "Cascades that ended incomplete or inconsistent",
			},
			[]string{"cascade", "reason"},
		),
		uploadedBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filevault_uploaded_bytes_total",
				Help: "Bytes accepted by uploads",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveObjectOp records one object store call.
func (m *Metrics) ObserveObjectOp(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.objectOps.WithLabelValues(op, status(err)).Inc()
	m.objectDuration.WithLabelValues(op).Observe(float64(time.Since(started).Milliseconds()))
}

// ObserveHTTP records one served request. route is the router pattern, not
// the raw path.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) AddCascadeItems(cascade, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cascadeItems.WithLabelValues(cascade, kind).Add(float64(n))
}

func (m *Metrics) CascadeFailed(cascade, reason string) {
	if m == nil {
		return
	}
	m.cascadeFailures.WithLabelValues(cascade, reason).Inc()
}

func (m *Metrics) AddUploadedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadedBytes.Add(float64(n))
}
