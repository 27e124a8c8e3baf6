package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinycask/tinycask/internal/kverr"
)

// Metrics holds all Prometheus metrics for the server
type Metrics struct {
	// Request metrics
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec

	// Storage metrics
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec
	liveKeys       prometheus.Gauge
	logSize        prometheus.Gauge
}

// NewMetrics creates a new metrics instance registered against reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_request_errors_total",
				Help: "Total number of HTTP request errors",
			},
			[]string{"method", "path", "status"},
		),
		storageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_operation_duration_seconds",
				Help:    "Duration of storage operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"operation", "error_type"},
		),
		liveKeys: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "storage_live_keys",
				Help: "Number of live keys in the index",
			},
		),
		logSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "storage_log_size_bytes",
				Help: "Length of the append-only data file in bytes",
			},
		),
	}
}

// MetricsMiddleware records Prometheus metrics for each request
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrw.statusCode)

		m.requestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		m.requestTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()

		if wrw.statusCode >= 400 {
			m.requestErrors.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		}
	})
}

// RecordStorageOperation records the outcome of a storage operation.
// NOT_FOUND is an expected outcome, not an error.
func (m *Metrics) RecordStorageOperation(operation string, duration time.Duration, err error) {
	m.storageLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil && !kverr.IsNotFound(err) {
		m.storageErrors.WithLabelValues(operation, string(kverr.TypeOf(err))).Inc()
	}
}

// UpdateEngineGauges refreshes index and data file gauges
func (m *Metrics) UpdateEngineGauges(liveKeys int, logSize int64) {
	m.liveKeys.Set(float64(liveKeys))
	m.logSize.Set(float64(logSize))
}
