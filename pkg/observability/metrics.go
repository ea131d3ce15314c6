// Package observability provides Prometheus metrics, health checks and
// OpenTelemetry tracing for the voice assistant backend.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxgo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voxgo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// LLM metrics
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxgo_llm_calls_total",
			Help: "Total number of completion provider calls",
		},
		[]string{"provider", "model", "status"},
	)

	llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voxgo_llm_call_duration_seconds",
			Help:    "Completion provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	// Session metrics
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voxgo_active_sessions",
			Help: "Number of live sessions in the context store",
		},
	)

	sessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voxgo_sessions_expired_total",
			Help: "Total number of sessions removed by expiry sweeps",
		},
	)

	// Storage metrics
	storeWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxgo_store_write_failures_total",
			Help: "Total number of durable store write failures",
		},
		[]string{"backend"},
	)

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			llmCallsTotal,
			llmCallDuration,
			activeSessions,
			sessionsExpiredTotal,
			storeWriteFailuresTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLLMCall records completion provider call metrics
func RecordLLMCall(provider, model, status string, duration time.Duration) {
	llmCallsTotal.WithLabelValues(provider, model, status).Inc()
	llmCallDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// SetActiveSessions sets the live session gauge
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordSessionsExpired adds to the expired session counter
func RecordSessionsExpired(count int) {
	sessionsExpiredTotal.Add(float64(count))
}

// RecordStoreWriteFailure records a durable store write failure
func RecordStoreWriteFailure(backend string) {
	storeWriteFailuresTotal.WithLabelValues(backend).Inc()
}
