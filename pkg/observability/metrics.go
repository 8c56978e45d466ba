// Package observability provides Prometheus metrics and health checks for
// the clipboard service.
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
			Name: "cloudclip_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudclip_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Session metrics
	sessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudclip_sessions_started_total",
			Help: "Total number of sessions started explicitly",
		},
	)

	sessionsEndedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudclip_sessions_ended_total",
			Help: "Total number of sessions ended explicitly",
		},
	)

	sessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudclip_sessions_swept_total",
			Help: "Total number of sessions removed by expiry sweeps",
		},
	)

	itemsAddedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudclip_items_added_total",
			Help: "Total number of clipboard items shared",
		},
		[]string{"hostname"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudclip_active_sessions",
			Help: "Number of currently live sessions",
		},
	)

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			sessionsStartedTotal,
			sessionsEndedTotal,
			sessionsSweptTotal,
			itemsAddedTotal,
			activeSessions,
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

// RecordSessionStarted increments the started-sessions counter
func RecordSessionStarted() {
	sessionsStartedTotal.Inc()
}

// RecordSessionEnded increments the ended-sessions counter
func RecordSessionEnded() {
	sessionsEndedTotal.Inc()
}

// RecordSessionsSwept adds to the swept-sessions counter
func RecordSessionsSwept(count int) {
	sessionsSweptTotal.Add(float64(count))
}

// RecordItemAdded increments the shared-items counter
func RecordItemAdded(hostname string) {
	itemsAddedTotal.WithLabelValues(hostname).Inc()
}

// SetActiveSessions sets the live-sessions gauge
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}
