// Package metrics exposes Prometheus counters for the generation and
// reconciliation pipelines. Metrics are served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationAttempts counts calls to the generation service by outcome
	// (success, transport, content, auth, canceled).
	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flick_generation_attempts_total",
			Help: "Generation service attempts by outcome",
		},
		[]string{"outcome"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flick_generation_duration_seconds",
			Help:    "Wall time of a full generation including retries",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	CatalogFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flick_catalog_fetches_total",
			Help: "Upcoming catalog fetches by outcome",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flick_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flick_cache_lookups_total",
			Help: "Recent-recommendation cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flick_http_requests_total",
			Help: "HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flick_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordGenerationAttempt(outcome string) {
	GenerationAttempts.WithLabelValues(outcome).Inc()
}

func RecordCatalogFetch(outcome string) {
	CatalogFetches.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
