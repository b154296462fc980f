// Package metrics provides Prometheus metrics for the aggregator.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeLive    = "live"
	OutcomeCache   = "cache"
	OutcomeNone    = "none"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)

var (
	// ResolutionsTotal counts price resolutions by how they were answered.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_resolutions_total",
			Help: "Total number of price resolutions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// BreakerTripsTotal counts observations rejected by the circuit breaker.
	BreakerTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_circuit_breaker_trips_total",
			Help: "Total number of observations rejected by the circuit breaker",
		},
		[]string{"asset"},
	)

	// CacheAgeSeconds is the age of the fallback price served for an asset.
	CacheAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_cache_age_seconds",
			Help: "Age of the cached price served when no live price was usable",
		},
		[]string{"asset"},
	)

	// UpstreamRequestsTotal counts calls to upstream sources.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_upstream_requests_total",
			Help: "Total number of requests sent to upstream sources",
		},
		[]string{"source", "status"},
	)

	// UpstreamRequestDuration is a histogram of upstream call latencies.
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_upstream_request_duration_seconds",
			Help:    "Duration of upstream source requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of API latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CacheWarmRuns counts cache warmer passes.
	CacheWarmRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_cache_warm_runs_total",
			Help: "Total number of cache warmer passes",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ResolutionsTotal,
			BreakerTripsTotal,
			CacheAgeSeconds,
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			CacheWarmRuns,
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordResolution(operation, outcome string) {
	ResolutionsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordBreakerTrip(asset string) {
	BreakerTripsTotal.WithLabelValues(asset).Inc()
}

func RecordCacheAge(asset string, age uint64) {
	CacheAgeSeconds.WithLabelValues(asset).Set(float64(age))
}

func RecordUpstreamRequest(source, status string, d time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(source, status).Inc()
	UpstreamRequestDuration.WithLabelValues(source).Observe(d.Seconds())
}

func RecordHTTPRequest(endpoint, status string, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func RecordCacheWarm(status string) {
	CacheWarmRuns.WithLabelValues(status).Inc()
}
