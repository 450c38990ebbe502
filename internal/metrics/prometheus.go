package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the league engine

var (
	// Result feed metrics
	FeedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "f1league_feed_calls_total",
			Help: "Total number of result feed API calls",
		},
		[]string{"endpoint", "status"},
	)

	FeedCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "f1league_feed_call_duration_seconds",
			Help:    "Duration of result feed calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "f1league_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	// Settlement metrics
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "f1league_settlements_total",
			Help: "Total number of settlement attempts",
		},
		[]string{"status"},
	)

	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "f1league_settlement_duration_seconds",
			Help:    "Duration of settlement runs in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	PredictionsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "f1league_predictions_scored_total",
			Help: "Total number of predictions scored across settlements",
		},
	)

	PendingPredictions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "f1league_pending_predictions",
			Help: "Number of predictions stored for the pending event",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "f1league_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "f1league_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "f1league_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "f1league_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSettlement = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "f1league_last_settlement_timestamp",
			Help: "Timestamp of the last successful settlement",
		},
	)
)

// RecordFeedCall records a result feed call metric
func RecordFeedCall(endpoint, status string, duration float64) {
	FeedCallsTotal.WithLabelValues(endpoint, status).Inc()
	FeedCallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
}

// RecordSettlement records a settlement attempt
func RecordSettlement(status string, duration float64, scored int) {
	SettlementsTotal.WithLabelValues(status).Inc()
	SettlementDuration.Observe(duration)

	if status == "success" {
		PredictionsScored.Add(float64(scored))
		LastSettlement.SetToCurrentTime()
	}
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
