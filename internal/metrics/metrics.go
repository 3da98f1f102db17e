// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Result store queries (DuckDB / SQLite / Badger)
// - Recompute cycles and per-item failures
// - API endpoint latency and throughput
// - TTL cache efficiency
// - Circuit breaker state

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kennelrank_db_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_db_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Recompute Metrics
	RecomputeCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_recompute_cycles_total",
			Help: "Total number of recompute cycles by outcome",
		},
		[]string{"cycle", "result"}, // result: "success", "partial", "error", "skipped"
	)

	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kennelrank_recompute_duration_seconds",
			Help:    "Duration of recompute cycles in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"cycle"},
	)

	RecomputeItemsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_recompute_items_written_total",
			Help: "Total number of result rows written by recompute cycles",
		},
		[]string{"cycle"},
	)

	RecomputeItemFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_recompute_item_failures_total",
			Help: "Total number of per-item failures during recompute cycles",
		},
		[]string{"cycle"},
	)

	RecomputeLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennelrank_recompute_last_success_timestamp",
			Help: "Unix timestamp of the last fully successful recompute cycle",
		},
		[]string{"cycle"},
	)

	PriorityTasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennelrank_priority_tasks",
			Help: "Number of tasks in the last generated priority list by type",
		},
		[]string{"type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kennelrank_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kennelrank_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennelrank_cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry and invalidation)",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennelrank_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennelrank_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennelrank_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennelrank_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// Cycle labels.
const (
	CycleRanking = "ranking"
	CyclePricing = "pricing"
	CycleAll     = "all"
)

// RecordDBQuery records a store query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordRecomputeCycle records the outcome of one recompute cycle.
// A cycle with per-item failures but no cycle error is recorded as partial.
func RecordRecomputeCycle(cycle string, written, failed int, duration time.Duration, err error) {
	RecomputeDuration.WithLabelValues(cycle).Observe(duration.Seconds())
	RecomputeItemsWritten.WithLabelValues(cycle).Add(float64(written))
	RecomputeItemFailures.WithLabelValues(cycle).Add(float64(failed))

	switch {
	case err != nil:
		RecomputeCycles.WithLabelValues(cycle, "error").Inc()
	case failed > 0:
		RecomputeCycles.WithLabelValues(cycle, "partial").Inc()
	default:
		RecomputeCycles.WithLabelValues(cycle, "success").Inc()
		RecomputeLastSuccess.WithLabelValues(cycle).Set(float64(time.Now().Unix()))
	}
}

// RecordRecomputeSkipped records a scheduled cycle skipped because another was running.
func RecordRecomputeSkipped(cycle string) {
	RecomputeCycles.WithLabelValues(cycle, "skipped").Inc()
}

// SetPriorityTasks publishes the size of the last generated task list per type.
func SetPriorityTasks(byType map[string]int) {
	PriorityTasks.Reset()
	for typ, n := range byType {
		PriorityTasks.WithLabelValues(typ).Set(float64(n))
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
