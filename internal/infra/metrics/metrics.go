// Package metrics provides Prometheus metrics for tokensage — counters,
// gauges, and histograms for predictions, the prediction cache, datastore
// reads, and execution recording.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Predictions ────────────────────────────────────────────────────────────

// Predictions tracks computed predictions by method and confidence.
var Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tokensage",
	Name:      "predictions_total",
	Help:      "Total predictions computed, by method and confidence.",
}, []string{"method", "confidence"})

// PredictionLatency tracks end-to-end prediction duration in seconds.
var PredictionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "tokensage",
	Name:      "prediction_latency_seconds",
	Help:      "Prediction computation duration in seconds (cache misses only).",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
})

// ─── Prediction Cache ───────────────────────────────────────────────────────

// PredictionCacheHits tracks fresh cache hits.
var PredictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tokensage",
	Name:      "prediction_cache_hits_total",
	Help:      "Total prediction cache hits.",
})

// PredictionCacheMisses tracks cache misses, stale entries included.
var PredictionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tokensage",
	Name:      "prediction_cache_misses_total",
	Help:      "Total prediction cache misses.",
})

// ─── Datastore ──────────────────────────────────────────────────────────────

// DatastoreReadFailures tracks swallowed datastore read errors by read path.
// Every increment corresponds to a prediction that degraded to a weaker
// strategy instead of failing.
var DatastoreReadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tokensage",
	Name:      "datastore_read_failures_total",
	Help:      "Total swallowed datastore read errors, by read path.",
}, []string{"path"})

// ─── Executions ─────────────────────────────────────────────────────────────

// ExecutionsRecorded tracks execution records written, by status.
var ExecutionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tokensage",
	Name:      "executions_recorded_total",
	Help:      "Total engine executions recorded.",
}, []string{"status"})

// TokensRecorded tracks total tokens across recorded executions.
var TokensRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tokensage",
	Name:      "tokens_recorded_total",
	Help:      "Total tokens consumed across recorded executions.",
})
