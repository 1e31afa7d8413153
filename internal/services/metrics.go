package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Model call metrics
	ModelCalls       *prometheus.CounterVec
	ModelCallLatency prometheus.Histogram

	// Insight engine metrics
	InsightFallbacks *prometheus.CounterVec
	InsightCacheOps  *prometheus.CounterVec

	// Vitals metrics
	VitalsRecordsCreated prometheus.Counter
	VitalsRecordsDeleted prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Model calls by outcome: "success" or a failure reason
		ModelCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalsense_model_calls_total",
			Help: "Total number of generative model calls by outcome",
		}, []string{"outcome"}),

		ModelCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vitalsense_model_call_duration_seconds",
			Help:    "Generative model call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90}, // model responses can be slow
		}),

		// Fallbacks by operation (stability, nudges) and reason
		InsightFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalsense_insight_fallbacks_total",
			Help: "Total number of insight operations that degraded to deterministic fallbacks",
		}, []string{"operation", "reason"}),

		// Cache outcomes: "hit" or "miss"
		InsightCacheOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalsense_insight_cache_total",
			Help: "Insight cache lookups by outcome",
		}, []string{"operation", "outcome"}),

		VitalsRecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitalsense_vitals_records_created_total",
			Help: "Total number of vitals records created",
		}),

		VitalsRecordsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitalsense_vitals_records_deleted_total",
			Help: "Total number of vitals records deleted",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordModelCall records a model call outcome
func (m *Metrics) RecordModelCall(outcome string) {
	m.ModelCalls.WithLabelValues(outcome).Inc()
}

// RecordModelLatency records model call latency
func (m *Metrics) RecordModelLatency(seconds float64) {
	m.ModelCallLatency.Observe(seconds)
}

// RecordFallback records an insight fallback
func (m *Metrics) RecordFallback(operation, reason string) {
	m.InsightFallbacks.WithLabelValues(operation, reason).Inc()
}

// RecordCacheLookup records an insight cache lookup outcome
func (m *Metrics) RecordCacheLookup(operation, outcome string) {
	m.InsightCacheOps.WithLabelValues(operation, outcome).Inc()
}
