// Package metrics records invocation outcomes on a private Prometheus
// registry, served at GET /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Invocation outcomes.
const (
	OutcomePersisted = "persisted"
	OutcomeIgnored   = "ignored"
	OutcomeAbandoned = "abandoned"
)

var registry = prometheus.NewRegistry()

var (
	invocationsTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_invocations_total",
		Help: "Pipeline invocations by terminal outcome.",
	}, []string{"outcome"})

	stageFailuresTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_stage_failures_total",
		Help: "Abandoned invocations by failing pipeline stage.",
	}, []string{"stage"})

	processingDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "receipt_processing_duration_seconds",
		Help:    "Wall-clock duration of one pipeline invocation.",
		Buckets: prometheus.DefBuckets,
	})
)

// Registry returns the registry backing the /metrics endpoint.
func Registry() *prometheus.Registry {
	return registry
}

// RecordInvocation counts one finished invocation.
func RecordInvocation(outcome string) {
	invocationsTotal.WithLabelValues(outcome).Inc()
}

// RecordStageFailure counts the stage that abandoned an invocation.
func RecordStageFailure(stage string) {
	stageFailuresTotal.WithLabelValues(stage).Inc()
}

// ObserveProcessingDuration records how long an invocation took.
func ObserveProcessingDuration(d time.Duration) {
	processingDuration.Observe(d.Seconds())
}
