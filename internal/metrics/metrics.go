// Package metrics exposes Prometheus instrumentation for the routing
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements the engine's Observer interface on top of Prometheus
// collectors.
type Recorder struct {
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	stepsTotal      *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
}

// NewRecorder registers the collectors on the given registry. A nil registry
// uses the default one.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentroute",
			Name:      "queries_total",
			Help:      "Queries executed, labelled by intent.",
		}, []string{"intent"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentroute",
			Name:      "query_duration_seconds",
			Help:      "End-to-end plan execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentroute",
			Name:      "steps_total",
			Help:      "Plan steps executed, labelled by capability and outcome.",
		}, []string{"capability", "outcome"}),
		backendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentroute",
			Name:      "backend_failures_total",
			Help:      "Hard backend failures, labelled by capability.",
		}, []string{"capability"}),
	}
}

// ObserveQuery records one executed query.
func (r *Recorder) ObserveQuery(intent string, duration time.Duration) {
	r.queriesTotal.WithLabelValues(intent).Inc()
	r.queryDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

// ObserveStep records one executed step.
func (r *Recorder) ObserveStep(capability string, outcome string) {
	r.stepsTotal.WithLabelValues(capability, outcome).Inc()
}

// ObserveBackendFailure records one hard backend failure.
func (r *Recorder) ObserveBackendFailure(capability string) {
	r.backendFailures.WithLabelValues(capability).Inc()
}

// Handler returns the scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
