// Package metrics defines the Prometheus collectors for the claim and
// completion workflows and the classification client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartwaste"

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	claims            *prometheus.CounterVec
	completions       *prometheus.CounterVec
	classifierResults *prometheus.CounterVec
	classifierLatency prometheus.Histogram
	breakerState      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "claims_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "completions_total",
			Help:      "Completion attempts by outcome.",
		}, []string{"outcome"}),
		classifierResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Classification calls by result.",
		}, []string{"result"}),
		classifierLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "request_duration_seconds",
			Help:      "Classification call latency including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}

	reg.MustRegister(
		m.claims,
		m.completions,
		m.classifierResults,
		m.classifierLatency,
		m.breakerState,
	)

	return m
}

// Claim counts one claim attempt.
func (m *Metrics) Claim(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// Completion counts one completion attempt.
func (m *Metrics) Completion(outcome string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
}

// ObserveClassification records a classification result and its latency.
func (m *Metrics) ObserveClassification(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.classifierResults.WithLabelValues(result).Inc()
	m.classifierLatency.Observe(elapsed.Seconds())
}

// ObserveBreaker records the circuit breaker state.
func (m *Metrics) ObserveBreaker(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}
