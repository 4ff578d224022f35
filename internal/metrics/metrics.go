// Package metrics provides Prometheus metrics for the answering pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	AsksTotal          *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	AskDuration        prometheus.Histogram
	IndexedPassages    prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AsksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policyqa_asks_total",
				Help: "Total number of answered questions by confidence tier",
			},
			[]string{"confidence"},
		),
		GenerationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policyqa_generation_failures_total",
				Help: "Generation calls that fell back to the retrieved passage",
			},
			[]string{"reason"},
		),
		AskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "policyqa_ask_duration_seconds",
				Help:    "End-to-end latency of Ask in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		IndexedPassages: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "policyqa_indexed_passages",
				Help: "Number of passages currently in the index",
			},
		),
	}
}

func (m *Metrics) RecordAsk(confidence string, d time.Duration) {
	if m == nil {
		return
	}
	m.AsksTotal.WithLabelValues(confidence).Inc()
	m.AskDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordGenerationFailure(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.GenerationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetIndexed(n int) {
	if m == nil {
		return
	}
	m.IndexedPassages.Set(float64(n))
}
