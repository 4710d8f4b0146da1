package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsActive  prometheus.Gauge
	Steps           *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graphlab_sessions_created_total",
			Help: "Total number of traversal sessions created",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graphlab_sessions_active",
			Help: "Number of sessions that have not been deleted",
		}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphlab_steps_total",
			Help: "Total number of step events emitted",
		}, []string{"algorithm", "type"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graphlab_step_duration_seconds",
			Help:    "Time spent serving one step, including checkpointing",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"algorithm"}),
	}
	if reg != nil {
		reg.MustRegister(m.SessionsCreated, m.SessionsActive, m.Steps, m.StepDuration)
	}
	return m
}
