// Package metrics exposes Prometheus instrumentation for puzzle sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Connection outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Metrics holds the collectors for one process
type Metrics struct {
	// Evaluations counts evaluation passes by mode
	Evaluations *prometheus.CounterVec
	// Toggles counts input toggles
	Toggles prometheus.Counter
	// Connections counts connection attempts by outcome
	Connections *prometheus.CounterVec
	// Completions counts solved submissions
	Completions prometheus.Counter
	// ActiveSessions tracks sessions held by the API registry
	ActiveSessions prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logicblocks_evaluations_total",
				Help: "Total number of gate network evaluation passes",
			},
			[]string{"mode"},
		),
		Toggles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "logicblocks_toggles_total",
				Help: "Total number of input node toggles",
			},
		),
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logicblocks_connections_total",
				Help: "Total number of connection attempts",
			},
			[]string{"outcome"},
		),
		Completions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "logicblocks_completions_total",
				Help: "Total number of solved puzzle submissions",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "logicblocks_active_sessions",
				Help: "Number of puzzle sessions currently held in memory",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Evaluations, m.Toggles, m.Connections, m.Completions, m.ActiveSessions)
	}
	return m
}

// ObserveEvaluation records one evaluation pass
func (m *Metrics) ObserveEvaluation(mode string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(mode).Inc()
}

// ObserveToggle records one input toggle
func (m *Metrics) ObserveToggle() {
	if m == nil {
		return
	}
	m.Toggles.Inc()
}

// ObserveConnection records a connection attempt
func (m *Metrics) ObserveConnection(accepted bool) {
	if m == nil {
		return
	}
	outcome := OutcomeAccepted
	if !accepted {
		outcome = OutcomeRejected
	}
	m.Connections.WithLabelValues(outcome).Inc()
}

// ObserveCompletion records a solved submission
func (m *Metrics) ObserveCompletion() {
	if m == nil {
		return
	}
	m.Completions.Inc()
}

// SetActiveSessions updates the session gauge
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
