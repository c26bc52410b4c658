package erc20

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts deploys as they move through the correlator. A nil
// *Metrics records nothing.
type Metrics struct {
	Submitted *prometheus.CounterVec
	Processed *prometheus.CounterVec
	Pending   prometheus.Gauge
	Events    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erc20",
			Subsystem: "deploys",
			Name:      "submitted_total",
			Help:      "Deploys submitted, by operation kind.",
		}, []string{"kind"}),
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erc20",
			Subsystem: "deploys",
			Name:      "processed_total",
			Help:      "Pending deploys reported by the event stream, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erc20",
			Subsystem: "deploys",
			Name:      "pending",
			Help:      "Deploys submitted but not yet reported.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erc20",
			Subsystem: "events",
			Name:      "delivered_total",
			Help:      "Contract events delivered to the subscriber, by event_type.",
		}, []string{"event_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.Submitted, m.Processed, m.Pending, m.Events)
	}
	return m
}

func (m *Metrics) submitted(kind OperationKind) {
	if m == nil {
		return
	}
	m.Submitted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) processed(kind OperationKind, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.Processed.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) delivered(kind OperationKind) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}
