package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the alert pipeline.
type Metrics struct {
	AlertsRaised *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
}

// New creates and registers alert pipeline metrics.
func New() *Metrics {
	return &Metrics{
		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_alerts_raised_total",
			Help: "Alerts raised, partitioned by category and severity",
		}, []string{"category", "severity"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_alert_transitions_total",
			Help: "Alert lifecycle transitions, partitioned by transition",
		}, []string{"transition"}),
	}
}
