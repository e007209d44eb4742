package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the session broker.
type Metrics struct {
	SessionsStarted  prometheus.Counter
	SessionsEnded    *prometheus.CounterVec
	ValidateOutcomes *prometheus.CounterVec
	ValidateDuration prometheus.Histogram
}

// New creates and registers session broker metrics.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsgate_sessions_started_total",
			Help: "Total number of impersonation sessions issued",
		}),
		SessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_sessions_ended_total",
			Help: "Sessions ended, partitioned by reason",
		}, []string{"reason"}),
		ValidateOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_session_validations_total",
			Help: "Session token validations, partitioned by outcome",
		}, []string{"outcome"}),
		ValidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "opsgate_session_validate_duration_ms",
			Help:    "Latency of session validation in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
	}
}
