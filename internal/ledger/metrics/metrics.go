package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the justification ledger.
type Metrics struct {
	GrantsIssued  prometheus.Counter
	GrantsRevoked prometheus.Counter
	ActiveChecks  *prometheus.CounterVec
}

// New creates and registers ledger metrics.
func New() *Metrics {
	return &Metrics{
		GrantsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsgate_justifications_issued_total",
			Help: "Total number of access justifications granted",
		}),
		GrantsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsgate_justifications_revoked_total",
			Help: "Total number of access justifications revoked",
		}),
		ActiveChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_justification_active_checks_total",
			Help: "Active-grant checks partitioned by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveActiveCheck records one CheckActive outcome.
func (m *Metrics) ObserveActiveCheck(active bool) {
	outcome := "inactive"
	if active {
		outcome = "active"
	}
	m.ActiveChecks.WithLabelValues(outcome).Inc()
}
