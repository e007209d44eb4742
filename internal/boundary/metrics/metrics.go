package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the boundary approval engine.
type Metrics struct {
	Decisions    *prometheus.CounterVec
	BulkOutcomes *prometheus.CounterVec
}

// New creates and registers boundary approval metrics.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_boundary_decisions_total",
			Help: "Boundary request decisions, partitioned by outcome",
		}, []string{"outcome"}),
		BulkOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgate_boundary_bulk_members_total",
			Help: "Bulk decision members, partitioned by result",
		}, []string{"result"}),
	}
}
