package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the action recorder.
type Metrics struct {
	EntriesAppended prometheus.Counter
	EntriesDropped  prometheus.Counter
	AppendFailures  prometheus.Counter
}

// New creates and registers action recorder metrics.
func New() *Metrics {
	return &Metrics{
		EntriesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsgate_action_log_entries_total",
			Help: "Action log entries successfully appended",
		}),
		EntriesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsgate_action_log_dropped_total",
			Help: "Action log entries dropped because the inbox was full",
		}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "opsgate_action_log_append_failures_total",
			Help: "Action log appends that failed at the store and were swallowed",
		}),
	}
}
