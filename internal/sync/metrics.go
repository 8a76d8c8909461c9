package sync

import "github.com/prometheus/client_golang/prometheus"

var (
	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskly_sync_runs_total",
			Help: "Total number of sync runs by outcome",
		},
		[]string{"outcome"},
	)

	syncItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskly_sync_items_total",
			Help: "Total number of outbox records processed by result",
		},
		[]string{"result"},
	)
)

// RegisterMetrics attaches the sync collectors to the registry served at
// /metrics. The counters increment regardless; without registration they are
// just not scrapeable.
func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(syncRunsTotal, syncItemsTotal)
}
