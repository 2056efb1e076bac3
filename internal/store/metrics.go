package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_store_mutations_total",
			Help: "Applied shopping-state mutations by event kind",
		},
		[]string{"kind"},
	)

	persistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_store_persist_errors_total",
			Help: "Snapshot writes that failed and were dropped",
		},
		[]string{"key"},
	)

	snapshotFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_store_snapshot_fallbacks_total",
			Help: "Malformed snapshots replaced by defaults on open",
		},
		[]string{"key"},
	)

	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_sessions_open",
		Help: "Stores currently held by the session registry",
	})
)
