package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	basisWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "basis",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of master-data write conflicts broken down by kind.",
	}, []string{"kind"})

	basisRebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "basis",
		Subsystem: "rebuild",
		Name:      "duration_seconds",
		Help:      "Duration of full hierarchy and permission rebuilds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"builder"})

	basisRebuildRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "basis",
		Subsystem: "rebuild",
		Name:      "rows",
		Help:      "Row count written by the last rebuild per builder.",
	}, []string{"builder"})

	basisCascadeDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "basis",
		Subsystem: "cascade",
		Name:      "deleted_total",
		Help:      "Total number of rows removed by cascade deletes per entity kind.",
	}, []string{"entity"})

	basisSnapshotsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "basis",
		Subsystem: "snapshot",
		Name:      "written_total",
		Help:      "Total number of unit snapshot rows appended.",
	})
)

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	basisWriteConflicts.WithLabelValues(kind).Inc()
}

func recordRebuild(builder string, seconds float64, rows int) {
	basisRebuildDuration.WithLabelValues(builder).Observe(seconds)
	basisRebuildRows.WithLabelValues(builder).Set(float64(rows))
}

func recordCascadeDeleted(entity string, n int64) {
	if n > 0 {
		basisCascadeDeleted.WithLabelValues(entity).Add(float64(n))
	}
}
