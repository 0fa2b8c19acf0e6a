// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsProcessedTotal tracks documents processed by outcome
	DocumentsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total number of documents processed by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionsTotal tracks party resolutions by kind and method
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of party resolutions by kind and method",
		},
		[]string{"kind", "method"},
	)

	// EntitiesCreatedTotal tracks auto-created entities by kind
	EntitiesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "resolver",
			Name:      "entities_created_total",
			Help:      "Total number of auto-created entities by kind",
		},
		[]string{"kind"},
	)

	// DuplicateGroupsTotal tracks duplicate groups created
	DuplicateGroupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "dedup",
			Name:      "groups_total",
			Help:      "Total number of duplicate groups created",
		},
	)

	// DuplicateGroupsPending tracks duplicate groups awaiting resolution
	DuplicateGroupsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "dedup",
			Name:      "groups_pending",
			Help:      "Number of duplicate groups awaiting resolution",
		},
	)

	// ResolutionDuration tracks end-to-end document resolution duration
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Duration of end-to-end document processing in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)
