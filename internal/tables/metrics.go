package tables

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	directivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_extraction_directives_total",
			Help: "Total number of table directives resolved",
		},
		[]string{"target", "outcome"}, // outcome: resolved, not_found
	)

	entitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_extraction_entities_total",
			Help: "Total number of entity items processed",
		},
		[]string{"outcome"}, // outcome: resolved, placeholder, skipped
	)

	indexedTables = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docflow_extraction_indexed_tables",
			Help:    "Number of tables indexed per document",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)
)
