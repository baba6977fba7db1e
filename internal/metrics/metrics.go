// Package metrics exposes Prometheus instrumentation for the dedup engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmpulse_dedup_analyses_started_total",
		Help: "Total number of duplicate analyses picked up by a worker",
	})

	AnalysesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmpulse_dedup_analyses_completed_total",
		Help: "Total number of duplicate analyses that completed successfully",
	})

	AnalysesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmpulse_dedup_analyses_failed_total",
		Help: "Total number of duplicate analyses that terminated in failure",
	})

	ComparisonsMade = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmpulse_dedup_comparisons_total",
		Help: "Total number of vendor pairs scored across all analyses",
	})

	DuplicatePairsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmpulse_dedup_pairs_found_total",
		Help: "Total number of candidate duplicate pairs found above threshold",
	})

	LinkOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmpulse_dedup_link_operations_total",
		Help: "Canonical link mutations by operation and outcome",
	}, []string{"operation", "outcome"})
)
