package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComparisonsTotal tracks pairwise market comparisons.
	ComparisonsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_matching_comparisons_total",
		Help: "Total number of pairwise market match evaluations",
	})

	// MergedGroupsTotal tracks cross-venue groups published.
	MergedGroupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_matching_merged_groups_total",
		Help: "Total number of cross-venue event groups published",
	})
)
