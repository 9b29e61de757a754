package ev

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DetectedTotal counts emitted positive expected value opportunities.
	DetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_ev_detected_total",
		Help: "Total number of positive expected value opportunities detected",
	})

	// SkippedGroupsTotal counts event groups skipped before grading, by reason.
	SkippedGroupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsintel_ev_skipped_groups_total",
		Help: "Total number of event groups skipped during expected value detection",
	}, []string{"reason"})

	// EVPct tracks the expected value percentage of emitted opportunities.
	EVPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsintel_ev_pct",
		Help:    "Expected value percentage of detected opportunities",
		Buckets: []float64{3, 5, 10, 15, 25, 50, 100},
	})

	// DetectionDuration tracks how long a full detection pass takes.
	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsintel_ev_detection_duration_seconds",
		Help:    "Duration of expected value detection passes",
		Buckets: prometheus.DefBuckets,
	})
)
