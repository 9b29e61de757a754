package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DetectedTotal counts arbitrage opportunities that cleared every gate.
	DetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_arbitrage_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	})

	// RejectedTotal counts groups dropped during detection, by reason.
	RejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsintel_arbitrage_rejected_total",
		Help: "Total number of event groups rejected during arbitrage detection",
	}, []string{"reason"})

	// ProfitPct tracks the sized profit percentage of detected opportunities.
	ProfitPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsintel_arbitrage_profit_pct",
		Help:    "Profit percentage of detected arbitrage opportunities",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25},
	})

	// DetectionDuration tracks how long a full detection pass takes.
	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsintel_arbitrage_detection_duration_seconds",
		Help:    "Duration of arbitrage detection passes",
		Buckets: prometheus.DefBuckets,
	})
)
