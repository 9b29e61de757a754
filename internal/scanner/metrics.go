package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts completed scan cycles.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_scanner_scans_total",
		Help: "Total number of completed scan cycles",
	})

	// ScanDurationSeconds tracks full-cycle latency.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsintel_scanner_scan_duration_seconds",
		Help:    "Duration of full scan cycles",
		Buckets: prometheus.DefBuckets,
	})

	// MarketsScanned reports the market count of the most recent cycle.
	MarketsScanned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oddsintel_scanner_markets_scanned",
		Help: "Markets collected by the most recent scan cycle",
	})

	// OpportunitiesCurrent reports opportunities published by the most
	// recent cycle, by type.
	OpportunitiesCurrent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oddsintel_scanner_opportunities",
		Help: "Opportunities published by the most recent scan cycle",
	}, []string{"type"})

	// SubscriberErrorsTotal counts subscriber callbacks that returned an
	// error or panicked.
	SubscriberErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsintel_scanner_subscriber_errors_total",
		Help: "Subscriber deliveries that returned an error or panicked",
	}, []string{"subscriber"})
)
