package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts venue fetch attempts by venue and result
	// (ok, error, skipped).
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oddsintel_venues_fetches_total",
			Help: "Venue fetch attempts by venue and result",
		},
		[]string{"venue", "result"},
	)

	// FetchDuration tracks venue fetch latency.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oddsintel_venues_fetch_duration_seconds",
			Help:    "Venue fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue"},
	)

	// MarketsFetched reports the market count of the most recent fetch
	// per venue.
	MarketsFetched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oddsintel_venues_markets_fetched",
			Help: "Markets returned by the most recent fetch per venue",
		},
		[]string{"venue"},
	)

	// RecordsDropped counts single venue records dropped during parsing.
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oddsintel_venues_records_dropped_total",
			Help: "Venue records dropped during parsing by venue and reason",
		},
		[]string{"venue", "reason"},
	)
)
