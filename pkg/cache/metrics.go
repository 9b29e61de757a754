package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_cache_hits_total",
		Help: "Total number of venue response cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_cache_misses_total",
		Help: "Total number of venue response cache misses",
	})

	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_cache_sets_total",
		Help: "Total number of venue responses cached",
	})

	CacheDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_cache_deletes_total",
		Help: "Total number of venue response cache deletes",
	})
)
