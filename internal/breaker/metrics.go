package breaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerOpen is 1 while a venue's breaker is open, 0 otherwise.
	BreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oddsintel_breaker_open",
		Help: "Whether the venue circuit breaker is currently open (1) or closed (0)",
	}, []string{"venue"})

	// StateChangesTotal counts open/close transitions per venue.
	StateChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsintel_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"venue"})

	// FailuresTotal counts recorded fetch failures per venue.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsintel_breaker_failures_total",
		Help: "Total number of venue fetch failures recorded by the breaker",
	}, []string{"venue"})
)
