package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsSentTotal counts Telegram send attempts by outcome.
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsintel_notify_alerts_sent_total",
		Help: "Total number of Telegram alert send attempts by status",
	}, []string{"status"})

	// AlertsDroppedTotal counts alerts dropped because the queue was full.
	AlertsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_notify_alerts_dropped_total",
		Help: "Total number of alerts dropped due to a full send queue",
	})
)
