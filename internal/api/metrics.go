package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanRequestsTotal counts manual scans triggered over the API.
	ScanRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_api_scan_requests_total",
		Help: "Total number of manually triggered scans",
	})

	// WSConnectionsActive tracks connected WebSocket clients.
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oddsintel_api_ws_connections",
		Help: "Currently connected WebSocket clients",
	})

	// WSBroadcastsTotal counts scan results pushed to clients.
	WSBroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_api_ws_broadcasts_total",
		Help: "Total number of scan result broadcasts",
	})

	// WSMessagesDroppedTotal counts messages dropped on slow clients.
	WSMessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsintel_api_ws_messages_dropped_total",
		Help: "Messages dropped because a client send queue was full",
	})
)
