package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/internal/scanner"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	// writeWait bounds a single frame write to a client.
	writeWait = 10 * time.Second

	// pongWait is how long a client may stay silent before the read side
	// gives up on it; pings go out at pingPeriod to keep healthy clients
	// inside the window.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxCommandSize caps inbound frames; clients only ever send small
	// command objects.
	maxCommandSize = 1024

	// clientSendBuffer is the per-client outbound queue. A client that
	// cannot drain it loses messages rather than stalling the broadcast.
	clientSendBuffer = 32

	// wsOpportunityLimit caps opportunity lists in hub messages.
	wsOpportunityLimit = 50
)

// Hub pushes scan results to WebSocket clients and answers their commands.
// It subscribes to the scan engine like any other subscriber; a slow or dead
// client never blocks the scan loop.
type Hub struct {
	engine   *scanner.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// HubConfig holds WebSocket hub configuration.
type HubConfig struct {
	Engine *scanner.Engine
	Logger *zap.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a WebSocket hub.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		engine: cfg.Engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Advisory read-only data; any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}, nil
}

// Name implements scanner.Subscriber.
func (h *Hub) Name() string {
	return "websocket-hub"
}

type scanResultMessage struct {
	Type               string              `json:"type"`
	Timestamp          time.Time           `json:"timestamp"`
	MarketsScanned     int                 `json:"markets_scanned"`
	ScanDurationMS     float64             `json:"scan_duration_ms"`
	OpportunitiesCount int                 `json:"opportunities_count"`
	Opportunities      []types.Opportunity `json:"opportunities"`
}

// OnScanResult implements scanner.Subscriber: every published cycle is
// broadcast to all connected clients.
func (h *Hub) OnScanResult(_ context.Context, result *types.ScanResult) error {
	if h.ConnectionCount() == 0 {
		return nil
	}

	data, err := json.Marshal(scanResultMessage{
		Type:               "scan_result",
		Timestamp:          result.Timestamp,
		MarketsScanned:     result.MarketsScanned,
		ScanDurationMS:     result.ScanDurationMS,
		OpportunitiesCount: len(result.Opportunities),
		Opportunities:      topOpportunities(result.Opportunities, wsOpportunityLimit),
	})
	if err != nil {
		return fmt.Errorf("marshal scan result: %w", err)
	}

	h.broadcast(data)
	WSBroadcastsTotal.Inc()

	return nil
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	WSConnectionsActive.Inc()

	h.logger.Debug("ws-client-connected", zap.String("remote", conn.RemoteAddr().String()))

	h.sendGreeting(client)

	go h.writeLoop(client)
	h.readLoop(client)
}

type connectedMessage struct {
	Type               string    `json:"type"`
	Timestamp          time.Time `json:"timestamp"`
	ScannerRunning     bool      `json:"scanner_running"`
	OpportunitiesCount int       `json:"opportunities_count"`
	Disclaimer         string    `json:"disclaimer"`
}

type opportunitiesMessage struct {
	Type          string              `json:"type"`
	Opportunities []types.Opportunity `json:"opportunities"`
}

// sendGreeting delivers the connection handshake: current engine state, then
// the opportunity list when there is one.
func (h *Hub) sendGreeting(client *wsClient) {
	opportunities := h.engine.Opportunities()

	h.enqueue(client, connectedMessage{
		Type:               "connected",
		Timestamp:          time.Now().UTC(),
		ScannerRunning:     h.engine.IsRunning(),
		OpportunitiesCount: len(opportunities),
		Disclaimer:         instructions.Disclaimer(),
	})

	if len(opportunities) > 0 {
		h.enqueue(client, opportunitiesMessage{
			Type:          "initial_opportunities",
			Opportunities: topOpportunities(opportunities, wsOpportunityLimit),
		})
	}
}

type pongMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type statsMessage struct {
	Type               string `json:"type"`
	ScannerRunning     bool   `json:"scanner_running"`
	MarketsCount       int    `json:"markets_count"`
	OpportunitiesCount int    `json:"opportunities_count"`
	Connections        int    `json:"connections"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type clientCommand struct {
	Command string `json:"command"`
}

func (h *Hub) handleCommand(client *wsClient, data []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.enqueue(client, errorMessage{Type: "error", Message: "Invalid JSON"})
		return
	}

	switch cmd.Command {
	case "ping":
		h.enqueue(client, pongMessage{Type: "pong", Timestamp: time.Now().UTC()})

	case "get_opportunities":
		h.enqueue(client, opportunitiesMessage{
			Type:          "opportunities",
			Opportunities: topOpportunities(h.engine.Opportunities(), wsOpportunityLimit),
		})

	case "get_stats":
		stats := h.engine.Stats()
		h.enqueue(client, statsMessage{
			Type:               "stats",
			ScannerRunning:     stats.Running,
			MarketsCount:       stats.MarketsCached,
			OpportunitiesCount: stats.Opportunities,
			Connections:        h.ConnectionCount(),
		})
	}
}

// readLoop consumes client commands until the connection dies. Runs on the
// ServeHTTP goroutine.
func (h *Hub) readLoop(client *wsClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(maxCommandSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws-read-failed", zap.Error(err))
			}
			return
		}

		h.handleCommand(client, data)
	}
}

// writeLoop drains the client's send queue and keeps the connection pinged.
func (h *Hub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue marshals and queues one message for one client, dropping it when
// the client's queue is full.
func (h *Hub) enqueue(client *wsClient, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("ws-marshal-failed", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
	default:
		WSMessagesDroppedTotal.Inc()
		h.logger.Warn("ws-client-slow", zap.String("remote", client.conn.RemoteAddr().String()))
	}
}

// broadcast queues data for every connected client.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			WSMessagesDroppedTotal.Inc()
			h.logger.Warn("ws-client-slow", zap.String("remote", client.conn.RemoteAddr().String()))
		}
	}
}

// unregister removes the client and closes its queue; the write loop then
// closes the connection. Safe to call repeatedly.
func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	_, registered := h.clients[client]
	if registered {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	if registered {
		close(client.send)
		WSConnectionsActive.Dec()
		h.logger.Debug("ws-client-disconnected", zap.String("remote", client.conn.RemoteAddr().String()))
	}
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Read loops observe the closed connections
// and unregister themselves.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
	}

	return nil
}

func topOpportunities(opportunities []types.Opportunity, n int) []types.Opportunity {
	if len(opportunities) > n {
		return opportunities[:n]
	}
	return opportunities
}
