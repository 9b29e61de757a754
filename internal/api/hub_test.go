package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

func newTestHub(t *testing.T, f *testFixture) (*Hub, *httptest.Server) {
	t.Helper()

	hub, err := NewHub(HubConfig{
		Engine: f.engine,
		Logger: zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("NewHub returned error: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, srv
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readHubMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message %q: %v", data, err)
	}

	return msg
}

func sendHubCommand(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("failed to send %q: %v", payload, err)
	}
}

func TestHubName(t *testing.T) {
	f := newTestFixture(t)
	hub, _ := newTestHub(t, f)

	if hub.Name() != "websocket-hub" {
		t.Errorf("Name() = %q", hub.Name())
	}
}

func TestHubGreeting(t *testing.T) {
	f := newTestFixture(t)
	f.scan(t)
	_, srv := newTestHub(t, f)

	conn := dialHub(t, srv)

	connected := readHubMessage(t, conn)
	if connected["type"] != "connected" {
		t.Fatalf("first message type = %v, want connected", connected["type"])
	}
	if connected["opportunities_count"] != float64(1) {
		t.Errorf("opportunities_count = %v, want 1", connected["opportunities_count"])
	}
	disclaimer, _ := connected["disclaimer"].(string)
	if !strings.Contains(disclaimer, "DISCLAIMER") {
		t.Errorf("disclaimer missing, got %q", disclaimer)
	}

	initial := readHubMessage(t, conn)
	if initial["type"] != "initial_opportunities" {
		t.Fatalf("second message type = %v, want initial_opportunities", initial["type"])
	}
	opportunities, _ := initial["opportunities"].([]any)
	if len(opportunities) != 1 {
		t.Errorf("len(opportunities) = %d, want 1", len(opportunities))
	}
}

func TestHubGreetingWithoutOpportunities(t *testing.T) {
	f := newTestFixture(t)
	_, srv := newTestHub(t, f)

	conn := dialHub(t, srv)

	connected := readHubMessage(t, conn)
	if connected["type"] != "connected" {
		t.Fatalf("first message type = %v, want connected", connected["type"])
	}
	if connected["opportunities_count"] != float64(0) {
		t.Errorf("opportunities_count = %v, want 0", connected["opportunities_count"])
	}

	// No opportunities, so the next message must answer the ping directly.
	sendHubCommand(t, conn, `{"command":"ping"}`)
	next := readHubMessage(t, conn)
	if next["type"] != "pong" {
		t.Errorf("next message type = %v, want pong", next["type"])
	}
}

func TestHubInvalidJSON(t *testing.T) {
	f := newTestFixture(t)
	_, srv := newTestHub(t, f)

	conn := dialHub(t, srv)
	readHubMessage(t, conn) // connected

	sendHubCommand(t, conn, "this is not json")

	msg := readHubMessage(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("type = %v, want error", msg["type"])
	}
	if msg["message"] != "Invalid JSON" {
		t.Errorf("message = %v, want Invalid JSON", msg["message"])
	}
}

func TestHubGetOpportunities(t *testing.T) {
	f := newTestFixture(t)
	f.scan(t)
	_, srv := newTestHub(t, f)

	conn := dialHub(t, srv)
	readHubMessage(t, conn) // connected
	readHubMessage(t, conn) // initial_opportunities

	sendHubCommand(t, conn, `{"command":"get_opportunities"}`)

	msg := readHubMessage(t, conn)
	if msg["type"] != "opportunities" {
		t.Fatalf("type = %v, want opportunities", msg["type"])
	}
	opportunities, _ := msg["opportunities"].([]any)
	if len(opportunities) != 1 {
		t.Errorf("len(opportunities) = %d, want 1", len(opportunities))
	}
}

func TestHubGetStats(t *testing.T) {
	f := newTestFixture(t)
	f.scan(t)
	_, srv := newTestHub(t, f)

	conn := dialHub(t, srv)
	readHubMessage(t, conn) // connected
	readHubMessage(t, conn) // initial_opportunities

	sendHubCommand(t, conn, `{"command":"get_stats"}`)

	msg := readHubMessage(t, conn)
	if msg["type"] != "stats" {
		t.Fatalf("type = %v, want stats", msg["type"])
	}
	if msg["markets_count"] != float64(2) {
		t.Errorf("markets_count = %v, want 2", msg["markets_count"])
	}
	if msg["opportunities_count"] != float64(1) {
		t.Errorf("opportunities_count = %v, want 1", msg["opportunities_count"])
	}
	if msg["connections"] != float64(1) {
		t.Errorf("connections = %v, want 1", msg["connections"])
	}
}

func TestHubBroadcastsScanResults(t *testing.T) {
	f := newTestFixture(t)
	hub, srv := newTestHub(t, f)
	f.engine.Subscribe(hub)

	conn := dialHub(t, srv)
	readHubMessage(t, conn) // connected; guarantees registration

	f.engine.ScanOnce(context.Background())

	msg := readHubMessage(t, conn)
	if msg["type"] != "scan_result" {
		t.Fatalf("type = %v, want scan_result", msg["type"])
	}
	if msg["markets_scanned"] != float64(2) {
		t.Errorf("markets_scanned = %v, want 2", msg["markets_scanned"])
	}
	if msg["opportunities_count"] != float64(1) {
		t.Errorf("opportunities_count = %v, want 1", msg["opportunities_count"])
	}
	opportunities, _ := msg["opportunities"].([]any)
	if len(opportunities) != 1 {
		t.Errorf("len(opportunities) = %d, want 1", len(opportunities))
	}
}

func TestHubTracksConnections(t *testing.T) {
	f := newTestFixture(t)
	hub, srv := newTestHub(t, f)

	first := dialHub(t, srv)
	readHubMessage(t, first)
	second := dialHub(t, srv)
	readHubMessage(t, second)

	if hub.ConnectionCount() != 2 {
		t.Errorf("ConnectionCount() = %d, want 2", hub.ConnectionCount())
	}

	first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("ConnectionCount() = %d, want 1 after disconnect", hub.ConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	f := newTestFixture(t)
	hub, srv := newTestHub(t, f)

	conn := dialHub(t, srv)
	readHubMessage(t, conn)

	if err := hub.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub close")
	}
}
