package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/oddsintel/oddsintel/internal/testutil"
	"github.com/oddsintel/oddsintel/internal/venues"
	"github.com/oddsintel/oddsintel/pkg/config"
	"github.com/oddsintel/oddsintel/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:                "info",
		HTTPPort:                "0",
		ScanInterval:            time.Second,
		AdapterTimeout:          time.Second,
		EnabledVenues:           []string{"polymarket", "kalshi"},
		MatchThreshold:          0.45,
		MinArbProfitPct:         0.1,
		MinEVPct:                3.0,
		DefaultStakeUSD:         1000.0,
		BreakerFailureThreshold: 3,
		BreakerCooldown:         time.Minute,
		StorageMode:             "none",
	}
}

func matchedPairOptions() *Options {
	poly, kalshi := testutil.CreateMatchedMarkets()
	return &Options{
		Adapters: []venues.Adapter{
			testutil.NewMockAdapter(types.VenuePolymarket, poly),
			testutil.NewMockAdapter(types.VenueKalshi, kalshi),
		},
	}
}

func TestNew_WiresComponents(t *testing.T) {
	a, err := New(testConfig(), zaptest.NewLogger(t), matchedPairOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Shutdown()

	if a.httpServer == nil {
		t.Error("expected http server to be set")
	}
	if a.engine == nil {
		t.Error("expected engine to be set")
	}
	if a.hub == nil {
		t.Error("expected websocket hub to be set")
	}
	if a.healthChecker == nil {
		t.Error("expected health checker to be set")
	}
	if a.journal != nil {
		t.Error("expected no journal for storage mode none")
	}
	if a.notifier != nil {
		t.Error("expected no notifier without telegram credentials")
	}
}

func TestNew_ConsoleJournal(t *testing.T) {
	cfg := testConfig()
	cfg.StorageMode = "console"

	a, err := New(cfg, zaptest.NewLogger(t), matchedPairOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Shutdown()

	if a.journal == nil {
		t.Error("expected console journal to be set")
	}
}

func TestNew_BuildsAdaptersFromConfig(t *testing.T) {
	// No Options: adapters come from ENABLED_VENUES and the shared cache.
	a, err := New(testConfig(), zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Shutdown()

	if a.engine == nil {
		t.Error("expected engine to be set")
	}
}

func TestScanOnce(t *testing.T) {
	a, err := New(testConfig(), zaptest.NewLogger(t), matchedPairOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Shutdown()

	result := a.ScanOnce(context.Background())

	if result.MarketsScanned != 2 {
		t.Errorf("expected 2 markets scanned, got %d", result.MarketsScanned)
	}
	if len(result.Opportunities) != 1 {
		t.Errorf("expected 1 opportunity, got %d", len(result.Opportunities))
	}
}

func readyStatus(a *App) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	a.healthChecker.Ready()(rec, req)
	return rec.Code
}

func TestRunAndShutdown(t *testing.T) {
	a, err := New(testConfig(), zaptest.NewLogger(t), matchedPairOptions())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if status := readyStatus(a); status != http.StatusServiceUnavailable {
		t.Fatalf("expected not ready before Run, got %d", status)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	// Wait for the scan loop to come up.
	deadline := time.Now().Add(3 * time.Second)
	for !a.engine.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !a.engine.IsRunning() {
		t.Fatal("scan loop did not start")
	}
	if status := readyStatus(a); status != http.StatusOK {
		t.Errorf("expected ready during Run, got %d", status)
	}

	// Cancelling the application context triggers the shutdown path.
	a.cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown timed out")
	}

	if a.engine.IsRunning() {
		t.Error("expected scan loop stopped after shutdown")
	}
	if status := readyStatus(a); status != http.StatusServiceUnavailable {
		t.Errorf("expected not ready after shutdown, got %d", status)
	}
}
