package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/oddsintel/oddsintel/internal/arbitrage"
	"github.com/oddsintel/oddsintel/internal/breaker"
	"github.com/oddsintel/oddsintel/internal/ev"
	"github.com/oddsintel/oddsintel/internal/matching"
	"github.com/oddsintel/oddsintel/internal/venues"
	"github.com/oddsintel/oddsintel/pkg/types"
)

type stubAdapter struct {
	name   string
	err    error
	panics bool
	block  bool

	mu      sync.Mutex
	calls   int
	markets []types.Market
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	s.mu.Lock()
	s.calls++
	markets := make([]types.Market, len(s.markets))
	copy(markets, s.markets)
	s.mu.Unlock()

	if s.panics {
		panic("adapter exploded")
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}

	return markets, nil
}

func (s *stubAdapter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubAdapter) setMarkets(markets []types.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets = markets
}

type deliveryLog struct {
	mu    sync.Mutex
	names []string
}

func (l *deliveryLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *deliveryLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

type stubSubscriber struct {
	name   string
	err    error
	panics bool
	log    *deliveryLog

	mu    sync.Mutex
	calls int
	last  *types.ScanResult
}

func (s *stubSubscriber) Name() string { return s.name }

func (s *stubSubscriber) OnScanResult(_ context.Context, result *types.ScanResult) error {
	s.mu.Lock()
	s.calls++
	s.last = result
	s.mu.Unlock()

	if s.log != nil {
		s.log.record(s.name)
	}
	if s.panics {
		panic("subscriber exploded")
	}

	return s.err
}

func (s *stubSubscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSubscriber) lastResult() *types.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type stubJournal struct {
	err error

	mu   sync.Mutex
	keys []string
}

func (j *stubJournal) StoreOpportunity(_ context.Context, opp *types.Opportunity) error {
	if j.err != nil {
		return j.err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.keys = append(j.keys, opp.Key())
	return nil
}

func (j *stubJournal) stored() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.keys))
	copy(out, j.keys)
	return out
}

func binaryMarket(eventID, venue, sport, eventName string, yesOdds, noOdds float64) types.Market {
	now := time.Now().UTC()
	return types.Market{
		EventID:    eventID,
		Sport:      sport,
		EventName:  eventName,
		MarketType: types.MarketTypeBinary,
		Outcomes: []types.Outcome{
			{Name: "Yes", OddsDecimal: yesOdds, Venue: venue, ObservedAt: now},
			{Name: "No", OddsDecimal: noOdds, Venue: venue, ObservedAt: now},
		},
	}
}

// rainMarkets is a cross-venue pair whose best prices (Yes 2.3 on polymarket,
// No 2.4 on kalshi) sum to an implied 0.8514, a guaranteed 17.45% return.
// Both venues are probability anchors, so no EV opportunity comes out of it.
func rainMarkets() (types.Market, types.Market) {
	poly := binaryMarket("polymarket_0xabc", types.VenuePolymarket, "prediction",
		"Rain in London on Friday", 2.3, 1.7)
	kalshi := binaryMarket("kalshi_RAIN-LON", types.VenueKalshi, "prediction",
		"Rain in London on Friday", 1.8, 2.4)
	return poly, kalshi
}

func newTestEngine(t *testing.T, adapters []venues.Adapter, journal Journal, brk *breaker.Breaker) *Engine {
	t.Helper()

	logger := zaptest.NewLogger(t)

	arbDetector, err := arbitrage.New(arbitrage.Config{
		MinProfitPct: 0.1,
		StakeUSD:     1000,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("arbitrage.New returned error: %v", err)
	}

	evDetector, err := ev.New(ev.Config{
		MinEVPct: 3.0,
		StakeUSD: 1000,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("ev.New returned error: %v", err)
	}

	if brk == nil {
		brk, err = breaker.New(breaker.Config{
			FailureThreshold: 3,
			Cooldown:         time.Minute,
			Logger:           logger,
		})
		if err != nil {
			t.Fatalf("breaker.New returned error: %v", err)
		}
	}

	engine, err := New(Config{
		Adapters:       adapters,
		Matcher:        matching.New(matching.Config{Logger: logger}),
		ArbDetector:    arbDetector,
		EVDetector:     evDetector,
		Breaker:        brk,
		Journal:        journal,
		Interval:       10 * time.Millisecond,
		AdapterTimeout: 250 * time.Millisecond,
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	return engine
}

func TestNewValidatesConfig(t *testing.T) {
	logger := zaptest.NewLogger(t)

	arbDetector, _ := arbitrage.New(arbitrage.Config{MinProfitPct: 0.1, StakeUSD: 1000})
	evDetector, _ := ev.New(ev.Config{MinEVPct: 3.0, StakeUSD: 1000})
	brk, _ := breaker.New(breaker.Config{FailureThreshold: 3, Cooldown: time.Minute})
	matcher := matching.New(matching.Config{Logger: logger})

	valid := Config{
		Matcher:        matcher,
		ArbDetector:    arbDetector,
		EVDetector:     evDetector,
		Breaker:        brk,
		Interval:       time.Second,
		AdapterTimeout: time.Second,
	}

	if _, err := New(valid); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil_matcher", func(c *Config) { c.Matcher = nil }},
		{"nil_arb_detector", func(c *Config) { c.ArbDetector = nil }},
		{"nil_ev_detector", func(c *Config) { c.EVDetector = nil }},
		{"nil_breaker", func(c *Config) { c.Breaker = nil }},
		{"zero_interval", func(c *Config) { c.Interval = 0 }},
		{"zero_adapter_timeout", func(c *Config) { c.AdapterTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected config error, got nil")
			}
		})
	}
}

func TestScanOnceDetectsCrossVenueArbitrage(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	result := engine.ScanOnce(context.Background())

	if result.MarketsScanned != 2 {
		t.Fatalf("expected 2 markets scanned, got %d", result.MarketsScanned)
	}
	if len(result.Opportunities) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(result.Opportunities))
	}

	opp := result.Opportunities[0]
	if opp.Type != types.OpportunityArbitrage {
		t.Errorf("expected ARBITRAGE, got %s", opp.Type)
	}
	if opp.EventID != "matched_rain_in_london_on_friday" {
		t.Errorf("unexpected event id %q", opp.EventID)
	}
	if opp.ProfitPct < 17.44 || opp.ProfitPct > 17.45 {
		t.Errorf("expected profit near 17.45%%, got %.4f", opp.ProfitPct)
	}
	if opp.Risk != types.RiskLow {
		t.Errorf("expected LOW risk across prediction venues, got %s", opp.Risk)
	}
	if len(opp.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(opp.Instructions))
	}
	legVenues := map[string]bool{}
	for _, inst := range opp.Instructions {
		legVenues[inst.Venue] = true
	}
	if !legVenues[types.VenuePolymarket] || !legVenues[types.VenueKalshi] {
		t.Errorf("expected legs on both venues, got %v", legVenues)
	}

	markets := engine.Markets()
	if len(markets) != 2 {
		t.Fatalf("expected 2 cached markets, got %d", len(markets))
	}
	// Sorted by snapshot key: kalshi_RAIN-LON_kalshi < polymarket_0xabc_polymarket.
	if markets[0].Venue() != types.VenueKalshi || markets[1].Venue() != types.VenuePolymarket {
		t.Errorf("unexpected snapshot order: %s, %s", markets[0].Venue(), markets[1].Venue())
	}
}

func TestScanOnceDetectsEVAgainstAnchor(t *testing.T) {
	anchor := binaryMarket("manifold_abc", types.VenueManifold, "politics",
		"Smith wins the nomination", 2.0, 2.0)
	betting := binaryMarket("predictit_123", types.VenuePredictIt, "politics",
		"Smith wins the nomination", 2.5, 1.8)

	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenueManifold, markets: []types.Market{anchor}},
		&stubAdapter{name: types.VenuePredictIt, markets: []types.Market{betting}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	result := engine.ScanOnce(context.Background())

	// Yes at 2.5 against a 50% anchor is both one arbitrage leg and a +EV
	// single, so the cycle publishes one of each, EV first on profit.
	if len(result.Opportunities) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(result.Opportunities))
	}
	if result.Opportunities[0].Type != types.OpportunityEV {
		t.Errorf("expected EV sorted first, got %s", result.Opportunities[0].Type)
	}
	if result.Opportunities[1].Type != types.OpportunityArbitrage {
		t.Errorf("expected ARBITRAGE second, got %s", result.Opportunities[1].Type)
	}

	evOpp := result.Opportunities[0]
	if evOpp.ProfitPct != 24.0 {
		t.Errorf("expected 24%% EV, got %.4f", evOpp.ProfitPct)
	}
	if len(evOpp.Instructions) != 1 {
		t.Fatalf("expected single-leg EV instruction, got %d", len(evOpp.Instructions))
	}
	if evOpp.Instructions[0].Venue != types.VenuePredictIt {
		t.Errorf("expected predictit leg, got %s", evOpp.Instructions[0].Venue)
	}

	for i := 1; i < len(result.Opportunities); i++ {
		if result.Opportunities[i].ProfitPct > result.Opportunities[i-1].ProfitPct {
			t.Errorf("opportunities not sorted descending at %d", i)
		}
	}
}

func TestScanOnceConcatenatesInRegistrationOrder(t *testing.T) {
	// The same pair registered in both orders: the published event name
	// follows the first market in group order, so it must track
	// registration order.
	poly := binaryMarket("polymarket_0xabc", types.VenuePolymarket, "prediction",
		"Rain in London on Friday", 2.3, 1.7)
	kalshi := binaryMarket("kalshi_RAIN-LON", types.VenueKalshi, "prediction",
		"Rain in London on Friday?", 1.8, 2.4)

	polyAdapter := &stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}}
	kalshiAdapter := &stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}}

	polyFirst := newTestEngine(t, []venues.Adapter{polyAdapter, kalshiAdapter}, nil, nil)
	kalshiFirst := newTestEngine(t, []venues.Adapter{kalshiAdapter, polyAdapter}, nil, nil)

	result1 := polyFirst.ScanOnce(context.Background())
	result2 := kalshiFirst.ScanOnce(context.Background())

	if len(result1.Opportunities) != 1 || len(result2.Opportunities) != 1 {
		t.Fatalf("expected 1 opportunity each, got %d and %d",
			len(result1.Opportunities), len(result2.Opportunities))
	}
	if got := result1.Opportunities[0].EventName; got != "Rain in London on Friday" {
		t.Errorf("poly-first engine: unexpected event name %q", got)
	}
	if got := result2.Opportunities[0].EventName; got != "Rain in London on Friday?" {
		t.Errorf("kalshi-first engine: unexpected event name %q", got)
	}
	// The canonical group key normalizes punctuation away, so both orders
	// publish under the same key.
	if result1.Opportunities[0].EventID != result2.Opportunities[0].EventID {
		t.Errorf("expected identical group keys, got %q and %q",
			result1.Opportunities[0].EventID, result2.Opportunities[0].EventID)
	}
}

func TestScanOnceIsolatesVenueFailures(t *testing.T) {
	poly, kalshi := rainMarkets()
	failing := &stubAdapter{name: "predictit", err: errors.New("upstream down")}
	panicking := &stubAdapter{name: "manifold", panics: true}

	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		failing,
		panicking,
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}

	logger := zaptest.NewLogger(t)
	brk, err := breaker.New(breaker.Config{FailureThreshold: 3, Cooldown: time.Minute, Logger: logger})
	if err != nil {
		t.Fatalf("breaker.New returned error: %v", err)
	}
	engine := newTestEngine(t, adapters, nil, brk)

	result := engine.ScanOnce(context.Background())

	if result.MarketsScanned != 2 {
		t.Fatalf("expected healthy venues' 2 markets, got %d", result.MarketsScanned)
	}
	if len(result.Opportunities) != 1 {
		t.Fatalf("expected 1 opportunity from healthy venues, got %d", len(result.Opportunities))
	}

	if got := brk.VenueStatus("predictit").ConsecutiveFailures; got != 1 {
		t.Errorf("expected 1 recorded failure for predictit, got %d", got)
	}
	if got := brk.VenueStatus("manifold").ConsecutiveFailures; got != 1 {
		t.Errorf("expected 1 recorded failure for manifold, got %d", got)
	}
	if got := brk.VenueStatus(types.VenuePolymarket).ConsecutiveFailures; got != 0 {
		t.Errorf("expected no failures for polymarket, got %d", got)
	}
}

func TestScanOnceEnforcesAdapterTimeout(t *testing.T) {
	poly, kalshi := rainMarkets()
	slow := &stubAdapter{name: "betfair", block: true}

	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		slow,
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}

	logger := zaptest.NewLogger(t)
	brk, err := breaker.New(breaker.Config{FailureThreshold: 3, Cooldown: time.Minute, Logger: logger})
	if err != nil {
		t.Fatalf("breaker.New returned error: %v", err)
	}
	engine := newTestEngine(t, adapters, nil, brk)

	start := time.Now()
	result := engine.ScanOnce(context.Background())
	elapsed := time.Since(start)

	if elapsed > 5*time.Second {
		t.Fatalf("scan did not respect adapter timeout, took %v", elapsed)
	}
	if result.MarketsScanned != 2 {
		t.Fatalf("expected 2 markets from fast venues, got %d", result.MarketsScanned)
	}
	if got := brk.VenueStatus("betfair").ConsecutiveFailures; got != 1 {
		t.Errorf("expected timeout recorded as failure, got %d", got)
	}
}

func TestScanOnceSkipsOpenBreakerVenues(t *testing.T) {
	poly, _ := rainMarkets()
	flaky := &stubAdapter{name: types.VenueKalshi, err: errors.New("boom")}

	logger := zaptest.NewLogger(t)
	brk, err := breaker.New(breaker.Config{FailureThreshold: 1, Cooldown: time.Hour, Logger: logger})
	if err != nil {
		t.Fatalf("breaker.New returned error: %v", err)
	}

	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		flaky,
	}
	engine := newTestEngine(t, adapters, nil, brk)

	engine.ScanOnce(context.Background())
	if got := flaky.callCount(); got != 1 {
		t.Fatalf("expected first scan to call flaky adapter, got %d calls", got)
	}
	if got := brk.VenueStatus(types.VenueKalshi).State; got != breaker.StateOpen {
		t.Fatalf("expected breaker open after first failure, got %s", got)
	}

	result := engine.ScanOnce(context.Background())
	if got := flaky.callCount(); got != 1 {
		t.Errorf("expected open venue to be skipped, got %d calls", got)
	}
	if result.MarketsScanned != 1 {
		t.Errorf("expected healthy venue's 1 market, got %d", result.MarketsScanned)
	}
}

func TestScanTimestampsNonDecreasing(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	var previous time.Time
	for i := 0; i < 5; i++ {
		result := engine.ScanOnce(context.Background())
		if result.Timestamp.Before(previous) {
			t.Fatalf("scan %d: timestamp %v before previous %v", i, result.Timestamp, previous)
		}
		if got := engine.LastScan(); !got.Equal(result.Timestamp) {
			t.Errorf("scan %d: LastScan %v != result timestamp %v", i, got, result.Timestamp)
		}
		previous = result.Timestamp
	}
}

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	log := &deliveryLog{}
	first := &stubSubscriber{name: "alerts", log: log}
	second := &stubSubscriber{name: "storage", log: log}
	engine.Subscribe(first)
	engine.Subscribe(second)

	result := engine.ScanOnce(context.Background())

	order := log.snapshot()
	if len(order) != 2 || order[0] != "alerts" || order[1] != "storage" {
		t.Fatalf("expected delivery order [alerts storage], got %v", order)
	}
	if first.lastResult() != result {
		t.Error("subscriber did not receive the published result")
	}
}

func TestSubscriberFailuresAreIsolated(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	panicking := &stubSubscriber{name: "bad", panics: true}
	erroring := &stubSubscriber{name: "flaky", err: errors.New("send failed")}
	healthy := &stubSubscriber{name: "good"}
	engine.Subscribe(panicking)
	engine.Subscribe(erroring)
	engine.Subscribe(healthy)

	engine.ScanOnce(context.Background())
	engine.ScanOnce(context.Background())

	// Failing subscribers stay registered and keep receiving results, and
	// never block later subscribers.
	if got := panicking.callCount(); got != 2 {
		t.Errorf("expected panicking subscriber to receive 2 results, got %d", got)
	}
	if got := erroring.callCount(); got != 2 {
		t.Errorf("expected erroring subscriber to receive 2 results, got %d", got)
	}
	if got := healthy.callCount(); got != 2 {
		t.Errorf("expected healthy subscriber to receive 2 results, got %d", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	sub := &stubSubscriber{name: "ws"}
	engine.Subscribe(sub)

	engine.ScanOnce(context.Background())
	engine.Unsubscribe(sub)
	engine.ScanOnce(context.Background())

	if got := sub.callCount(); got != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", got)
	}
}

func TestJournalReceivesOnlyNewOpportunities(t *testing.T) {
	poly, kalshi := rainMarkets()
	polyAdapter := &stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}}
	kalshiAdapter := &stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}}

	journal := &stubJournal{}
	engine := newTestEngine(t, []venues.Adapter{polyAdapter, kalshiAdapter}, journal, nil)

	engine.ScanOnce(context.Background())
	engine.ScanOnce(context.Background())

	stored := journal.stored()
	if len(stored) != 1 {
		t.Fatalf("expected repeat detection journaled once, got %v", stored)
	}
	if stored[0] != "ARBITRAGE:matched_rain_in_london_on_friday" {
		t.Errorf("unexpected journal key %q", stored[0])
	}

	// A venue dropping the market and re-listing it makes it new again.
	kalshiAdapter.setMarkets(nil)
	engine.ScanOnce(context.Background())
	kalshiAdapter.setMarkets([]types.Market{kalshi})
	engine.ScanOnce(context.Background())

	stored = journal.stored()
	if len(stored) != 2 {
		t.Fatalf("expected re-detection journaled again, got %v", stored)
	}
}

func TestJournalErrorsDoNotFailScan(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	journal := &stubJournal{err: errors.New("db down")}
	engine := newTestEngine(t, adapters, journal, nil)

	result := engine.ScanOnce(context.Background())
	if len(result.Opportunities) != 1 {
		t.Fatalf("expected scan to publish despite journal failure, got %d opportunities",
			len(result.Opportunities))
	}
}

func TestStatsAndAccessors(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	if engine.IsRunning() {
		t.Error("expected engine not running before Run")
	}
	if !engine.LastScan().IsZero() {
		t.Error("expected zero last scan before first cycle")
	}

	engine.ScanOnce(context.Background())

	stats := engine.Stats()
	if stats.Running {
		t.Error("expected running=false outside Run loop")
	}
	if stats.ScansRun != 1 {
		t.Errorf("expected 1 scan run, got %d", stats.ScansRun)
	}
	if stats.MarketsCached != 2 {
		t.Errorf("expected 2 cached markets, got %d", stats.MarketsCached)
	}
	if stats.Opportunities != 1 {
		t.Errorf("expected 1 opportunity, got %d", stats.Opportunities)
	}
	if stats.LastScan.IsZero() {
		t.Error("expected last scan timestamp to be set")
	}

	opportunities := engine.Opportunities()
	if len(opportunities) != 1 {
		t.Fatalf("expected 1 opportunity from accessor, got %d", len(opportunities))
	}

	// Accessors return copies: mutating the returned slice must not leak
	// into published state.
	opportunities[0].EventID = "mutated"
	if engine.Opportunities()[0].EventID == "mutated" {
		t.Error("Opportunities returned a live reference to published state")
	}
}

func TestRunLoopScansUntilCancelled(t *testing.T) {
	poly, kalshi := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
		&stubAdapter{name: types.VenueKalshi, markets: []types.Market{kalshi}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for engine.Stats().ScansRun < 2 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for scan cycles")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !engine.IsRunning() {
		t.Error("expected IsRunning true during Run")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run to stop")
	}

	if engine.IsRunning() {
		t.Error("expected IsRunning false after Run returns")
	}
}

func TestRunRejectsSecondLoop(t *testing.T) {
	poly, _ := rainMarkets()
	adapters := []venues.Adapter{
		&stubAdapter{name: types.VenuePolymarket, markets: []types.Market{poly}},
	}
	engine := newTestEngine(t, adapters, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for !engine.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for Run to start")
		case <-time.After(time.Millisecond):
		}
	}

	if err := engine.Run(ctx); err == nil {
		t.Error("expected second Run to fail while loop is active")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run to stop")
	}
}
