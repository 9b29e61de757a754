package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/arbitrage"
	"github.com/oddsintel/oddsintel/internal/breaker"
	"github.com/oddsintel/oddsintel/internal/ev"
	"github.com/oddsintel/oddsintel/internal/matching"
	"github.com/oddsintel/oddsintel/internal/venues"
	"github.com/oddsintel/oddsintel/pkg/types"
)

// Subscriber receives every published scan result, in registration order.
// A subscriber that returns an error or panics is logged and kept; it is
// never removed from the rotation on failure.
type Subscriber interface {
	Name() string
	OnScanResult(ctx context.Context, result *types.ScanResult) error
}

// Journal is a write-only sink for newly detected opportunities. Store
// failures are logged and never fail the scan.
type Journal interface {
	StoreOpportunity(ctx context.Context, opp *types.Opportunity) error
}

// Config holds scan engine configuration.
type Config struct {
	// Adapters are fetched concurrently each cycle; their registration
	// order fixes the market concatenation order, which keeps grouping
	// and detection deterministic across cycles.
	Adapters []venues.Adapter

	Matcher     *matching.Matcher
	ArbDetector *arbitrage.Detector
	EVDetector  *ev.Detector

	// Breaker gates venues out of the rotation after repeated failures.
	Breaker *breaker.Breaker

	// Journal is optional; nil disables journaling.
	Journal Journal

	// Interval is the pause between scan cycles in Run.
	Interval time.Duration

	// AdapterTimeout bounds each venue fetch within a cycle.
	AdapterTimeout time.Duration

	Logger *zap.Logger
}

// Engine runs the scan cycle: fetch all venues, snapshot, group, detect,
// publish, notify. Published state is read-locked so API handlers see either
// the previous cycle or the new one, never a mix.
type Engine struct {
	adapters       []venues.Adapter
	matcher        *matching.Matcher
	arb            *arbitrage.Detector
	ev             *ev.Detector
	breaker        *breaker.Breaker
	journal        Journal
	interval       time.Duration
	adapterTimeout time.Duration
	logger         *zap.Logger

	// scanMu serializes whole cycles so a manual scan and the loop never
	// interleave publication.
	scanMu sync.Mutex

	mu            sync.RWMutex
	snapshot      map[string]types.Market
	opportunities []types.Opportunity
	lastScan      time.Time
	scanDuration  time.Duration
	scansRun      int64
	journaled     map[string]struct{}

	running atomic.Bool

	subMu       sync.Mutex
	subscribers []Subscriber
}

// Stats is a point-in-time summary of engine state.
type Stats struct {
	Running        bool      `json:"running"`
	ScansRun       int64     `json:"scans_run"`
	MarketsCached  int       `json:"markets_cached"`
	Opportunities  int       `json:"opportunities"`
	LastScan       time.Time `json:"last_scan"`
	ScanDurationMS float64   `json:"scan_duration_ms"`
}

// New creates a scan engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if cfg.ArbDetector == nil {
		return nil, fmt.Errorf("arbitrage detector is required")
	}
	if cfg.EVDetector == nil {
		return nil, fmt.Errorf("ev detector is required")
	}
	if cfg.Breaker == nil {
		return nil, fmt.Errorf("breaker is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}
	if cfg.AdapterTimeout <= 0 {
		return nil, fmt.Errorf("adapter timeout must be positive, got %v", cfg.AdapterTimeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		adapters:       cfg.Adapters,
		matcher:        cfg.Matcher,
		arb:            cfg.ArbDetector,
		ev:             cfg.EVDetector,
		breaker:        cfg.Breaker,
		journal:        cfg.Journal,
		interval:       cfg.Interval,
		adapterTimeout: cfg.AdapterTimeout,
		logger:         logger,
		snapshot:       make(map[string]types.Market),
		journaled:      make(map[string]struct{}),
	}, nil
}

// Run scans continuously until ctx is cancelled, sleeping Interval between
// cycles. Cancellation observed mid-cycle still lets that cycle publish.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scanner already running")
	}
	defer e.running.Store(false)

	e.logger.Info("scanner-starting",
		zap.Duration("interval", e.interval),
		zap.Int("adapters", len(e.adapters)))

	for {
		result := e.ScanOnce(ctx)
		e.logger.Info("scan-complete",
			zap.Int("markets", result.MarketsScanned),
			zap.Int("opportunities", len(result.Opportunities)),
			zap.Float64("duration_ms", result.ScanDurationMS))

		select {
		case <-ctx.Done():
			e.logger.Info("scanner-stopping")
			return ctx.Err()
		case <-time.After(e.interval):
		}
	}
}

// ScanOnce performs a single scan cycle and returns its published result.
// Venue failures are absorbed: a failing adapter contributes no markets and
// a breaker failure, never an aborted cycle.
func (e *Engine) ScanOnce(ctx context.Context) *types.ScanResult {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	start := time.Now()

	markets := e.fetchAll(ctx)

	snapshot := make(map[string]types.Market, len(markets))
	for i := range markets {
		snapshot[markets[i].SnapshotKey()] = markets[i]
	}

	groups := e.matcher.Group(markets)

	opportunities := e.arb.Detect(groups)
	opportunities = append(opportunities, e.ev.Detect(groups)...)

	// Stable: equal-profit opportunities keep detection order.
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].ProfitPct > opportunities[j].ProfitPct
	})

	duration := time.Since(start)

	e.mu.Lock()
	timestamp := time.Now().UTC()
	if timestamp.Before(e.lastScan) {
		timestamp = e.lastScan
	}
	e.snapshot = snapshot
	e.opportunities = opportunities
	e.lastScan = timestamp
	e.scanDuration = duration
	e.scansRun++
	fresh := e.claimFreshLocked(opportunities)
	e.mu.Unlock()

	ScansTotal.Inc()
	ScanDurationSeconds.Observe(duration.Seconds())
	MarketsScanned.Set(float64(len(markets)))
	e.publishOpportunityGauges(opportunities)

	result := &types.ScanResult{
		Opportunities:  opportunities,
		MarketsScanned: len(markets),
		ScanDurationMS: duration.Seconds() * 1000,
		Timestamp:      timestamp,
	}

	e.journalFresh(ctx, fresh)
	e.notifySubscribers(ctx, result)

	return result
}

// fetchAll runs every allowed adapter concurrently and concatenates their
// markets in registration order.
func (e *Engine) fetchAll(ctx context.Context) []types.Market {
	results := make([]fetchResult, len(e.adapters))

	var wg sync.WaitGroup
	for i, adapter := range e.adapters {
		if !e.breaker.Allow(adapter.Name()) {
			results[i].skipped = true
			venues.FetchesTotal.WithLabelValues(adapter.Name(), "skipped").Inc()
			e.logger.Debug("venue-cooling-down", zap.String("venue", adapter.Name()))
			continue
		}

		wg.Add(1)
		go func(i int, adapter venues.Adapter) {
			defer wg.Done()
			results[i] = e.fetchOne(ctx, adapter)
		}(i, adapter)
	}
	wg.Wait()

	var all []types.Market
	for i, adapter := range e.adapters {
		res := results[i]
		switch {
		case res.skipped:
		case res.err != nil:
			e.breaker.RecordFailure(adapter.Name(), res.err)
			venues.FetchesTotal.WithLabelValues(adapter.Name(), "error").Inc()
			e.logger.Error("venue-fetch-failed",
				zap.String("venue", adapter.Name()),
				zap.Error(res.err))
		default:
			e.breaker.RecordSuccess(adapter.Name())
			venues.FetchesTotal.WithLabelValues(adapter.Name(), "ok").Inc()
			venues.MarketsFetched.WithLabelValues(adapter.Name()).Set(float64(len(res.markets)))
			all = append(all, res.markets...)
		}
	}

	return all
}

type fetchResult struct {
	markets []types.Market
	err     error
	skipped bool
}

// fetchOne fetches a single venue under the per-adapter timeout. A panicking
// adapter is converted into an ordinary fetch failure.
func (e *Engine) fetchOne(ctx context.Context, adapter venues.Adapter) (result fetchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fetchResult{err: fmt.Errorf("adapter panic: %v", r)}
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, e.adapterTimeout)
	defer cancel()

	start := time.Now()
	markets, err := adapter.Fetch(fetchCtx)
	venues.FetchDuration.WithLabelValues(adapter.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return fetchResult{err: err}
	}

	return fetchResult{markets: markets}
}

// claimFreshLocked returns the opportunities whose keys were absent from the
// previous cycle, first occurrence per key, and rotates the comparison set.
// Caller holds mu.
func (e *Engine) claimFreshLocked(opportunities []types.Opportunity) []types.Opportunity {
	previous := e.journaled
	current := make(map[string]struct{}, len(opportunities))

	var fresh []types.Opportunity
	for i := range opportunities {
		key := opportunities[i].Key()
		_, before := previous[key]
		_, thisCycle := current[key]
		current[key] = struct{}{}
		if !before && !thisCycle {
			fresh = append(fresh, opportunities[i])
		}
	}

	e.journaled = current
	return fresh
}

func (e *Engine) journalFresh(ctx context.Context, fresh []types.Opportunity) {
	if e.journal == nil {
		return
	}

	for i := range fresh {
		if err := e.journal.StoreOpportunity(ctx, &fresh[i]); err != nil {
			e.logger.Warn("journal-store-failed",
				zap.String("event_id", fresh[i].EventID),
				zap.Error(err))
		}
	}
}

func (e *Engine) publishOpportunityGauges(opportunities []types.Opportunity) {
	counts := map[types.OpportunityType]int{
		types.OpportunityArbitrage: 0,
		types.OpportunityEV:        0,
	}
	for i := range opportunities {
		counts[opportunities[i].Type]++
	}
	for oppType, count := range counts {
		OpportunitiesCurrent.WithLabelValues(string(oppType)).Set(float64(count))
	}
}

// Subscribe registers a subscriber. Delivery order follows registration
// order.
func (e *Engine) Subscribe(sub Subscriber) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers = append(e.subscribers, sub)
}

// Unsubscribe removes a previously registered subscriber.
func (e *Engine) Unsubscribe(sub Subscriber) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for i, existing := range e.subscribers {
		if existing == sub {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers delivers the result sequentially over a copy of the
// subscriber list, so subscribers may unsubscribe from inside the callback.
func (e *Engine) notifySubscribers(ctx context.Context, result *types.ScanResult) {
	e.subMu.Lock()
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.subMu.Unlock()

	for _, sub := range subs {
		e.notifyOne(ctx, sub, result)
	}
}

func (e *Engine) notifyOne(ctx context.Context, sub Subscriber, result *types.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			SubscriberErrorsTotal.WithLabelValues(sub.Name()).Inc()
			e.logger.Error("subscriber-panicked",
				zap.String("subscriber", sub.Name()),
				zap.Any("panic", r))
		}
	}()

	if err := sub.OnScanResult(ctx, result); err != nil {
		SubscriberErrorsTotal.WithLabelValues(sub.Name()).Inc()
		e.logger.Warn("subscriber-failed",
			zap.String("subscriber", sub.Name()),
			zap.Error(err))
	}
}

// IsRunning reports whether the Run loop is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Markets returns a copy of the current snapshot, sorted by snapshot key.
func (e *Engine) Markets() []types.Market {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.snapshot))
	for key := range e.snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	markets := make([]types.Market, 0, len(keys))
	for _, key := range keys {
		markets = append(markets, e.snapshot[key])
	}

	return markets
}

// Opportunities returns a copy of the current opportunity list, sorted by
// profit percentage descending.
func (e *Engine) Opportunities() []types.Opportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()

	opportunities := make([]types.Opportunity, len(e.opportunities))
	copy(opportunities, e.opportunities)
	return opportunities
}

// LastScan returns the publication timestamp of the most recent cycle, zero
// before the first scan.
func (e *Engine) LastScan() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastScan
}

// ScanDuration returns the wall-clock duration of the most recent cycle.
func (e *Engine) ScanDuration() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scanDuration
}

// Stats returns a consistent summary of engine state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Stats{
		Running:        e.running.Load(),
		ScansRun:       e.scansRun,
		MarketsCached:  len(e.snapshot),
		Opportunities:  len(e.opportunities),
		LastScan:       e.lastScan,
		ScanDurationMS: e.scanDuration.Seconds() * 1000,
	}
}
