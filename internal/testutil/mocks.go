package testutil

import (
	"context"
	"sync"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// MockAdapter is an in-memory venue adapter with controllable output.
type MockAdapter struct {
	name string

	mu      sync.Mutex
	markets []types.Market
	err     error
	calls   int
}

// NewMockAdapter creates a mock adapter serving the given markets.
func NewMockAdapter(name string, markets ...types.Market) *MockAdapter {
	return &MockAdapter{
		name:    name,
		markets: markets,
	}
}

// Name returns the venue name.
func (m *MockAdapter) Name() string {
	return m.name
}

// Fetch returns the configured markets, or the configured error.
func (m *MockAdapter) Fetch(_ context.Context) ([]types.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	// Return a copy to avoid race conditions
	markets := make([]types.Market, len(m.markets))
	copy(markets, m.markets)
	return markets, nil
}

// SetMarkets replaces the markets served by subsequent fetches.
func (m *MockAdapter) SetMarkets(markets ...types.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets = markets
}

// SetError makes subsequent fetches fail; nil restores success.
func (m *MockAdapter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetCalls returns how many times Fetch has been invoked.
func (m *MockAdapter) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockJournal is an in-memory opportunity journal for testing.
type MockJournal struct {
	mu            sync.Mutex
	Opportunities []*types.Opportunity
}

// NewMockJournal creates a new mock journal.
func NewMockJournal() *MockJournal {
	return &MockJournal{
		Opportunities: make([]*types.Opportunity, 0),
	}
}

// StoreOpportunity stores an opportunity in memory.
func (j *MockJournal) StoreOpportunity(_ context.Context, opp *types.Opportunity) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Store a copy to avoid race conditions
	oppCopy := *opp
	j.Opportunities = append(j.Opportunities, &oppCopy)
	return nil
}

// Close is a no-op for the mock journal.
func (j *MockJournal) Close() error {
	return nil
}

// GetOpportunities returns all stored opportunities.
func (j *MockJournal) GetOpportunities() []*types.Opportunity {
	j.mu.Lock()
	defer j.mu.Unlock()

	result := make([]*types.Opportunity, len(j.Opportunities))
	copy(result, j.Opportunities)
	return result
}

// Clear clears all stored opportunities.
func (j *MockJournal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Opportunities = make([]*types.Opportunity, 0)
}

// MockSubscriber records scan results pushed by the engine.
type MockSubscriber struct {
	mu      sync.Mutex
	results []*types.ScanResult
	err     error
}

// NewMockSubscriber creates a new mock subscriber.
func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{}
}

// Name identifies the subscriber in engine logs.
func (s *MockSubscriber) Name() string {
	return "mock-subscriber"
}

// OnScanResult records the result and returns the configured error.
func (s *MockSubscriber) OnScanResult(_ context.Context, result *types.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.err
}

// SetError makes subsequent notifications return err.
func (s *MockSubscriber) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// GetResults returns all recorded scan results.
func (s *MockSubscriber) GetResults() []*types.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*types.ScanResult, len(s.results))
	copy(result, s.results)
	return result
}
