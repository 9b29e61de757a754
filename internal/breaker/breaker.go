package breaker

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State names reported by Status.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// Breaker tracks consecutive fetch failures per venue and temporarily
// removes failing venues from the scan rotation. A venue opens after
// FailureThreshold consecutive failures, sits out Cooldown, then gets one
// probe fetch; a successful probe closes it, a failed probe restarts the
// cooldown.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger

	mu     sync.RWMutex
	states map[string]*venueState
}

type venueState struct {
	consecutiveFailures int
	open                bool
	openedAt            time.Time
	lastError           string
	lastSuccess         time.Time
}

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is how many consecutive failures open the breaker.
	FailureThreshold int

	// Cooldown is how long an open venue sits out before a probe.
	Cooldown time.Duration

	Logger *zap.Logger
}

// Status describes one venue's breaker state for diagnostics endpoints.
type Status struct {
	Venue               string     `json:"venue"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	RetryAt             *time.Time `json:"retry_at,omitempty"`
}

// New creates a circuit breaker.
func New(cfg Config) (*Breaker, error) {
	if cfg.FailureThreshold < 1 {
		return nil, fmt.Errorf("failure threshold must be at least 1, got %d", cfg.FailureThreshold)
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive, got %v", cfg.Cooldown)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Breaker{
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		logger:    logger,
		states:    make(map[string]*venueState),
	}, nil
}

// Allow reports whether the venue should be fetched this cycle. An open venue
// is allowed again once its cooldown has elapsed; the breaker stays open until
// RecordSuccess closes it.
func (b *Breaker) Allow(venue string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state, ok := b.states[venue]
	if !ok || !state.open {
		return true
	}

	return time.Since(state.openedAt) >= b.cooldown
}

// RecordSuccess marks a successful fetch and closes the breaker.
func (b *Breaker) RecordSuccess(venue string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state(venue)
	wasOpen := state.open
	state.consecutiveFailures = 0
	state.open = false
	state.lastError = ""
	state.lastSuccess = time.Now()

	if wasOpen {
		BreakerOpen.WithLabelValues(venue).Set(0)
		StateChangesTotal.WithLabelValues(venue).Inc()
		b.logger.Info("breaker-closed", zap.String("venue", venue))
	}
}

// RecordFailure marks a failed fetch. Crossing the threshold opens the
// breaker; a failure while open restarts the cooldown.
func (b *Breaker) RecordFailure(venue string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state(venue)
	state.consecutiveFailures++
	if err != nil {
		state.lastError = err.Error()
	}
	FailuresTotal.WithLabelValues(venue).Inc()

	if state.open {
		state.openedAt = time.Now()
		b.logger.Warn("breaker-probe-failed",
			zap.String("venue", venue),
			zap.Int("consecutive_failures", state.consecutiveFailures),
			zap.Error(err))
		return
	}

	if state.consecutiveFailures >= b.threshold {
		state.open = true
		state.openedAt = time.Now()
		BreakerOpen.WithLabelValues(venue).Set(1)
		StateChangesTotal.WithLabelValues(venue).Inc()
		b.logger.Warn("breaker-opened",
			zap.String("venue", venue),
			zap.Int("consecutive_failures", state.consecutiveFailures),
			zap.Duration("cooldown", b.cooldown),
			zap.Error(err))
	}
}

// VenueStatus returns the breaker status for a single venue.
func (b *Breaker) VenueStatus(venue string) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state, ok := b.states[venue]
	if !ok {
		return Status{Venue: venue, State: StateClosed}
	}

	return b.buildStatus(venue, state)
}

// AllStatuses returns the breaker status of every venue seen so far.
func (b *Breaker) AllStatuses() map[string]Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	statuses := make(map[string]Status, len(b.states))
	for venue, state := range b.states {
		statuses[venue] = b.buildStatus(venue, state)
	}

	return statuses
}

// state returns the venue's state, creating it if needed. Caller holds mu.
func (b *Breaker) state(venue string) *venueState {
	s, ok := b.states[venue]
	if !ok {
		s = &venueState{}
		b.states[venue] = s
	}
	return s
}

// buildStatus snapshots one venue's state. Caller holds mu.
func (b *Breaker) buildStatus(venue string, state *venueState) Status {
	status := Status{
		Venue:               venue,
		State:               StateClosed,
		ConsecutiveFailures: state.consecutiveFailures,
		LastError:           state.lastError,
	}
	if !state.lastSuccess.IsZero() {
		t := state.lastSuccess
		status.LastSuccessAt = &t
	}
	if state.open {
		retryAt := state.openedAt.Add(b.cooldown)
		status.RetryAt = &retryAt
		if time.Now().After(retryAt) {
			status.State = StateHalfOpen
		} else {
			status.State = StateOpen
		}
	}

	return status
}
