package types

import (
	"fmt"
	"strings"
	"time"
)

// MarketType classifies what a market's outcomes settle on.
type MarketType string

const (
	MarketTypeMoneyline MarketType = "moneyline"
	MarketTypeSpread    MarketType = "spread"
	MarketTypeTotal     MarketType = "total"
	MarketTypeProp      MarketType = "prop"
	MarketTypeBinary    MarketType = "binary"
	MarketTypeMulti     MarketType = "multi"
)

// Venue identifiers for the fixed prediction-market sources. Sportsbook
// venues carry the bookmaker key reported by the odds feed (draftkings,
// fanduel, ...).
const (
	VenuePolymarket = "polymarket"
	VenueKalshi     = "kalshi"
	VenueManifold   = "manifold"
	VenuePredictIt  = "predictit"
	VenueBetfair    = "betfair"
)

// Outcome is a single priced outcome observed at a venue. Outcomes are
// immutable once produced; a new fetch produces new values.
type Outcome struct {
	Name        string    `json:"name"`
	OddsDecimal float64   `json:"odds_decimal"`
	Venue       string    `json:"venue"`
	Liquidity   float64   `json:"liquidity,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// ImpliedProbability returns 1/odds.
func (o *Outcome) ImpliedProbability() float64 {
	return 1 / o.OddsDecimal
}

// Validate checks the outcome invariants.
func (o *Outcome) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("outcome name is empty")
	}
	if o.OddsDecimal <= 1.0 {
		return fmt.Errorf("outcome %q: odds %.4f must exceed 1.0", o.Name, o.OddsDecimal)
	}
	if o.Venue == "" {
		return fmt.Errorf("outcome %q: venue is empty", o.Name)
	}

	return nil
}

// Market is one priced question at one venue. Adapters always produce
// single-venue markets; only matched event groups span venues.
type Market struct {
	EventID    string     `json:"event_id"`
	Sport      string     `json:"sport"`
	EventName  string     `json:"event_name"`
	MarketType MarketType `json:"market_type"`
	Outcomes   []Outcome  `json:"outcomes"`
	StartTime  *time.Time `json:"start_time,omitempty"`
}

// Venue returns the venue of the market's first outcome, or "unknown" when
// the market has none.
func (m *Market) Venue() string {
	if len(m.Outcomes) == 0 {
		return "unknown"
	}

	return m.Outcomes[0].Venue
}

// SnapshotKey identifies the market within a scan snapshot. Venues may reuse
// an event ID for the same real-world event, so the venue disambiguates.
func (m *Market) SnapshotKey() string {
	return m.EventID + "_" + m.Venue()
}

// Venues returns the set of venues across all outcomes.
func (m *Market) Venues() map[string]struct{} {
	set := make(map[string]struct{}, 1)
	for i := range m.Outcomes {
		set[m.Outcomes[i].Venue] = struct{}{}
	}

	return set
}

// IsBinary reports whether the market's outcome names are only yes/no.
func (m *Market) IsBinary() bool {
	if len(m.Outcomes) == 0 {
		return false
	}
	for i := range m.Outcomes {
		switch strings.ToLower(m.Outcomes[i].Name) {
		case "yes", "no":
		default:
			return false
		}
	}

	return true
}

// Validate checks the market invariants.
func (m *Market) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("market event_id is empty")
	}
	if len(m.Outcomes) == 0 {
		return fmt.Errorf("market %s: no outcomes", m.EventID)
	}
	for i := range m.Outcomes {
		if err := m.Outcomes[i].Validate(); err != nil {
			return fmt.Errorf("market %s: %w", m.EventID, err)
		}
	}

	return nil
}
