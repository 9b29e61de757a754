package types

import "time"

// OpportunityType classifies how an opportunity makes money.
type OpportunityType string

const (
	OpportunityArbitrage OpportunityType = "ARBITRAGE"
	OpportunityEV        OpportunityType = "EV"
	OpportunityBestPrice OpportunityType = "BEST_PRICE"
)

// Risk is an advisory confidence bucket attached to every opportunity.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

// BetInstruction is one executable leg of an opportunity.
type BetInstruction struct {
	Step            int     `json:"step"`
	Venue           string  `json:"venue"`
	Outcome         string  `json:"outcome"`
	StakeUSD        float64 `json:"stake_usd"`
	OddsDecimal     float64 `json:"odds_decimal"`
	OddsAmerican    string  `json:"odds_american"`
	PotentialPayout float64 `json:"potential_payout"`
}

// Opportunity is one advisory finding: a set of bets and what they are
// expected to return. Instructions are ordered by step; the engine never
// executes them.
type Opportunity struct {
	Type             OpportunityType  `json:"type"`
	EventID          string           `json:"event_id"`
	EventName        string           `json:"event_name"`
	MarketType       MarketType       `json:"market_type"`
	ProfitPct        float64          `json:"profit_pct"`
	ProfitUSD        float64          `json:"profit_usd"`
	TotalStake       float64          `json:"total_stake"`
	FeesUSD          float64          `json:"fees_usd"`
	Risk             Risk             `json:"risk"`
	ExpiresInSeconds int              `json:"expires_in_seconds"`
	DetectedAt       time.Time        `json:"detected_at"`
	Instructions     []BetInstruction `json:"instructions"`
	FormattedText    string           `json:"formatted_text"`
}

// Key identifies the opportunity across scan cycles for dedup purposes.
// Prices drift between scans and are not part of the key.
func (o *Opportunity) Key() string {
	return string(o.Type) + ":" + o.EventID
}

// ScanResult is the atomically published outcome of one scan cycle.
// Opportunities are sorted by profit_pct descending.
type ScanResult struct {
	Opportunities  []Opportunity `json:"opportunities"`
	MarketsScanned int           `json:"markets_scanned"`
	ScanDurationMS float64       `json:"scan_duration_ms"`
	Timestamp      time.Time     `json:"timestamp"`
}
