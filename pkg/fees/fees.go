package fees

import "strings"

// VenueFees is the cost model for one venue. Trading fees apply per bet;
// settlement and withdrawal fees apply once at resolution.
type VenueFees struct {
	Venue         string  `json:"venue"`
	TradingFeePct float64 `json:"trading_fee_pct"`
	SettlementFee float64 `json:"settlement_fee"`
	WithdrawalFee float64 `json:"withdrawal_fee"`
}

// Leg pairs a stake with the venue it would be placed at.
type Leg struct {
	StakeUSD float64
	Venue    string
}

// venueFees maps known venues to their cost model. Prediction markets and
// US sportsbooks embed their take in the spread or vig; Betfair charges
// explicit commission on net winnings. Unknown venues assume 1%.
var venueFees = map[string]VenueFees{
	"polymarket": {Venue: "polymarket"},
	"kalshi":     {Venue: "kalshi"},
	"manifold":   {Venue: "manifold"},
	"betfair":    {Venue: "betfair", TradingFeePct: 2.0},
	"draftkings": {Venue: "draftkings"},
	"fanduel":    {Venue: "fanduel"},
	"betmgm":     {Venue: "betmgm"},
	"default":    {Venue: "default", TradingFeePct: 1.0},
}

// Lookup returns the fee model for a venue, falling back to the default
// model for venues not in the table.
func Lookup(venue string) VenueFees {
	key := strings.TrimSpace(strings.ToLower(venue))
	if f, ok := venueFees[key]; ok {
		return f
	}

	return venueFees["default"]
}

// TradingFee returns the trading fee in USD for a stake at a venue.
func TradingFee(stakeUSD float64, venue string) float64 {
	return stakeUSD * Lookup(venue).TradingFeePct / 100
}

// TotalTradingFees sums trading fees across the legs of an opportunity.
func TotalTradingFees(legs []Leg) float64 {
	var total float64
	for _, leg := range legs {
		total += TradingFee(leg.StakeUSD, leg.Venue)
	}

	return total
}

// SettlementFees sums one-time settlement fees across venues.
func SettlementFees(venues []string) float64 {
	var total float64
	for _, v := range venues {
		total += Lookup(v).SettlementFee
	}

	return total
}

// EffectiveOdds discounts decimal odds for venues that charge commission on
// winnings: 1 + (odds-1) * (1 - commission). Venues without a trading fee
// return the odds unchanged.
func EffectiveOdds(oddsDecimal float64, venue string) float64 {
	f := Lookup(venue)
	if f.TradingFeePct == 0 {
		return oddsDecimal
	}

	return 1 + (oddsDecimal-1)*(1-f.TradingFeePct/100)
}
