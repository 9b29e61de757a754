package testutil

import (
	"time"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// CreateTestMarket creates a binary Yes/No market priced at one venue.
func CreateTestMarket(eventID, venue, sport, eventName string, yesOdds, noOdds float64) types.Market {
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

// CreateMatchedMarkets returns one event priced at two venues whose best
// prices (Yes 2.3 on polymarket, No 2.4 on kalshi) sum to an implied 0.8514,
// a guaranteed-profit book. Matching groups them under a single event.
func CreateMatchedMarkets() (types.Market, types.Market) {
	poly := CreateTestMarket("polymarket_0xabc", types.VenuePolymarket, "prediction",
		"Rain in London on Friday", 2.3, 1.7)
	kalshi := CreateTestMarket("kalshi_RAIN-LON", types.VenueKalshi, "prediction",
		"Rain in London on Friday", 1.8, 2.4)

	return poly, kalshi
}

// CreateTestOpportunity creates a detected two-leg arbitrage with sized
// instructions, the shape detectors emit.
func CreateTestOpportunity(eventID string) *types.Opportunity {
	return &types.Opportunity{
		Type:             types.OpportunityArbitrage,
		EventID:          eventID,
		EventName:        "Lakers vs Celtics",
		MarketType:       types.MarketTypeMoneyline,
		ProfitPct:        1.11,
		ProfitUSD:        11.11,
		TotalStake:       1000.0,
		Risk:             types.RiskMedium,
		ExpiresInSeconds: 45,
		DetectedAt:       time.Now().UTC(),
		Instructions: []types.BetInstruction{
			{
				Step:            1,
				Venue:           "draftkings",
				Outcome:         "Los Angeles Lakers",
				StakeUSD:        481.48,
				OddsDecimal:     2.1,
				OddsAmerican:    "+110",
				PotentialPayout: 1011.11,
			},
			{
				Step:            2,
				Venue:           "fanduel",
				Outcome:         "Boston Celtics",
				StakeUSD:        518.52,
				OddsDecimal:     1.95,
				OddsAmerican:    "-105",
				PotentialPayout: 1011.11,
			},
		},
		FormattedText: "ARBITRAGE OPPORTUNITY - Lakers vs Celtics",
	}
}
