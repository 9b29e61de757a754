package ev

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/internal/matching"
	"github.com/oddsintel/oddsintel/pkg/fees"
	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

// probabilityAnchors are venues whose prices aggregate enough informed flow to
// stand in for true probabilities when grading other venues' odds.
var probabilityAnchors = map[string]bool{
	types.VenuePolymarket: true,
	types.VenueKalshi:     true,
	types.VenueManifold:   true,
	types.VenueBetfair:    true,
}

// quarterKelly scales the Kelly-optimal fraction down to a conservative
// recommendation. Full Kelly assumes the anchor probability is exact.
const quarterKelly = 0.25

// mediumRiskEVPct is the expected-value percentage above which a single-leg
// bet is graded MEDIUM instead of HIGH.
const mediumRiskEVPct = 5.0

// Config holds expected-value detector configuration.
type Config struct {
	// MinEVPct is the minimum expected value percentage a bet must clear
	// before it is emitted.
	MinEVPct float64

	// StakeUSD is the bankroll assumed when sizing recommendations.
	StakeUSD float64

	Logger *zap.Logger
}

// Detector grades one venue's odds against another venue's implied
// probabilities. Inside each matched event group it anchors on the first
// prediction-market quote and emits a single-leg opportunity for every
// non-anchor outcome priced generously enough to clear the threshold.
type Detector struct {
	minEVPct float64
	stakeUSD float64
	logger   *zap.Logger
}

// New creates an expected-value detector.
func New(cfg Config) (*Detector, error) {
	if cfg.StakeUSD <= 0 {
		return nil, fmt.Errorf("stake must be positive, got %f", cfg.StakeUSD)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		minEVPct: cfg.MinEVPct,
		stakeUSD: cfg.StakeUSD,
		logger:   logger,
	}, nil
}

// Detect scans matched event groups for positive expected value and returns
// the findings in group order.
func (d *Detector) Detect(groups []matching.EventGroup) []types.Opportunity {
	start := time.Now()
	defer func() {
		DetectionDuration.Observe(time.Since(start).Seconds())
	}()

	var opportunities []types.Opportunity
	for _, group := range groups {
		opportunities = append(opportunities, d.detectGroup(group)...)
	}
	return opportunities
}

func (d *Detector) detectGroup(group matching.EventGroup) []types.Opportunity {
	var anchors, betting []types.Market
	for _, market := range group.Markets {
		if probabilityAnchors[market.Venue()] {
			anchors = append(anchors, market)
		} else {
			betting = append(betting, market)
		}
	}
	if len(anchors) == 0 {
		SkippedGroupsTotal.WithLabelValues("no_anchor").Inc()
		return nil
	}
	if len(betting) == 0 {
		SkippedGroupsTotal.WithLabelValues("no_betting_markets").Inc()
		return nil
	}

	trueProbs := anchorProbabilities(anchors[0])
	if len(trueProbs) == 0 {
		SkippedGroupsTotal.WithLabelValues("no_anchor").Inc()
		return nil
	}

	var opportunities []types.Opportunity
	for _, market := range betting {
		for _, outcome := range market.Outcomes {
			opp, ok := d.evaluate(group.Key, market, outcome, trueProbs)
			if !ok {
				continue
			}
			opportunities = append(opportunities, opp)
		}
	}
	return opportunities
}

// anchorProbabilities converts an anchor market's odds into a probability
// lookup keyed by lowercase outcome name.
func anchorProbabilities(anchor types.Market) map[string]float64 {
	probs := make(map[string]float64, len(anchor.Outcomes))
	for _, outcome := range anchor.Outcomes {
		prob, err := oddsmath.DecimalToProbability(outcome.OddsDecimal)
		if err != nil {
			continue
		}
		probs[strings.ToLower(outcome.Name)] = prob
	}
	return probs
}

// evaluate grades a single betting outcome against the anchor probabilities.
func (d *Detector) evaluate(groupKey string, market types.Market, outcome types.Outcome, trueProbs map[string]float64) (types.Opportunity, bool) {
	trueProb, ok := trueProbs[strings.ToLower(outcome.Name)]
	if !ok {
		return types.Opportunity{}, false
	}

	feePct := fees.Lookup(outcome.Venue).TradingFeePct
	evPct := oddsmath.EVPct(outcome.OddsDecimal, trueProb, feePct)
	if evPct < d.minEVPct {
		return types.Opportunity{}, false
	}

	kelly := oddsmath.KellyFraction(outcome.OddsDecimal, trueProb, feePct)
	stake := oddsmath.Round2(math.Min(d.stakeUSD, d.stakeUSD*kelly*quarterKelly))

	american, err := oddsmath.DecimalToAmerican(outcome.OddsDecimal)
	if err != nil {
		d.logger.Warn("instruction-build-failed",
			zap.String("group_key", groupKey),
			zap.String("outcome", outcome.Name),
			zap.Error(err))
		return types.Opportunity{}, false
	}

	risk := types.RiskHigh
	if evPct >= mediumRiskEVPct {
		risk = types.RiskMedium
	}

	opp := types.Opportunity{
		Type:             types.OpportunityEV,
		EventID:          groupKey,
		EventName:        market.EventName,
		MarketType:       market.MarketType,
		ProfitPct:        oddsmath.Round4(evPct),
		ProfitUSD:        oddsmath.Round2(stake * evPct / 100),
		TotalStake:       stake,
		FeesUSD:          oddsmath.Round2(stake * feePct / 100),
		Risk:             risk,
		ExpiresInSeconds: types.EstimateExpirySeconds(outcome.ObservedAt),
		DetectedAt:       time.Now().UTC(),
		Instructions: []types.BetInstruction{{
			Step:            1,
			Venue:           outcome.Venue,
			Outcome:         outcome.Name,
			StakeUSD:        stake,
			OddsDecimal:     outcome.OddsDecimal,
			OddsAmerican:    oddsmath.FormatAmerican(american),
			PotentialPayout: oddsmath.Round2(stake * outcome.OddsDecimal),
		}},
	}
	opp.FormattedText = instructions.FormatOpportunity(&opp)

	DetectedTotal.Inc()
	EVPct.Observe(opp.ProfitPct)
	d.logger.Info("ev-detected",
		zap.String("event_id", opp.EventID),
		zap.String("event_name", opp.EventName),
		zap.String("venue", outcome.Venue),
		zap.String("outcome", outcome.Name),
		zap.Float64("ev_pct", opp.ProfitPct),
		zap.Float64("stake_usd", stake),
		zap.String("risk", string(opp.Risk)))
	return opp, true
}
