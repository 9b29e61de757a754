package arbitrage

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/internal/matching"
	"github.com/oddsintel/oddsintel/internal/sizing"
	"github.com/oddsintel/oddsintel/pkg/fees"
	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

// multiOutcomeExpirySeconds is the fixed advisory window for opportunities
// spanning three or more outcomes, where per-leg timestamps are too uneven
// to anchor a shared estimate.
const multiOutcomeExpirySeconds = 30

// Config holds arbitrage detector configuration.
type Config struct {
	// MinProfitPct is the minimum detection-time profit percentage an
	// opportunity must clear before it is emitted.
	MinProfitPct float64

	// StakeUSD is the total capital assumed when sizing stakes.
	StakeUSD float64

	Logger *zap.Logger
}

// Detector finds cross-venue arbitrage inside matched event groups. For each
// group it takes the best available odds per outcome name, checks whether the
// combined implied probability leaves a fee-adjusted gap, and sizes stakes so
// every outcome pays the same.
type Detector struct {
	minProfitPct float64
	stakeUSD     float64
	logger       *zap.Logger
}

// New creates an arbitrage detector.
func New(cfg Config) (*Detector, error) {
	if cfg.MinProfitPct < 0 {
		return nil, fmt.Errorf("min profit pct must not be negative, got %f", cfg.MinProfitPct)
	}
	if cfg.StakeUSD <= 0 {
		return nil, fmt.Errorf("stake must be positive, got %f", cfg.StakeUSD)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		minProfitPct: cfg.MinProfitPct,
		stakeUSD:     cfg.StakeUSD,
		logger:       logger,
	}, nil
}

// Detect scans matched event groups for arbitrage and returns one opportunity
// per qualifying group, in group order.
func (d *Detector) Detect(groups []matching.EventGroup) []types.Opportunity {
	start := time.Now()
	defer func() {
		DetectionDuration.Observe(time.Since(start).Seconds())
	}()

	var opportunities []types.Opportunity
	for _, group := range groups {
		opp, ok := d.detectGroup(group)
		if !ok {
			continue
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities
}

// detectGroup evaluates a single event group. It returns false when the group
// holds no actionable arbitrage.
func (d *Detector) detectGroup(group matching.EventGroup) (types.Opportunity, bool) {
	if len(group.Markets) < 2 {
		RejectedTotal.WithLabelValues("too_few_markets").Inc()
		return types.Opportunity{}, false
	}

	names, best := bestOutcomes(group.Markets)
	if len(names) < 2 {
		RejectedTotal.WithLabelValues("too_few_outcomes").Inc()
		return types.Opportunity{}, false
	}

	odds := make([]float64, len(names))
	venues := make([]string, len(names))
	var feePct float64
	for i, name := range names {
		o := best[name]
		odds[i] = o.OddsDecimal
		venues[i] = o.Venue
		feePct += fees.Lookup(o.Venue).TradingFeePct
	}

	result, err := oddsmath.DetectArbitrage(odds, feePct)
	if err != nil {
		d.logger.Warn("arbitrage-check-failed",
			zap.String("group_key", group.Key),
			zap.Error(err))
		RejectedTotal.WithLabelValues("invalid_odds").Inc()
		return types.Opportunity{}, false
	}
	if !result.IsArbitrage {
		RejectedTotal.WithLabelValues("no_arbitrage").Inc()
		return types.Opportunity{}, false
	}
	if result.ProfitPct < d.minProfitPct {
		d.logger.Debug("arbitrage-below-threshold",
			zap.String("group_key", group.Key),
			zap.Float64("profit_pct", result.ProfitPct),
			zap.Float64("min_profit_pct", d.minProfitPct))
		RejectedTotal.WithLabelValues("below_min_profit").Inc()
		return types.Opportunity{}, false
	}

	sized, err := sizing.CalculateStakes(odds, d.stakeUSD, feePct)
	if err != nil {
		d.logger.Warn("stake-sizing-failed",
			zap.String("group_key", group.Key),
			zap.Error(err))
		RejectedTotal.WithLabelValues("sizing_failed").Inc()
		return types.Opportunity{}, false
	}
	// Cent rounding can eat a thin edge at small capital. Never advise a
	// guaranteed loss.
	if sized.GuaranteedProfit < 0 {
		d.logger.Debug("rounding-erased-edge",
			zap.String("group_key", group.Key),
			zap.Float64("profit_usd", sized.GuaranteedProfit))
		RejectedTotal.WithLabelValues("rounding_loss").Inc()
		return types.Opportunity{}, false
	}

	insts := make([]types.BetInstruction, len(names))
	for i, name := range names {
		inst, err := buildInstruction(i+1, best[name], sized.Stakes[i])
		if err != nil {
			d.logger.Warn("instruction-build-failed",
				zap.String("group_key", group.Key),
				zap.String("outcome", name),
				zap.Error(err))
			RejectedTotal.WithLabelValues("invalid_odds").Inc()
			return types.Opportunity{}, false
		}
		insts[i] = inst
	}

	first := group.Markets[0]
	opp := types.Opportunity{
		Type:             types.OpportunityArbitrage,
		EventID:          group.Key,
		EventName:        first.EventName,
		MarketType:       first.MarketType,
		ProfitPct:        oddsmath.Round4(sized.ProfitPct),
		ProfitUSD:        sized.GuaranteedProfit,
		TotalStake:       sized.TotalStake,
		FeesUSD:          oddsmath.Round2(sized.TotalStake * feePct / 100),
		Risk:             assessRisk(sized.ProfitPct, venues),
		ExpiresInSeconds: expirySeconds(names, best),
		DetectedAt:       time.Now().UTC(),
		Instructions:     insts,
	}
	opp.FormattedText = instructions.FormatOpportunity(&opp)

	DetectedTotal.Inc()
	ProfitPct.Observe(opp.ProfitPct)
	d.logger.Info("arbitrage-detected",
		zap.String("event_id", opp.EventID),
		zap.String("event_name", opp.EventName),
		zap.Float64("profit_pct", opp.ProfitPct),
		zap.Float64("profit_usd", opp.ProfitUSD),
		zap.Strings("venues", venues),
		zap.String("risk", string(opp.Risk)))
	return opp, true
}

// bestOutcomes collects the best available price for every outcome name
// across the group's markets. Names are returned in first-seen order, matched
// case-insensitively. Ties on odds prefer the earlier observation, then the
// lexicographically smaller venue, so repeated scans of the same snapshot pick
// the same leg.
func bestOutcomes(markets []types.Market) ([]string, map[string]types.Outcome) {
	var names []string
	best := make(map[string]types.Outcome)
	for _, market := range markets {
		for _, outcome := range market.Outcomes {
			name := strings.ToLower(outcome.Name)
			current, seen := best[name]
			if !seen {
				names = append(names, name)
				best[name] = outcome
				continue
			}
			if preferOutcome(outcome, current) {
				best[name] = outcome
			}
		}
	}
	return names, best
}

// preferOutcome reports whether candidate should replace current as the best
// price for an outcome.
func preferOutcome(candidate, current types.Outcome) bool {
	if candidate.OddsDecimal != current.OddsDecimal {
		return candidate.OddsDecimal > current.OddsDecimal
	}
	if !candidate.ObservedAt.Equal(current.ObservedAt) {
		return candidate.ObservedAt.Before(current.ObservedAt)
	}
	return candidate.Venue < current.Venue
}

// buildInstruction converts one sized leg into a bet instruction. The outcome
// keeps the venue's own casing so instructions read the way the venue lists it.
func buildInstruction(step int, outcome types.Outcome, stake float64) (types.BetInstruction, error) {
	american, err := oddsmath.DecimalToAmerican(outcome.OddsDecimal)
	if err != nil {
		return types.BetInstruction{}, err
	}
	return types.BetInstruction{
		Step:            step,
		Venue:           outcome.Venue,
		Outcome:         outcome.Name,
		StakeUSD:        stake,
		OddsDecimal:     outcome.OddsDecimal,
		OddsAmerican:    oddsmath.FormatAmerican(american),
		PotentialPayout: oddsmath.Round2(stake * outcome.OddsDecimal),
	}, nil
}

// expirySeconds estimates how long the opportunity stays actionable. Two-way
// opportunities age from their oldest leg; wider ones use a fixed window.
func expirySeconds(names []string, best map[string]types.Outcome) int {
	if len(names) != 2 {
		return multiOutcomeExpirySeconds
	}
	oldest := best[names[0]].ObservedAt
	if second := best[names[1]].ObservedAt; second.Before(oldest) {
		oldest = second
	}
	return types.EstimateExpirySeconds(oldest)
}
