package sizing

import (
	"fmt"

	"github.com/oddsintel/oddsintel/pkg/oddsmath"
)

// Sizing is the stake allocation for one arbitrage: how much to place on
// each outcome so the cashout is equal whichever side settles.
type Sizing struct {
	Stakes            []float64
	TotalStake        float64
	GuaranteedCashout float64
	GuaranteedProfit  float64
	ProfitPct         float64
}

// CalculateStakes allocates totalCapital across outcomes proportionally to
// their implied probabilities:
//
//	stake_i = C * (1/odds_i) / sum(1/odds)
//
// which equalizes stake_i * odds_i across outcomes. Stakes round to cents;
// if rounding pushes the sum over the capital, all stakes are rescaled by
// C/sum and rounded again. The cashout uses the minimum leg to stay
// conservative, and the fee applies to the total stake.
func CalculateStakes(oddsDecimal []float64, totalCapital, feePct float64) (Sizing, error) {
	if len(oddsDecimal) < 2 {
		return Sizing{}, fmt.Errorf("stake sizing requires at least 2 outcomes, got %d", len(oddsDecimal))
	}
	if totalCapital <= 0 {
		return Sizing{}, fmt.Errorf("total capital must be positive, got %.2f", totalCapital)
	}

	probs := make([]float64, len(oddsDecimal))
	var probSum float64
	for i, odds := range oddsDecimal {
		if odds <= 1.0 {
			return Sizing{}, fmt.Errorf("decimal odds must exceed 1.0, got %.4f", odds)
		}
		probs[i] = 1 / odds
		probSum += probs[i]
	}

	stakes := make([]float64, len(oddsDecimal))
	var totalStake float64
	for i := range stakes {
		stakes[i] = oddsmath.Round2(totalCapital * probs[i] / probSum)
		totalStake += stakes[i]
	}

	if totalStake > totalCapital {
		scale := totalCapital / totalStake
		totalStake = 0
		for i := range stakes {
			stakes[i] = oddsmath.Round2(stakes[i] * scale)
			totalStake += stakes[i]
		}
	}

	cashout := stakes[0] * oddsDecimal[0]
	for i := 1; i < len(stakes); i++ {
		if c := stakes[i] * oddsDecimal[i]; c < cashout {
			cashout = c
		}
	}

	feesUSD := totalStake * feePct / 100
	profit := cashout - totalStake - feesUSD
	var profitPct float64
	if totalStake > 0 {
		profitPct = profit / totalStake * 100
	}

	return Sizing{
		Stakes:            stakes,
		TotalStake:        totalStake,
		GuaranteedCashout: oddsmath.Round2(cashout),
		GuaranteedProfit:  oddsmath.Round2(profit),
		ProfitPct:         oddsmath.Round4(profitPct),
	}, nil
}

// Profit returns the realized profit when one specific outcome wins.
func Profit(stakes, oddsDecimal []float64, winner int, feePct float64) (float64, error) {
	if len(stakes) != len(oddsDecimal) {
		return 0, fmt.Errorf("stakes and odds length mismatch: %d vs %d", len(stakes), len(oddsDecimal))
	}
	if winner < 0 || winner >= len(stakes) {
		return 0, fmt.Errorf("winning outcome index %d out of range", winner)
	}

	var totalStake float64
	for _, s := range stakes {
		totalStake += s
	}
	payout := stakes[winner] * oddsDecimal[winner]

	return payout - totalStake - totalStake*feePct/100, nil
}

// WorstCaseLoss models a failed hedge: the largest leg is placed but the
// others never fill.
func WorstCaseLoss(stakes []float64, hedgeProbability float64) float64 {
	var maxStake float64
	for _, s := range stakes {
		if s > maxStake {
			maxStake = s
		}
	}

	return maxStake * (1 - hedgeProbability)
}

// ScaleStakes rescales a stake allocation to hit a target profit.
func ScaleStakes(baseStakes []float64, targetProfit, baseProfit float64) ([]float64, error) {
	if baseProfit <= 0 {
		return nil, fmt.Errorf("cannot scale from non-positive base profit %.2f", baseProfit)
	}

	factor := targetProfit / baseProfit
	scaled := make([]float64, len(baseStakes))
	for i, s := range baseStakes {
		scaled[i] = oddsmath.Round2(s * factor)
	}

	return scaled, nil
}
