package oddsmath

import "fmt"

// ArbitrageResult reports whether a set of best odds guarantees profit.
type ArbitrageResult struct {
	IsArbitrage    bool
	ProfitPct      float64
	ImpliedProbSum float64
	Margin         float64
}

// DetectArbitrage evaluates one best-priced outcome per side of an event.
// An arbitrage exists when the implied probabilities sum below 1 minus the
// aggregate fee fraction; the gap is the guaranteed profit margin.
func DetectArbitrage(odds []float64, totalFeePct float64) (ArbitrageResult, error) {
	if len(odds) < 2 {
		return ArbitrageResult{}, fmt.Errorf("arbitrage requires at least 2 outcomes, got %d", len(odds))
	}

	var sum float64
	for _, o := range odds {
		if o <= 1.0 {
			return ArbitrageResult{}, fmt.Errorf("decimal odds must exceed 1.0, got %.4f", o)
		}
		sum += 1 / o
	}

	threshold := 1 - totalFeePct/100
	margin := threshold - sum

	result := ArbitrageResult{
		ImpliedProbSum: sum,
		Margin:         margin,
	}
	if sum < threshold {
		result.IsArbitrage = true
		result.ProfitPct = margin * 100
	}

	return result, nil
}
