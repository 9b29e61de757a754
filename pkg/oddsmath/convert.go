package oddsmath

import (
	"fmt"
	"math"
)

// DecimalToProbability converts decimal odds to the implied probability 1/odds.
func DecimalToProbability(odds float64) (float64, error) {
	if odds <= 1.0 {
		return 0, fmt.Errorf("decimal odds must exceed 1.0, got %.4f", odds)
	}

	return 1 / odds, nil
}

// ProbabilityToDecimal converts a probability to decimal odds.
func ProbabilityToDecimal(prob float64) (float64, error) {
	if prob <= 0 || prob >= 1 {
		return 0, fmt.Errorf("probability must be in (0, 1), got %.4f", prob)
	}

	return 1 / prob, nil
}

// AmericanToDecimal converts American odds to decimal odds.
// +150 pays 1.5x the stake in profit, -150 requires 1.5x to win the stake.
func AmericanToDecimal(american float64) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("american odds cannot be zero")
	}
	if american > 0 {
		return 1 + american/100, nil
	}

	return 1 + 100/math.Abs(american), nil
}

// DecimalToAmerican converts decimal odds to American odds, rounded to the
// nearest integer line.
func DecimalToAmerican(odds float64) (float64, error) {
	if odds <= 1.0 {
		return 0, fmt.Errorf("decimal odds must exceed 1.0, got %.4f", odds)
	}
	if odds >= 2.0 {
		return math.Round((odds - 1) * 100), nil
	}

	return math.Round(-100 / (odds - 1)), nil
}

// AmericanToProbability converts American odds to an implied probability.
func AmericanToProbability(american float64) (float64, error) {
	odds, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}

	return 1 / odds, nil
}

// ProbabilityToAmerican converts a probability to American odds.
func ProbabilityToAmerican(prob float64) (float64, error) {
	odds, err := ProbabilityToDecimal(prob)
	if err != nil {
		return 0, err
	}

	return DecimalToAmerican(odds)
}

// FormatAmerican renders American odds with an explicit sign: "+110", "-150".
func FormatAmerican(american float64) string {
	return fmt.Sprintf("%+d", int(math.Round(american)))
}

// Overround is the bookmaker margin: the implied probability sum minus one.
// Positive means the book takes a cut; negative means an arbitrage exists
// before fees.
func Overround(probs []float64) float64 {
	var sum float64
	for _, p := range probs {
		sum += p
	}

	return sum - 1
}
