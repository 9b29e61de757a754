package oddsmath

// EV returns the expected dollar value of a bet: win probability times
// payout, minus the stake and trading fees.
func EV(odds, trueProb, stake, feePct float64) float64 {
	payout := stake * odds

	return trueProb*payout - stake - stake*feePct/100
}

// EVPct returns the expected value as a percentage of the stake.
func EVPct(odds, trueProb, feePct float64) float64 {
	return (trueProb*odds-1)*100 - feePct
}

// KellyFraction returns the Kelly-optimal fraction of capital for a bet at
// the given odds and believed win probability, after venue fees. Returns 0
// when the bet has no edge.
func KellyFraction(odds, trueProb, feePct float64) float64 {
	b := odds*(1-feePct/100) - 1
	if b <= 0 {
		return 0
	}

	kelly := (trueProb*(b+1) - 1) / b
	if kelly < 0 {
		return 0
	}

	return kelly
}
