package types

import "time"

// OddsLifetimeSeconds is the assumed useful lifetime of a price quote.
// Prediction-market prices move slowly compared to sportsbook lines, but 60s
// is a safe advisory window for both.
const OddsLifetimeSeconds = 60

// EstimateExpirySeconds returns how many seconds a quote observed at
// lastUpdate is expected to remain actionable, floored at zero.
func EstimateExpirySeconds(lastUpdate time.Time) int {
	age := time.Since(lastUpdate).Seconds()
	remaining := int(float64(OddsLifetimeSeconds) - age)
	if remaining < 0 {
		return 0
	}

	return remaining
}
