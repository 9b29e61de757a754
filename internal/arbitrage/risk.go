package arbitrage

import (
	"strings"

	"github.com/oddsintel/oddsintel/pkg/types"
)

// predictionMarkets are venues where positions settle on-platform with no
// sportsbook limits or void rules, so execution risk stays low even on thin
// margins.
var predictionMarkets = map[string]bool{
	types.VenuePolymarket: true,
	types.VenueKalshi:     true,
	types.VenueManifold:   true,
}

// assessRisk grades an opportunity by profit margin and venue mix. Thin
// margins grade harsher, and splitting legs across venues demotes an
// otherwise LOW grade to MEDIUM for the execution risk.
func assessRisk(profitPct float64, venues []string) types.Risk {
	base := types.RiskHigh
	switch {
	case profitPct >= 2.0:
		base = types.RiskLow
	case profitPct >= 0.5:
		base = types.RiskMedium
	}

	allPrediction := true
	distinct := make(map[string]bool, len(venues))
	for _, venue := range venues {
		normalized := strings.ToLower(venue)
		distinct[normalized] = true
		if !predictionMarkets[normalized] {
			allPrediction = false
		}
	}
	if allPrediction {
		return types.RiskLow
	}
	if len(distinct) > 1 && base == types.RiskLow {
		return types.RiskMedium
	}
	return base
}
