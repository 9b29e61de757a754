package venues

import (
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/cache"
	"github.com/oddsintel/oddsintel/pkg/config"
	"github.com/oddsintel/oddsintel/pkg/types"
)

// BuildAdapters constructs the adapter set for the enabled venues, in the
// order they appear in the configuration. That order is the scan's market
// concatenation order, so it stays deterministic. The PredictIt and
// sportsbook adapters share the response cache.
func BuildAdapters(cfg *config.Config, responseCache cache.Cache, logger *zap.Logger) []Adapter {
	adapters := make([]Adapter, 0, len(cfg.EnabledVenues))
	for _, venue := range cfg.EnabledVenues {
		venueLogger := logger.With(zap.String("venue", venue))

		switch venue {
		case types.VenuePolymarket:
			adapters = append(adapters, NewPolymarketAdapter(cfg.AdapterTimeout, venueLogger))
		case types.VenueKalshi:
			adapters = append(adapters, NewKalshiAdapter(cfg.KalshiAPIKeyID, cfg.KalshiPrivateKeyPath, cfg.AdapterTimeout, venueLogger))
		case types.VenueManifold:
			adapters = append(adapters, NewManifoldAdapter(cfg.ManifoldAPIKey, cfg.AdapterTimeout, venueLogger))
		case types.VenuePredictIt:
			adapters = append(adapters, NewPredictItAdapter(responseCache, cfg.AdapterTimeout, venueLogger))
		case sportsbooksVenueName:
			adapters = append(adapters, NewSportsbooksAdapter(cfg.OddsAPIKey, cfg.SportsbookSports, responseCache, cfg.AdapterTimeout, venueLogger))
		case types.VenueBetfair:
			adapters = append(adapters, NewBetfairAdapter(cfg.BetfairAPIKey, cfg.BetfairEventTypeID, cfg.AdapterTimeout, venueLogger))
		}
	}

	return adapters
}
