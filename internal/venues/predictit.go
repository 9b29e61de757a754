package venues

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/cache"
	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	predictitAPIURL = "https://www.predictit.org/api/marketdata/all/"

	// PredictIt rate-limits aggressively, so responses are cached and a
	// stale copy is kept around to serve across outages.
	predictitCacheKey      = "predictit:markets"
	predictitStaleCacheKey = "predictit:markets:stale"
	predictitCacheTTL      = 30 * time.Second
)

// PredictItAdapter reads political prediction markets from the public
// PredictIt market-data API.
type PredictItAdapter struct {
	apiURL string
	client *client
	cache  cache.Cache
	logger *zap.Logger
}

// NewPredictItAdapter creates a PredictIt adapter backed by the given
// response cache.
func NewPredictItAdapter(responseCache cache.Cache, timeout time.Duration, logger *zap.Logger) *PredictItAdapter {
	return &PredictItAdapter{
		apiURL: predictitAPIURL,
		client: newClient(timeout),
		cache:  responseCache,
		logger: logger,
	}
}

// Name returns the venue identifier.
func (a *PredictItAdapter) Name() string { return types.VenuePredictIt }

// Fetch retrieves open markets, serving cached data when fresh and falling
// back to a stale copy when the API is rate limited or down.
func (a *PredictItAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	raw, err := a.rawMarkets(ctx)
	if err != nil {
		return nil, err
	}

	observedAt := time.Now().UTC()
	markets := make([]types.Market, 0, len(raw))
	for i := range raw {
		if status := raw[i].Status; status != "" && !strings.EqualFold(status, "open") {
			continue
		}
		market, ok := a.parseMarket(&raw[i], observedAt)
		if !ok {
			continue
		}
		markets = append(markets, market)
	}

	a.logger.Debug("fetched-markets",
		zap.Int("raw", len(raw)),
		zap.Int("count", len(markets)))

	return markets, nil
}

func (a *PredictItAdapter) rawMarkets(ctx context.Context) ([]predictitMarket, error) {
	if cached, ok := a.cache.Get(predictitCacheKey); ok {
		if markets, ok := cached.([]predictitMarket); ok {
			return markets, nil
		}
	}

	a.logger.Debug("fetching-markets", zap.String("url", a.apiURL))

	var resp predictitResponse
	if err := a.client.getJSON(ctx, a.apiURL, nil, &resp); err != nil {
		if stale, ok := a.cache.Get(predictitStaleCacheKey); ok {
			if markets, ok := stale.([]predictitMarket); ok {
				a.logger.Warn("serving-stale-markets", zap.Error(err))
				return markets, nil
			}
		}

		return nil, types.NewSourceUnavailable(types.VenuePredictIt, err)
	}

	a.cache.Set(predictitCacheKey, resp.Markets, predictitCacheTTL)
	a.cache.Set(predictitStaleCacheKey, resp.Markets, 0)

	return resp.Markets, nil
}

// parseMarket converts one PredictIt market. Single-contract markets become
// synthetic Yes/No binaries; multi-contract markets carry one outcome per
// contract.
func (a *PredictItAdapter) parseMarket(raw *predictitMarket, observedAt time.Time) (types.Market, bool) {
	if raw.ID.String() == "" || raw.Name == "" {
		RecordsDropped.WithLabelValues(types.VenuePredictIt, "missing_fields").Inc()
		return types.Market{}, false
	}
	if len(raw.Contracts) == 0 {
		return types.Market{}, false
	}

	market := types.Market{
		EventID:   "predictit_" + raw.ID.String(),
		Sport:     "politics",
		EventName: truncate(raw.Name, 200),
	}

	if len(raw.Contracts) == 1 {
		contract := &raw.Contracts[0]
		yesPrice := firstPrice(contract.LastTradePrice, contract.BestBuyYesCost)
		if yesPrice == 0 {
			yesPrice = 0.5
		}
		if yesPrice <= 0.01 || yesPrice >= 0.99 {
			RecordsDropped.WithLabelValues(types.VenuePredictIt, "bad_price").Inc()
			return types.Market{}, false
		}
		noPrice := 1 - yesPrice

		market.MarketType = types.MarketTypeBinary
		market.Outcomes = []types.Outcome{
			{
				Name:        "Yes",
				OddsDecimal: oddsmath.Round4(clamp(1/yesPrice, 1.01, 100)),
				Venue:       types.VenuePredictIt,
				ObservedAt:  observedAt,
			},
			{
				Name:        "No",
				OddsDecimal: oddsmath.Round4(clamp(1/noPrice, 1.01, 100)),
				Venue:       types.VenuePredictIt,
				ObservedAt:  observedAt,
			},
		}

		return market, true
	}

	outcomes := make([]types.Outcome, 0, len(raw.Contracts))
	for i := range raw.Contracts {
		contract := &raw.Contracts[i]
		price := firstPrice(contract.LastTradePrice, contract.BestBuyYesCost)
		if price <= 0.01 || price >= 0.99 {
			continue
		}

		name := contract.Name
		if name == "" {
			name = "Unknown"
		}

		outcomes = append(outcomes, types.Outcome{
			Name:        truncate(name, 50),
			OddsDecimal: oddsmath.Round4(clamp(1/price, 1.01, 100)),
			Venue:       types.VenuePredictIt,
			ObservedAt:  observedAt,
		})
	}

	if len(outcomes) < 2 {
		RecordsDropped.WithLabelValues(types.VenuePredictIt, "too_few_outcomes").Inc()
		return types.Market{}, false
	}

	market.MarketType = types.MarketTypeMulti
	market.Outcomes = outcomes

	return market, true
}

// firstPrice returns the first non-null, non-zero price.
func firstPrice(values ...*float64) float64 {
	for _, v := range values {
		if v != nil && *v != 0 {
			return *v
		}
	}

	return 0
}

type predictitResponse struct {
	Markets []predictitMarket `json:"markets"`
}

type predictitMarket struct {
	ID        json.Number         `json:"id"`
	Name      string              `json:"name"`
	Status    string              `json:"status"`
	Contracts []predictitContract `json:"contracts"`
}

type predictitContract struct {
	Name           string   `json:"name"`
	LastTradePrice *float64 `json:"lastTradePrice"`
	BestBuyYesCost *float64 `json:"bestBuyYesCost"`
}
