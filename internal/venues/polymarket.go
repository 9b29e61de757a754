package venues

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	polymarketBaseURL    = "https://gamma-api.polymarket.com"
	polymarketFetchLimit = 100

	// Markets below this Gamma liquidity are too thin to act on.
	polymarketMinLiquidity = 100.0
)

// PolymarketAdapter reads prediction markets from the Gamma API, most
// liquid first.
type PolymarketAdapter struct {
	baseURL string
	client  *client
	logger  *zap.Logger
}

// NewPolymarketAdapter creates a Polymarket adapter with the given request
// timeout.
func NewPolymarketAdapter(timeout time.Duration, logger *zap.Logger) *PolymarketAdapter {
	return &PolymarketAdapter{
		baseURL: polymarketBaseURL,
		client:  newClient(timeout),
		logger:  logger,
	}
}

// Name returns the venue identifier.
func (a *PolymarketAdapter) Name() string { return types.VenuePolymarket }

// Fetch retrieves active markets and converts them to the canonical shape.
func (a *PolymarketAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	params := url.Values{}
	params.Add("limit", strconv.Itoa(polymarketFetchLimit))
	params.Add("active", "true")
	params.Add("closed", "false")
	params.Add("order", "liquidityNum")
	params.Add("ascending", "false")

	requestURL := fmt.Sprintf("%s/markets?%s", a.baseURL, params.Encode())

	a.logger.Debug("fetching-markets", zap.String("url", requestURL))

	var raw []polymarketMarket
	if err := a.client.getJSON(ctx, requestURL, nil, &raw); err != nil {
		return nil, types.NewSourceUnavailable(types.VenuePolymarket, err)
	}

	observedAt := time.Now().UTC()
	markets := make([]types.Market, 0, len(raw))
	for i := range raw {
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

// parseMarket converts one Gamma market, reporting false when the record is
// closed, thin, or malformed.
func (a *PolymarketAdapter) parseMarket(raw *polymarketMarket, observedAt time.Time) (types.Market, bool) {
	if raw.Closed {
		return types.Market{}, false
	}
	if raw.LiquidityNum < polymarketMinLiquidity {
		RecordsDropped.WithLabelValues(types.VenuePolymarket, "low_liquidity").Inc()
		return types.Market{}, false
	}
	if raw.Question == "" {
		RecordsDropped.WithLabelValues(types.VenuePolymarket, "missing_fields").Inc()
		return types.Market{}, false
	}

	names, err := decodeStringArray(raw.Outcomes)
	if err != nil {
		a.dropMalformed(raw.ID, fmt.Errorf("outcomes: %w", err))
		return types.Market{}, false
	}

	priceStrings, err := decodeStringArray(raw.OutcomePrices)
	if err != nil {
		a.dropMalformed(raw.ID, fmt.Errorf("outcome prices: %w", err))
		return types.Market{}, false
	}

	if len(priceStrings) != len(names) {
		a.dropMalformed(raw.ID, fmt.Errorf("%d outcomes but %d prices", len(names), len(priceStrings)))
		return types.Market{}, false
	}
	if len(names) < 2 {
		RecordsDropped.WithLabelValues(types.VenuePolymarket, "too_few_outcomes").Inc()
		return types.Market{}, false
	}

	outcomes := make([]types.Outcome, 0, len(names))
	for i, name := range names {
		price, err := strconv.ParseFloat(priceStrings[i], 64)
		if err != nil {
			a.dropMalformed(raw.ID, fmt.Errorf("price %q: %w", priceStrings[i], err))
			return types.Market{}, false
		}

		// Prices pinned at the extremes carry no tradable edge.
		if price <= 0.01 || price >= 0.99 {
			continue
		}

		outcomes = append(outcomes, types.Outcome{
			Name:        name,
			OddsDecimal: oddsmath.Round4(1 / price),
			Venue:       types.VenuePolymarket,
			Liquidity:   raw.LiquidityNum,
			ObservedAt:  observedAt,
		})
	}

	if len(outcomes) < 2 {
		RecordsDropped.WithLabelValues(types.VenuePolymarket, "too_few_outcomes").Inc()
		return types.Market{}, false
	}

	sport := raw.Category
	if sport == "" {
		sport = "prediction"
	}

	marketType := types.MarketTypeBinary
	if len(outcomes) != 2 {
		marketType = types.MarketTypeMulti
	}

	return types.Market{
		EventID:    "polymarket_" + conditionFragment(raw.ConditionID, raw.ID),
		Sport:      sport,
		EventName:  truncate(raw.Question, 200),
		MarketType: marketType,
		Outcomes:   outcomes,
	}, true
}

func (a *PolymarketAdapter) dropMalformed(id string, err error) {
	RecordsDropped.WithLabelValues(types.VenuePolymarket, "malformed_record").Inc()
	a.logger.Debug("skipping-market",
		zap.String("id", id),
		zap.Error(types.NewMalformedRecord(types.VenuePolymarket, err)))
}

// conditionFragment prefers the first 16 characters of a well-formed
// condition hash as the stable market identifier and falls back to the
// Gamma row ID.
func conditionFragment(conditionID, id string) string {
	if len(conditionID) >= 16 && common.HexToHash(conditionID) != (common.Hash{}) {
		return conditionID[:16]
	}

	return id
}

// polymarketMarket is the Gamma API market schema. The outcomes and
// outcomePrices fields arrive either as JSON arrays or as JSON-encoded
// strings containing one, so they are decoded lazily.
type polymarketMarket struct {
	ID            string          `json:"id"`
	ConditionID   string          `json:"conditionId"`
	Question      string          `json:"question"`
	Category      string          `json:"category"`
	Closed        bool            `json:"closed"`
	LiquidityNum  float64         `json:"liquidityNum"`
	Outcomes      json.RawMessage `json:"outcomes"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
}

// decodeStringArray handles Gamma fields that arrive either as a JSON array
// of strings or as a JSON string wrapping one.
func decodeStringArray(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err == nil {
		return values, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("neither array nor string: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, fmt.Errorf("embedded array: %w", err)
	}

	return values, nil
}

// truncate caps s at max bytes. Venue questions are ASCII-dominated, so a
// byte cap matches the upstream behavior closely enough.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}
