package venues

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	manifoldBaseURL    = "https://api.manifold.markets/v0"
	manifoldFetchLimit = 100
)

// ManifoldAdapter reads play-money prediction markets from Manifold. The
// crowd probabilities serve as anchors for the EV detector.
type ManifoldAdapter struct {
	baseURL string
	apiKey  string
	client  *client
	logger  *zap.Logger
}

// NewManifoldAdapter creates a Manifold adapter. The API key is optional;
// market data is public.
func NewManifoldAdapter(apiKey string, timeout time.Duration, logger *zap.Logger) *ManifoldAdapter {
	return &ManifoldAdapter{
		baseURL: manifoldBaseURL,
		apiKey:  apiKey,
		client:  newClient(timeout),
		logger:  logger,
	}
}

// Name returns the venue identifier.
func (a *ManifoldAdapter) Name() string { return types.VenueManifold }

// Fetch retrieves recently traded markets and converts the binary and
// multiple-choice ones to the canonical shape.
func (a *ManifoldAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	params := url.Values{}
	params.Add("limit", strconv.Itoa(manifoldFetchLimit))
	params.Add("sort", "last-bet-time")
	params.Add("order", "desc")

	requestURL := fmt.Sprintf("%s/markets?%s", a.baseURL, params.Encode())

	var headers map[string]string
	if a.apiKey != "" {
		headers = map[string]string{"Authorization": "Key " + a.apiKey}
	}

	a.logger.Debug("fetching-markets", zap.String("url", requestURL))

	var raw []manifoldMarket
	if err := a.client.getJSON(ctx, requestURL, headers, &raw); err != nil {
		return nil, types.NewSourceUnavailable(types.VenueManifold, err)
	}

	observedAt := time.Now().UTC()
	markets := make([]types.Market, 0, len(raw))
	for i := range raw {
		if raw[i].IsResolved {
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

func (a *ManifoldAdapter) parseMarket(raw *manifoldMarket, observedAt time.Time) (types.Market, bool) {
	var (
		outcomes   []types.Outcome
		marketType types.MarketType
	)

	switch raw.OutcomeType {
	case "BINARY":
		prob := 0.5
		if raw.Probability != nil {
			prob = *raw.Probability
		}
		prob = clamp(prob, 0.01, 0.99)

		outcomes = []types.Outcome{
			{
				Name:        "Yes",
				OddsDecimal: oddsmath.Round4(1 / prob),
				Venue:       types.VenueManifold,
				Liquidity:   raw.TotalLiquidity,
				ObservedAt:  observedAt,
			},
			{
				Name:        "No",
				OddsDecimal: oddsmath.Round4(1 / (1 - prob)),
				Venue:       types.VenueManifold,
				Liquidity:   raw.TotalLiquidity,
				ObservedAt:  observedAt,
			},
		}
		marketType = types.MarketTypeBinary

	case "MULTIPLE_CHOICE":
		for _, answer := range raw.Answers {
			if answer.Probability <= 0 || answer.Probability >= 1 {
				continue
			}
			name := answer.Text
			if name == "" {
				name = "Unknown"
			}
			outcomes = append(outcomes, types.Outcome{
				Name:        name,
				OddsDecimal: oddsmath.Round4(1 / answer.Probability),
				Venue:       types.VenueManifold,
				ObservedAt:  observedAt,
			})
		}
		if len(outcomes) < 2 {
			RecordsDropped.WithLabelValues(types.VenueManifold, "too_few_outcomes").Inc()
			return types.Market{}, false
		}
		marketType = types.MarketTypeMulti

	default:
		// Numeric, poll, and bounty markets have no fixed-odds reading.
		return types.Market{}, false
	}

	sport := "prediction"
	if len(raw.GroupSlugs) > 0 {
		sport = raw.GroupSlugs[0]
	}

	var startTime *time.Time
	if raw.CloseTime != nil && *raw.CloseTime > 0 {
		t := time.UnixMilli(*raw.CloseTime).UTC()
		startTime = &t
	}

	return types.Market{
		EventID:    "manifold_" + raw.ID,
		Sport:      sport,
		EventName:  raw.Question,
		MarketType: marketType,
		Outcomes:   outcomes,
		StartTime:  startTime,
	}, true
}

type manifoldMarket struct {
	ID             string           `json:"id"`
	Question       string           `json:"question"`
	OutcomeType    string           `json:"outcomeType"`
	IsResolved     bool             `json:"isResolved"`
	Probability    *float64         `json:"probability"`
	TotalLiquidity float64          `json:"totalLiquidity"`
	GroupSlugs     []string         `json:"groupSlugs"`
	CloseTime      *int64           `json:"closeTime"`
	Answers        []manifoldAnswer `json:"answers"`
}

type manifoldAnswer struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
}
