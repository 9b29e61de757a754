package venues

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/cache"
	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	oddsAPIBaseURL  = "https://api.the-odds-api.com/v4"
	oddsAPICacheTTL = 30 * time.Second

	// sportsbooksVenueName is the adapter's registry name. Individual
	// outcomes carry the bookmaker key (draftkings, fanduel, ...) instead.
	sportsbooksVenueName = "sportsbooks"
)

// SportsbooksAdapter aggregates bookmaker moneyline odds from The Odds API,
// one canonical market per event and bookmaker.
type SportsbooksAdapter struct {
	baseURL string
	apiKey  string
	sports  []string
	client  *client
	cache   cache.Cache
	logger  *zap.Logger
}

// NewSportsbooksAdapter creates a sportsbook odds adapter for the given
// sport keys. Without an API key every fetch returns no markets.
func NewSportsbooksAdapter(apiKey string, sports []string, responseCache cache.Cache, timeout time.Duration, logger *zap.Logger) *SportsbooksAdapter {
	return &SportsbooksAdapter{
		baseURL: oddsAPIBaseURL,
		apiKey:  apiKey,
		sports:  sports,
		client:  newClient(timeout),
		cache:   responseCache,
		logger:  logger,
	}
}

// Name returns the adapter registry name.
func (a *SportsbooksAdapter) Name() string { return sportsbooksVenueName }

// Fetch retrieves h2h odds for every configured sport. Single-sport
// failures are logged and skipped; the fetch fails only when no sport
// produced data and at least one errored.
func (a *SportsbooksAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	if a.apiKey == "" {
		a.logger.Debug("no-api-key-configured")
		return nil, nil
	}

	observedAt := time.Now().UTC()

	var (
		all     []types.Market
		lastErr error
	)
	for _, sport := range a.sports {
		events, err := a.sportEvents(ctx, sport)
		if err != nil {
			switch httpStatus(err) {
			case http.StatusUnauthorized:
				return nil, types.NewSourceUnavailable(sportsbooksVenueName, fmt.Errorf("invalid api key: %w", err))
			case http.StatusTooManyRequests:
				a.logger.Warn("rate-limited", zap.String("sport", sport))
			default:
				a.logger.Warn("sport-fetch-failed",
					zap.String("sport", sport),
					zap.Error(err))
			}
			lastErr = err
			continue
		}

		for i := range events {
			all = append(all, a.parseEvent(&events[i], observedAt)...)
		}
	}

	if len(all) == 0 && lastErr != nil {
		return nil, types.NewSourceUnavailable(sportsbooksVenueName, lastErr)
	}

	a.logger.Debug("fetched-markets", zap.Int("count", len(all)))

	return all, nil
}

// sportEvents returns the odds feed for one sport, served from the response
// cache when fresh.
func (a *SportsbooksAdapter) sportEvents(ctx context.Context, sport string) ([]oddsAPIEvent, error) {
	cacheKey := "oddsapi:" + sport
	if cached, ok := a.cache.Get(cacheKey); ok {
		if events, ok := cached.([]oddsAPIEvent); ok {
			return events, nil
		}
	}

	params := url.Values{}
	params.Add("regions", "us")
	params.Add("markets", "h2h")
	params.Add("oddsFormat", "decimal")
	params.Add("apiKey", a.apiKey)

	requestURL := fmt.Sprintf("%s/sports/%s/odds?%s", a.baseURL, sport, params.Encode())

	// The request URL carries the API key, so logs name the sport only.
	a.logger.Debug("fetching-odds", zap.String("sport", sport))

	var events []oddsAPIEvent
	if err := a.client.getJSON(ctx, requestURL, nil, &events); err != nil {
		return nil, err
	}

	a.cache.Set(cacheKey, events, oddsAPICacheTTL)

	return events, nil
}

// parseEvent converts one odds feed event into one market per bookmaker
// book, all sharing the canonical event ID so the matcher lines them up
// against prediction-market venues.
func (a *SportsbooksAdapter) parseEvent(raw *oddsAPIEvent, observedAt time.Time) []types.Market {
	sportTitle := raw.SportTitle
	if sportTitle == "" {
		sportTitle = raw.SportKey
	}

	startTime := parseTimestamp(raw.CommenceTime)
	eventName := fmt.Sprintf("%s @ %s", raw.AwayTeam, raw.HomeTeam)
	eventID := GenerateEventID(sportTitle, raw.HomeTeam, raw.AwayTeam, startTime)

	var markets []types.Market
	for _, book := range raw.Bookmakers {
		venue := book.Key
		if venue == "" {
			venue = "unknown"
		}

		for _, bookMarket := range book.Markets {
			key := bookMarket.Key
			if key == "" {
				key = "h2h"
			}
			marketType := NormalizeMarketType(key)

			outcomes := make([]types.Outcome, 0, len(bookMarket.Outcomes))
			for _, outcome := range bookMarket.Outcomes {
				if outcome.Price <= 1.0 {
					continue
				}
				outcomes = append(outcomes, types.Outcome{
					Name:        NormalizeOutcomeName(outcome.Name, marketType),
					OddsDecimal: oddsmath.Round4(outcome.Price),
					Venue:       venue,
					ObservedAt:  observedAt,
				})
			}

			if len(outcomes) < 2 {
				RecordsDropped.WithLabelValues(sportsbooksVenueName, "too_few_outcomes").Inc()
				continue
			}

			markets = append(markets, types.Market{
				EventID:    eventID,
				Sport:      sportTitle,
				EventName:  eventName,
				MarketType: marketType,
				Outcomes:   outcomes,
				StartTime:  startTime,
			})
		}
	}

	return markets
}

type oddsAPIEvent struct {
	SportKey     string             `json:"sport_key"`
	SportTitle   string             `json:"sport_title"`
	CommenceTime string             `json:"commence_time"`
	HomeTeam     string             `json:"home_team"`
	AwayTeam     string             `json:"away_team"`
	Bookmakers   []oddsAPIBookmaker `json:"bookmakers"`
}

type oddsAPIBookmaker struct {
	Key     string          `json:"key"`
	Markets []oddsAPIMarket `json:"markets"`
}

type oddsAPIMarket struct {
	Key      string           `json:"key"`
	Outcomes []oddsAPIOutcome `json:"outcomes"`
}

type oddsAPIOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
