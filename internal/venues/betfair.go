package venues

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	betfairAPIURL = "https://api.betfair.com/exchange/betting/rest/v1.0"

	betfairMaxEvents  = 20
	betfairMaxBooks   = 50
	betfairMaxResults = 100

	// Catalogue runners without a price book fall back to even odds.
	betfairDefaultOdds = 2.0
)

// BetfairAdapter reads exchange markets from the Betfair betting API. The
// exchange's back prices serve as probability anchors for the EV detector.
type BetfairAdapter struct {
	apiURL      string
	apiKey      string
	eventTypeID string
	client      *client
	logger      *zap.Logger
}

// NewBetfairAdapter creates a Betfair adapter for one event type (sport).
// Without an API key every fetch returns no markets.
func NewBetfairAdapter(apiKey, eventTypeID string, timeout time.Duration, logger *zap.Logger) *BetfairAdapter {
	return &BetfairAdapter{
		apiURL:      betfairAPIURL,
		apiKey:      apiKey,
		eventTypeID: eventTypeID,
		client:      newClient(timeout),
		logger:      logger,
	}
}

// Name returns the venue identifier.
func (a *BetfairAdapter) Name() string { return types.VenueBetfair }

// Fetch walks the exchange's three-step flow: events for the sport, the
// market catalogue for the first events, then best back offers for the
// first markets. Markets without a price book keep default odds.
func (a *BetfairAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	if a.apiKey == "" {
		a.logger.Debug("no-api-key-configured")
		return nil, nil
	}

	events, err := a.listEvents(ctx)
	if err != nil {
		return nil, types.NewSourceUnavailable(types.VenueBetfair, err)
	}
	if len(events) > betfairMaxEvents {
		events = events[:betfairMaxEvents]
	}

	eventIDs := make([]string, 0, len(events))
	for i := range events {
		if id := events[i].Event.ID; id != "" {
			eventIDs = append(eventIDs, id)
		}
	}
	if len(eventIDs) == 0 {
		return nil, nil
	}

	catalogues, err := a.listMarketCatalogue(ctx, eventIDs)
	if err != nil {
		return nil, types.NewSourceUnavailable(types.VenueBetfair, err)
	}
	if len(catalogues) == 0 {
		return nil, nil
	}

	bookIDs := make([]string, 0, betfairMaxBooks)
	for i := range catalogues {
		if i == betfairMaxBooks {
			break
		}
		bookIDs = append(bookIDs, catalogues[i].MarketID)
	}

	// A failed price lookup degrades to catalogue-only markets rather than
	// dropping the venue.
	bookByMarket := make(map[string]*betfairMarketBook)
	books, err := a.listMarketBook(ctx, bookIDs)
	if err != nil {
		a.logger.Warn("market-book-fetch-failed", zap.Error(err))
	} else {
		for i := range books {
			bookByMarket[books[i].MarketID] = &books[i]
		}
	}

	observedAt := time.Now().UTC()
	markets := make([]types.Market, 0, len(catalogues))
	for i := range catalogues {
		market, ok := a.parseMarket(&catalogues[i], bookByMarket[catalogues[i].MarketID], observedAt)
		if !ok {
			continue
		}
		markets = append(markets, market)
	}

	a.logger.Debug("fetched-markets",
		zap.Int("catalogues", len(catalogues)),
		zap.Int("count", len(markets)))

	return markets, nil
}

func (a *BetfairAdapter) listEvents(ctx context.Context) ([]betfairEventResult, error) {
	payload := map[string]interface{}{
		"filter": map[string]interface{}{
			"eventTypeIds": []string{a.eventTypeID},
		},
	}

	var events []betfairEventResult
	if err := a.postJSON(ctx, "listEvents", payload, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return events, nil
}

func (a *BetfairAdapter) listMarketCatalogue(ctx context.Context, eventIDs []string) ([]betfairCatalogue, error) {
	payload := map[string]interface{}{
		"filter": map[string]interface{}{
			"eventIds": eventIDs,
		},
		"maxResults":       betfairMaxResults,
		"marketProjection": []string{"RUNNER_METADATA", "EVENT"},
	}

	var catalogues []betfairCatalogue
	if err := a.postJSON(ctx, "listMarketCatalogue", payload, &catalogues); err != nil {
		return nil, fmt.Errorf("list market catalogue: %w", err)
	}

	return catalogues, nil
}

func (a *BetfairAdapter) listMarketBook(ctx context.Context, marketIDs []string) ([]betfairMarketBook, error) {
	payload := map[string]interface{}{
		"marketIds": marketIDs,
		"priceProjection": map[string]interface{}{
			"priceData":  []string{"EX_BEST_OFFERS"},
			"virtualise": false,
		},
	}

	var books []betfairMarketBook
	if err := a.postJSON(ctx, "listMarketBook", payload, &books); err != nil {
		return nil, fmt.Errorf("list market book: %w", err)
	}

	return books, nil
}

func (a *BetfairAdapter) postJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	requestURL := fmt.Sprintf("%s/%s/", a.apiURL, endpoint)
	headers := map[string]string{"X-Application": a.apiKey}

	return a.client.postJSON(ctx, requestURL, headers, payload, out)
}

func (a *BetfairAdapter) parseMarket(catalogue *betfairCatalogue, book *betfairMarketBook, observedAt time.Time) (types.Market, bool) {
	outcomes := make([]types.Outcome, 0, len(catalogue.Runners))
	for i := range catalogue.Runners {
		runner := &catalogue.Runners[i]

		name := runner.RunnerName
		if name == "" {
			name = fmt.Sprintf("Selection %d", runner.SelectionID)
		}

		outcomes = append(outcomes, types.Outcome{
			Name:        name,
			OddsDecimal: bestBackPrice(book, runner.SelectionID),
			Venue:       types.VenueBetfair,
			ObservedAt:  observedAt,
		})
	}

	if len(outcomes) < 2 {
		RecordsDropped.WithLabelValues(types.VenueBetfair, "too_few_outcomes").Inc()
		return types.Market{}, false
	}

	eventName := catalogue.Event.Name
	if eventName == "" {
		eventName = catalogue.MarketName
	}

	return types.Market{
		EventID:    "betfair_" + catalogue.MarketID,
		Sport:      "sports",
		EventName:  eventName,
		MarketType: types.MarketTypeMoneyline,
		Outcomes:   outcomes,
	}, true
}

// bestBackPrice returns the runner's best available back price, or the
// default when the book has no offers for it.
func bestBackPrice(book *betfairMarketBook, selectionID int64) float64 {
	if book == nil {
		return betfairDefaultOdds
	}

	for i := range book.Runners {
		if book.Runners[i].SelectionID != selectionID {
			continue
		}
		if backs := book.Runners[i].Ex.AvailableToBack; len(backs) > 0 && backs[0].Price > 0 {
			return backs[0].Price
		}
		break
	}

	return betfairDefaultOdds
}

type betfairEventResult struct {
	Event betfairEvent `json:"event"`
}

type betfairEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type betfairCatalogue struct {
	MarketID   string          `json:"marketId"`
	MarketName string          `json:"marketName"`
	Event      betfairEvent    `json:"event"`
	Runners    []betfairRunner `json:"runners"`
}

type betfairRunner struct {
	SelectionID int64  `json:"selectionId"`
	RunnerName  string `json:"runnerName"`
}

type betfairMarketBook struct {
	MarketID string              `json:"marketId"`
	Runners  []betfairBookRunner `json:"runners"`
}

type betfairBookRunner struct {
	SelectionID int64           `json:"selectionId"`
	Ex          betfairExchange `json:"ex"`
}

type betfairExchange struct {
	AvailableToBack []betfairPriceSize `json:"availableToBack"`
}

type betfairPriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}
