package venues

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/oddsintel/oddsintel/pkg/cache"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const predictitFixture = `{
  "markets": [
    {
      "id": 7001,
      "name": "Which party wins the 2026 Senate race in Ohio?",
      "status": "Open",
      "contracts": [
        {"name": "Republican", "lastTradePrice": 0.62, "bestBuyYesCost": 0.63},
        {"name": "Democrat", "lastTradePrice": 0.39, "bestBuyYesCost": 0.40},
        {"name": "Longshot", "lastTradePrice": 0.005, "bestBuyYesCost": null}
      ]
    },
    {
      "id": 7002,
      "name": "Will the incumbent be renominated?",
      "status": "Open",
      "contracts": [
        {"name": "Nominee", "lastTradePrice": 0, "bestBuyYesCost": 0.65}
      ]
    },
    {
      "id": 7003,
      "name": "Suspended market",
      "status": "Suspended",
      "contracts": [
        {"name": "Yes", "lastTradePrice": 0.5, "bestBuyYesCost": 0.5}
      ]
    }
  ]
}`

func newTestResponseCache(t *testing.T) *cache.ResponseCache {
	t.Helper()

	c, err := cache.New(&cache.Config{
		MaxEntries: 100,
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func TestPredictItFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, predictitFixture)
	}))
	defer server.Close()

	adapter := NewPredictItAdapter(newTestResponseCache(t), 5*time.Second, zaptest.NewLogger(t))
	adapter.apiURL = server.URL

	markets, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)

	senate := markets[0]
	assert.Equal(t, "predictit_7001", senate.EventID)
	assert.Equal(t, "politics", senate.Sport)
	assert.Equal(t, types.MarketTypeMulti, senate.MarketType)
	require.Len(t, senate.Outcomes, 2)
	assert.Equal(t, "Republican", senate.Outcomes[0].Name)
	assert.InDelta(t, 1.6129, senate.Outcomes[0].OddsDecimal, 0.0001)
	assert.Equal(t, "Democrat", senate.Outcomes[1].Name)
	assert.InDelta(t, 2.5641, senate.Outcomes[1].OddsDecimal, 0.0001)

	// Zero last trade falls through to the best buy cost.
	renomination := markets[1]
	assert.Equal(t, "predictit_7002", renomination.EventID)
	assert.Equal(t, types.MarketTypeBinary, renomination.MarketType)
	require.Len(t, renomination.Outcomes, 2)
	assert.Equal(t, "Yes", renomination.Outcomes[0].Name)
	assert.InDelta(t, 1.5385, renomination.Outcomes[0].OddsDecimal, 0.0001)
	assert.Equal(t, "No", renomination.Outcomes[1].Name)
	assert.InDelta(t, 2.8571, renomination.Outcomes[1].OddsDecimal, 0.0001)
}

func TestPredictItFetchServesFromCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, predictitFixture)
	}))
	defer server.Close()

	responseCache := newTestResponseCache(t)
	adapter := NewPredictItAdapter(responseCache, 5*time.Second, zaptest.NewLogger(t))
	adapter.apiURL = server.URL

	_, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	responseCache.Wait()

	_, err = adapter.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
}

func TestPredictItFetchFallsBackToStale(t *testing.T) {
	rateLimited := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rateLimited {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, predictitFixture)
	}))
	defer server.Close()

	responseCache := newTestResponseCache(t)
	adapter := NewPredictItAdapter(responseCache, 5*time.Second, zaptest.NewLogger(t))
	adapter.apiURL = server.URL

	markets, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	responseCache.Wait()

	// Expire the fresh entry and rate-limit the API: the stale copy still
	// serves the scan.
	responseCache.Delete(predictitCacheKey)
	responseCache.Wait()
	rateLimited = true

	markets, err = adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestPredictItFetchErrorsWithoutStale(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewPredictItAdapter(newTestResponseCache(t), 5*time.Second, zaptest.NewLogger(t))
	adapter.apiURL = server.URL

	markets, err := adapter.Fetch(context.Background())
	assert.Empty(t, markets)
	require.Error(t, err)

	var adapterErr *types.AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, types.VenuePredictIt, adapterErr.Venue)
	assert.Equal(t, types.ErrKindSourceUnavailable, adapterErr.Kind)
}
