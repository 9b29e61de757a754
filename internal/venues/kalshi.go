package venues

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	kalshiBaseURL    = "https://api.elections.kalshi.com/trade-api/v2"
	kalshiFetchLimit = 200

	// Signatures cover the path under the API host, not the query string.
	kalshiSignPath = "/trade-api/v2/markets"
)

// KalshiAdapter reads binary markets from the Kalshi trade API. Market data
// is public; requests are signed only when an RSA key is configured.
type KalshiAdapter struct {
	baseURL    string
	keyID      string
	privateKey *rsa.PrivateKey
	client     *client
	logger     *zap.Logger
}

// NewKalshiAdapter creates a Kalshi adapter. A missing or unreadable key is
// logged and the adapter proceeds unauthenticated.
func NewKalshiAdapter(keyID, keyPath string, timeout time.Duration, logger *zap.Logger) *KalshiAdapter {
	a := &KalshiAdapter{
		baseURL: kalshiBaseURL,
		keyID:   keyID,
		client:  newClient(timeout),
		logger:  logger,
	}

	if keyID != "" && keyPath != "" {
		key, err := loadKalshiKey(keyPath)
		if err != nil {
			logger.Warn("kalshi-key-load-failed",
				zap.String("path", keyPath),
				zap.Error(err))
		} else {
			a.privateKey = key
		}
	}

	return a
}

// Name returns the venue identifier.
func (a *KalshiAdapter) Name() string { return types.VenueKalshi }

// Fetch retrieves open markets and converts them to the canonical shape.
func (a *KalshiAdapter) Fetch(ctx context.Context) ([]types.Market, error) {
	params := url.Values{}
	params.Add("limit", strconv.Itoa(kalshiFetchLimit))
	params.Add("status", "open")

	requestURL := fmt.Sprintf("%s/markets?%s", a.baseURL, params.Encode())

	a.logger.Debug("fetching-markets", zap.String("url", requestURL))

	var resp kalshiMarketsResponse
	if err := a.client.getJSON(ctx, requestURL, a.authHeaders(http.MethodGet), &resp); err != nil {
		return nil, types.NewSourceUnavailable(types.VenueKalshi, err)
	}

	observedAt := time.Now().UTC()
	markets := make([]types.Market, 0, len(resp.Markets))
	for i := range resp.Markets {
		market, ok := a.parseMarket(&resp.Markets[i], observedAt)
		if !ok {
			continue
		}
		markets = append(markets, market)
	}

	a.logger.Debug("fetched-markets",
		zap.Int("raw", len(resp.Markets)),
		zap.Int("count", len(markets)))

	return markets, nil
}

// authHeaders builds the Kalshi signature headers, or nil when no key is
// loaded.
func (a *KalshiAdapter) authHeaders(method string) map[string]string {
	if a.privateKey == nil {
		return nil
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signature, err := signKalshiRequest(a.privateKey, timestamp, method, kalshiSignPath)
	if err != nil {
		a.logger.Warn("kalshi-sign-failed", zap.Error(err))
		return nil
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       a.keyID,
		"KALSHI-ACCESS-SIGNATURE": signature,
		"KALSHI-ACCESS-TIMESTAMP": timestamp,
	}
}

func (a *KalshiAdapter) parseMarket(raw *kalshiMarket, observedAt time.Time) (types.Market, bool) {
	if raw.Ticker == "" || raw.Title == "" {
		RecordsDropped.WithLabelValues(types.VenueKalshi, "missing_fields").Inc()
		return types.Market{}, false
	}

	// Prices are cents. A missing, null, or zero ask means no book on that
	// side, so it defaults to 100¢; bids default to 0.
	yesMid := (centsOrDefault(raw.YesBid, 0) + centsOrDefault(raw.YesAsk, 100)) / 2 / 100
	noMid := (centsOrDefault(raw.NoBid, 0) + centsOrDefault(raw.NoAsk, 100)) / 2 / 100

	yesMid = clamp(yesMid, 0.02, 0.98)
	noMid = clamp(noMid, 0.02, 0.98)

	outcomes := []types.Outcome{
		{
			Name:        "Yes",
			OddsDecimal: oddsmath.Round4(1 / yesMid),
			Venue:       types.VenueKalshi,
			Liquidity:   raw.Volume,
			ObservedAt:  observedAt,
		},
		{
			Name:        "No",
			OddsDecimal: oddsmath.Round4(1 / noMid),
			Venue:       types.VenueKalshi,
			Liquidity:   raw.Volume,
			ObservedAt:  observedAt,
		},
	}

	sport := raw.Category
	if sport == "" {
		sport = "prediction"
	}

	return types.Market{
		EventID:    "kalshi_" + raw.Ticker,
		Sport:      sport,
		EventName:  truncate(raw.Title, 200),
		MarketType: types.MarketTypeBinary,
		Outcomes:   outcomes,
		StartTime:  parseTimestamp(raw.CloseTime),
	}, true
}

// loadKalshiKey reads an RSA private key in PKCS#8 or PKCS#1 PEM form.
func loadKalshiKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key in %s is not RSA", path)
		}

		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return key, nil
}

// signKalshiRequest signs timestamp+method+path with RSA-PSS, MGF1-SHA256
// and a salt the size of the digest, as the Kalshi API requires.
func signKalshiRequest(key *rsa.PrivateKey, timestamp, method, path string) (string, error) {
	digest := sha256.Sum256([]byte(timestamp + method + path))

	signature, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: sha256.Size,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// centsOrDefault collapses missing, null, and zero price fields to the
// given default, matching the feed's own conventions.
func centsOrDefault(v *float64, def float64) float64 {
	if v == nil || *v == 0 {
		return def
	}

	return *v
}

type kalshiMarketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
}

type kalshiMarket struct {
	Ticker    string   `json:"ticker"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	YesBid    *float64 `json:"yes_bid"`
	YesAsk    *float64 `json:"yes_ask"`
	NoBid     *float64 `json:"no_bid"`
	NoAsk     *float64 `json:"no_ask"`
	Volume    float64  `json:"volume"`
	CloseTime string   `json:"close_time"`
}
