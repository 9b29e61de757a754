package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/oddsintel/oddsintel/internal/breaker"
	"github.com/oddsintel/oddsintel/internal/instructions"
	"github.com/oddsintel/oddsintel/internal/scanner"
	"github.com/oddsintel/oddsintel/pkg/oddsmath"
	"github.com/oddsintel/oddsintel/pkg/types"
)

const (
	serviceName    = "Odds Intelligence Platform"
	serviceVersion = "1.0.0"

	defaultOpportunityLimit = 50
	maxOpportunityLimit     = 200
	defaultMarketLimit      = 100
	maxMarketLimit          = 500

	minScanStake = 10
	maxScanStake = 100000
)

// Handler serves the advisory REST API. Every user-facing payload carries
// the disclaimer; no endpoint mutates anything beyond triggering a scan.
type Handler struct {
	engine  *scanner.Engine
	breaker *breaker.Breaker
	logger  *zap.Logger
}

// HandlerConfig holds API handler configuration.
type HandlerConfig struct {
	Engine  *scanner.Engine
	Breaker *breaker.Breaker
	Logger  *zap.Logger
}

// NewHandler creates the REST API handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Breaker == nil {
		return nil, fmt.Errorf("breaker is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		engine:  cfg.Engine,
		breaker: cfg.Breaker,
		logger:  logger,
	}, nil
}

// Routes returns the API router, intended to be mounted at /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Get("/opportunities", h.handleOpportunities)
	r.Get("/opportunities/{eventID}", h.handleOpportunityDetail)
	r.Post("/scan", h.handleScan)
	r.Get("/markets", h.handleMarkets)
	r.Get("/stats", h.handleStats)
	r.Get("/sources", h.handleSources)

	return r
}

type rootResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Version      string `json:"version"`
	AdvisoryOnly bool   `json:"advisory_only"`
	Disclaimer   string `json:"disclaimer"`
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, rootResponse{
		Status:       "ok",
		Service:      serviceName,
		Version:      serviceVersion,
		AdvisoryOnly: true,
		Disclaimer:   instructions.Disclaimer(),
	})
}

type healthResponse struct {
	Status             string     `json:"status"`
	ScannerRunning     bool       `json:"scanner_running"`
	LastScan           *time.Time `json:"last_scan"`
	MarketsCached      int        `json:"markets_cached"`
	OpportunitiesCount int        `json:"opportunities_count"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()

	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:             "healthy",
		ScannerRunning:     stats.Running,
		LastScan:           timeOrNil(stats.LastScan),
		MarketsCached:      stats.MarketsCached,
		OpportunitiesCount: stats.Opportunities,
	})
}

type opportunitiesResponse struct {
	Count         int                 `json:"count"`
	Opportunities []types.Opportunity `json:"opportunities"`
	Disclaimer    string              `json:"disclaimer"`
}

type textResponse struct {
	Text       string `json:"text"`
	Disclaimer string `json:"disclaimer"`
}

func (h *Handler) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	oppType := q.Get("type")
	if oppType == "" {
		oppType = "all"
	}
	if oppType != "all" && oppType != string(types.OpportunityArbitrage) && oppType != string(types.OpportunityEV) {
		h.writeError(w, http.StatusBadRequest, "type must be ARBITRAGE, EV or all")
		return
	}

	minProfit, err := parseFloatParam(q.Get("min_profit"), 0)
	if err != nil || minProfit < 0 {
		h.writeError(w, http.StatusBadRequest, "min_profit must be a non-negative number")
		return
	}

	risk := q.Get("risk")
	if risk == "" {
		risk = "all"
	}
	switch risk {
	case "all", string(types.RiskLow), string(types.RiskMedium), string(types.RiskHigh):
	default:
		h.writeError(w, http.StatusBadRequest, "risk must be LOW, MEDIUM, HIGH or all")
		return
	}

	limit, err := parseLimitParam(q.Get("limit"), defaultOpportunityLimit, maxOpportunityLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "text" {
		h.writeError(w, http.StatusBadRequest, "format must be json or text")
		return
	}

	sport := strings.ToLower(q.Get("sport"))

	filtered := make([]types.Opportunity, 0)
	for _, opp := range h.engine.Opportunities() {
		if oppType != "all" && string(opp.Type) != oppType {
			continue
		}
		if opp.ProfitPct < minProfit {
			continue
		}
		if risk != "all" && string(opp.Risk) != risk {
			continue
		}
		if sport != "" && !strings.Contains(strings.ToLower(opp.EventName), sport) {
			continue
		}
		filtered = append(filtered, opp)
		if len(filtered) == limit {
			break
		}
	}

	if format == "text" {
		h.writeJSON(w, http.StatusOK, textResponse{
			Text:       instructions.FormatOpportunitiesTable(filtered),
			Disclaimer: instructions.Disclaimer(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, opportunitiesResponse{
		Count:         len(filtered),
		Opportunities: filtered,
		Disclaimer:    instructions.Disclaimer(),
	})
}

type opportunityDetailResponse struct {
	EventID       string              `json:"event_id"`
	Opportunities []types.Opportunity `json:"opportunities"`
	Disclaimer    string              `json:"disclaimer"`
}

func (h *Handler) handleOpportunityDetail(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	matched := make([]types.Opportunity, 0, 2)
	for _, opp := range h.engine.Opportunities() {
		if opp.EventID == eventID {
			matched = append(matched, opp)
		}
	}

	if len(matched) == 0 {
		h.writeError(w, http.StatusNotFound, "event not found")
		return
	}

	h.writeJSON(w, http.StatusOK, opportunityDetailResponse{
		EventID:       eventID,
		Opportunities: matched,
		Disclaimer:    instructions.Disclaimer(),
	})
}

type scanResponse struct {
	Success            bool                `json:"success"`
	MarketsScanned     int                 `json:"markets_scanned"`
	OpportunitiesFound int                 `json:"opportunities_found"`
	ScanDurationMS     float64             `json:"scan_duration_ms"`
	Timestamp          time.Time           `json:"timestamp"`
	Opportunities      []types.Opportunity `json:"opportunities"`
	Disclaimer         string              `json:"disclaimer"`
}

// handleScan triggers one scan cycle. The optional stake parameter is
// validated against sane bounds so misconfigured clients fail loudly;
// sizing capital itself is fixed at engine construction.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("stake"); raw != "" {
		stake, err := strconv.ParseFloat(raw, 64)
		if err != nil || stake < minScanStake || stake > maxScanStake {
			h.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("stake must be a number between %d and %d", minScanStake, maxScanStake))
			return
		}
	}

	ScanRequestsTotal.Inc()
	h.logger.Info("manual-scan-requested")

	result := h.engine.ScanOnce(r.Context())

	top := result.Opportunities
	if len(top) > 20 {
		top = top[:20]
	}

	h.writeJSON(w, http.StatusOK, scanResponse{
		Success:            true,
		MarketsScanned:     result.MarketsScanned,
		OpportunitiesFound: len(result.Opportunities),
		ScanDurationMS:     result.ScanDurationMS,
		Timestamp:          result.Timestamp,
		Opportunities:      top,
		Disclaimer:         instructions.Disclaimer(),
	})
}

type marketsResponse struct {
	Count   int            `json:"count"`
	Markets []types.Market `json:"markets"`
}

func (h *Handler) handleMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimitParam(q.Get("limit"), defaultMarketLimit, maxMarketLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sport := strings.ToLower(q.Get("sport"))

	filtered := make([]types.Market, 0)
	for _, market := range h.engine.Markets() {
		if sport != "" && !strings.Contains(strings.ToLower(market.Sport), sport) {
			continue
		}
		filtered = append(filtered, market)
		if len(filtered) == limit {
			break
		}
	}

	h.writeJSON(w, http.StatusOK, marketsResponse{
		Count:   len(filtered),
		Markets: filtered,
	})
}

type riskBreakdown struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

type statsResponse struct {
	ScannerRunning     bool          `json:"scanner_running"`
	LastScan           *time.Time    `json:"last_scan"`
	TotalMarkets       int           `json:"total_markets"`
	TotalOpportunities int           `json:"total_opportunities"`
	ArbitrageCount     int           `json:"arbitrage_count"`
	EVCount            int           `json:"ev_count"`
	AverageProfitPct   float64       `json:"average_profit_pct"`
	ByRisk             riskBreakdown `json:"by_risk"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	opportunities := h.engine.Opportunities()

	resp := statsResponse{
		ScannerRunning:     stats.Running,
		LastScan:           timeOrNil(stats.LastScan),
		TotalMarkets:       stats.MarketsCached,
		TotalOpportunities: len(opportunities),
	}

	var profitSum float64
	for i := range opportunities {
		opp := &opportunities[i]
		profitSum += opp.ProfitPct

		switch opp.Type {
		case types.OpportunityArbitrage:
			resp.ArbitrageCount++
		case types.OpportunityEV:
			resp.EVCount++
		}

		switch opp.Risk {
		case types.RiskLow:
			resp.ByRisk.Low++
		case types.RiskMedium:
			resp.ByRisk.Medium++
		case types.RiskHigh:
			resp.ByRisk.High++
		}
	}
	if len(opportunities) > 0 {
		resp.AverageProfitPct = oddsmath.Round4(profitSum / float64(len(opportunities)))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type sourceInfo struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Markets     int    `json:"markets"`
	Status      string `json:"status"`
	URL         string `json:"url"`
}

type sourcesResponse struct {
	Sources       []sourceInfo `json:"sources"`
	TotalMarkets  int          `json:"total_markets"`
	ActiveSources int          `json:"active_sources"`
}

func (h *Handler) handleSources(w http.ResponseWriter, r *http.Request) {
	markets := h.engine.Markets()

	// One count per market, attributed to its first outcome's venue.
	venueCounts := make(map[string]int)
	for i := range markets {
		venueCounts[markets[i].Venue()]++
	}

	knownVenues := map[string]bool{
		types.VenueKalshi:     true,
		types.VenuePolymarket: true,
		types.VenueManifold:   true,
		types.VenuePredictIt:  true,
		types.VenueBetfair:    true,
	}

	sportsbookCount := 0
	for venue, count := range venueCounts {
		if !knownVenues[venue] {
			sportsbookCount += count
		}
	}

	sources := []sourceInfo{
		{
			Name:        "Kalshi",
			ID:          types.VenueKalshi,
			Type:        "Prediction Market",
			Description: "CFTC-regulated event contracts",
			Markets:     venueCounts[types.VenueKalshi],
			Status:      h.sourceStatus(types.VenueKalshi, venueCounts[types.VenueKalshi]),
			URL:         "https://kalshi.com",
		},
		{
			Name:        "PredictIt",
			ID:          types.VenuePredictIt,
			Type:        "Prediction Market",
			Description: "Political prediction market",
			Markets:     venueCounts[types.VenuePredictIt],
			Status:      h.sourceStatus(types.VenuePredictIt, venueCounts[types.VenuePredictIt]),
			URL:         "https://www.predictit.org",
		},
		{
			Name:        "Polymarket",
			ID:          types.VenuePolymarket,
			Type:        "Prediction Market",
			Description: "Crypto-based prediction market",
			Markets:     venueCounts[types.VenuePolymarket],
			Status:      h.sourceStatus(types.VenuePolymarket, venueCounts[types.VenuePolymarket]),
			URL:         "https://polymarket.com",
		},
		{
			Name:        "Manifold",
			ID:          types.VenueManifold,
			Type:        "Play Money",
			Description: "Play-money predictions (probability anchor)",
			Markets:     venueCounts[types.VenueManifold],
			Status:      h.sourceStatus(types.VenueManifold, venueCounts[types.VenueManifold]),
			URL:         "https://manifold.markets",
		},
		{
			Name:        "Betfair",
			ID:          types.VenueBetfair,
			Type:        "Betting Exchange",
			Description: "Exchange back prices",
			Markets:     venueCounts[types.VenueBetfair],
			Status:      h.sourceStatus(types.VenueBetfair, venueCounts[types.VenueBetfair]),
			URL:         "https://www.betfair.com",
		},
		{
			Name:        "The Odds API",
			ID:          "oddsapi",
			Type:        "Sportsbooks",
			Description: "Aggregated odds from 10+ bookmakers",
			Markets:     sportsbookCount,
			Status:      h.sportsbookStatus(sportsbookCount),
			URL:         "https://the-odds-api.com",
		},
	}

	active := 0
	for i := range sources {
		if sources[i].Status == "active" {
			active++
		}
	}

	h.writeJSON(w, http.StatusOK, sourcesResponse{
		Sources:       sources,
		TotalMarkets:  len(markets),
		ActiveSources: active,
	})
}

// sourceStatus grades a venue for the sources endpoint: a venue sitting out
// a breaker cooldown reports cooling_down regardless of leftover counts.
func (h *Handler) sourceStatus(venue string, count int) string {
	status := h.breaker.VenueStatus(venue)
	if status.State != breaker.StateClosed {
		return "cooling_down"
	}
	if count > 0 {
		return "active"
	}

	return "inactive"
}

// sportsbookStatus is the odds-feed variant: the adapter is keyed, so no
// bookmaker markets at all usually means the key's request quota ran out.
func (h *Handler) sportsbookStatus(count int) string {
	status := h.breaker.VenueStatus("sportsbooks")
	if status.State != breaker.StateClosed {
		return "cooling_down"
	}
	if count > 0 {
		return "active"
	}

	return "api_key_exhausted"
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseFloatParam(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseLimitParam(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > max {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", max)
	}
	return limit, nil
}
