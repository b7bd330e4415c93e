package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/service"
)

const exportDateLayout = "2006-01-02"

// AnalyticsHandler handles pricing suggestions, market insights,
// performance and history export.
type AnalyticsHandler struct {
	pool *service.PoolService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(pool *service.PoolService) *AnalyticsHandler {
	return &AnalyticsHandler{pool: pool}
}

type suggestionResponse struct {
	Side              string  `json:"side"`
	Volume            float64 `json:"volume"`
	ReferencePrice    float64 `json:"reference_price"`
	ExecutionCostPct  float64 `json:"execution_cost_pct"`
	Volatility24hPct  float64 `json:"volatility_24h_pct"`
	MarketKnown       bool    `json:"market_known"`
	AdjustmentPct     float64 `json:"adjustment_pct"`
	SuggestedPrice    float64 `json:"suggested_price"`
	ConservativePrice float64 `json:"conservative_price"`
	AggressivePrice   float64 `json:"aggressive_price"`
	VolatilityLevel   string  `json:"volatility_level"`
	Urgency           string  `json:"urgency"`
}

type insightsResponse struct {
	AssetID         string   `json:"asset_id"`
	Condition       string   `json:"condition"`
	Momentum24hPct  float64  `json:"momentum_24h_pct"`
	VolumeLevel     string   `json:"volume_level"`
	VolatilityLevel string   `json:"volatility_level"`
	Bias            string   `json:"bias"`
	Strategy        string   `json:"strategy"`
	RiskLevel       string   `json:"risk_level"`
	OverallRisk     string   `json:"overall_risk"`
	RiskFactors     []string `json:"risk_factors"`
	PositionSize    string   `json:"position_size"`
}

// priceSummaryResponse leaves From and To empty without samples.
type priceSummaryResponse struct {
	Samples int     `json:"samples"`
	Current float64 `json:"current"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Average float64 `json:"average"`
	Trend   string  `json:"trend"`
	From    string  `json:"from"`
	To      string  `json:"to"`
}

type performanceResponse struct {
	Prices  priceSummaryResponse `json:"prices"`
	Matches matchStatsResponse   `json:"matches"`
}

type exportResponse struct {
	From    string                `json:"from"`
	To      string                `json:"to"`
	Matches []matchResponse       `json:"matches"`
	Prices  []priceSampleResponse `json:"prices"`
}

// Suggest handles GET /arbitrage/suggest?side=BUY&volume=10.
func (h *AnalyticsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	volume, err := strconv.ParseFloat(q.Get("volume"), 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "volume must be a positive number")
		return
	}

	sg, err := h.pool.SuggestPrice(r.Context(), service.SuggestPriceRequest{Side: q.Get("side"), Volume: volume})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, suggestionResponse{
		Side:              string(sg.Side),
		Volume:            sg.Volume,
		ReferencePrice:    sg.ReferencePrice,
		ExecutionCostPct:  sg.ExecutionCostPct,
		Volatility24hPct:  sg.Volatility24hPct,
		MarketKnown:       sg.MarketKnown,
		AdjustmentPct:     sg.AdjustmentPct,
		SuggestedPrice:    sg.SuggestedPrice,
		ConservativePrice: sg.ConservativePrice,
		AggressivePrice:   sg.AggressivePrice,
		VolatilityLevel:   sg.VolatilityLevel,
		Urgency:           sg.Urgency,
	})
}

// Insights handles GET /market/insights.
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	in, err := h.pool.MarketInsights(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, insightsResponse{
		AssetID:         in.AssetID,
		Condition:       in.Condition,
		Momentum24hPct:  in.Momentum24hPct,
		VolumeLevel:     in.VolumeLevel,
		VolatilityLevel: in.VolatilityLevel,
		Bias:            in.Bias,
		Strategy:        in.Strategy,
		RiskLevel:       in.RiskLevel,
		OverallRisk:     in.OverallRisk,
		RiskFactors:     in.RiskFactors,
		PositionSize:    in.PositionSize,
	})
}

// Performance handles GET /performance.
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	p := h.pool.Performance()
	resp := performanceResponse{
		Prices: priceSummaryResponse{
			Samples: p.Prices.Samples,
			Current: p.Prices.Current,
			High:    p.Prices.High,
			Low:     p.Prices.Low,
			Average: p.Prices.Average,
			Trend:   p.Prices.Trend,
		},
		Matches: buildMatchStatsResponse(p.Matches),
	}
	if p.Prices.Samples > 0 {
		resp.Prices.From = formatTime(p.Prices.From)
		resp.Prices.To = formatTime(p.Prices.To)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Export handles GET /export?from=2025-01-01&to=2025-01-31. Both dates are
// optional UTC calendar days and the range includes the whole of to.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeServiceError(w, &domain.ValidationError{Message: "from must be a date in YYYY-MM-DD format"})
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, &domain.ValidationError{Message: "to must be a date in YYYY-MM-DD format"})
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}

	ex, err := h.pool.Export(from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := exportResponse{
		Matches: buildMatchResponses(ex.Matches),
		Prices:  make([]priceSampleResponse, 0, len(ex.Prices)),
	}
	if !ex.From.IsZero() {
		resp.From = formatTime(ex.From)
	}
	if !ex.To.IsZero() {
		resp.To = formatTime(ex.To)
	}
	for _, q := range ex.Prices {
		resp.Prices = append(resp.Prices, buildPriceSampleResponse(q))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// parseDate reads a YYYY-MM-DD day at UTC midnight. Empty means unbounded.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(exportDateLayout, raw)
}
