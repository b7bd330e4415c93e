package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/service"
	"github.com/go-chi/chi/v5"
)

// ArbitrageHandler handles scanning, scoring and price impact requests.
type ArbitrageHandler struct {
	pool *service.PoolService
}

// NewArbitrageHandler creates a new ArbitrageHandler.
func NewArbitrageHandler(pool *service.PoolService) *ArbitrageHandler {
	return &ArbitrageHandler{pool: pool}
}

type opportunityResponse struct {
	OfferID        int64   `json:"offer_id"`
	Side           string  `json:"side"`
	OfferPrice     float64 `json:"offer_price"`
	ReferencePrice float64 `json:"reference_price"`
	Quantity       float64 `json:"quantity"`
	SpreadPct      float64 `json:"spread_pct"`
	Score          float64 `json:"score"`
	DetectedAt     string  `json:"detected_at"`
}

type scoreResponse struct {
	Offer            offerResponse `json:"offer"`
	ReferencePrice   float64       `json:"reference_price"`
	GrossSpreadPct   float64       `json:"gross_spread_pct"`
	ExecutionCostPct float64       `json:"execution_cost_pct"`
	NetSpreadPct     float64       `json:"net_spread_pct"`
	Score            float64       `json:"score"`
	Recommendation   string        `json:"recommendation"`
	RiskLevel        string        `json:"risk_level"`
}

type impactPointResponse struct {
	Size             float64 `json:"size"`
	ExecutionCostPct float64 `json:"execution_cost_pct"`
	UnitPrice        float64 `json:"unit_price"`
}

type impactResponse struct {
	Points          []impactPointResponse `json:"points"`
	Failed          []float64             `json:"failed"`
	RecommendedSize float64               `json:"recommended_size"`
}

func buildOpportunityResponse(o domain.Opportunity) opportunityResponse {
	return opportunityResponse{
		OfferID:        o.OfferID,
		Side:           string(o.Side),
		OfferPrice:     o.OfferPrice,
		ReferencePrice: o.ReferencePrice,
		Quantity:       o.Quantity,
		SpreadPct:      o.SpreadPct,
		Score:          o.Score,
		DetectedAt:     formatTime(o.DetectedAt),
	}
}

// Scan handles POST /arbitrage/scan.
func (h *ArbitrageHandler) Scan(w http.ResponseWriter, r *http.Request) {
	opps, err := h.pool.ScanNow(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]opportunityResponse, 0, len(opps))
	for _, o := range opps {
		resp = append(resp, buildOpportunityResponse(o))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"opportunities": resp})
}

// Score handles GET /arbitrage/offers/{id}/score.
func (h *ArbitrageHandler) Score(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sc, err := h.pool.ScoreOffer(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, scoreResponse{
		Offer:            buildOfferResponse(sc.Offer),
		ReferencePrice:   sc.ReferencePrice,
		GrossSpreadPct:   sc.Score.GrossSpreadPct,
		ExecutionCostPct: sc.Score.ExecutionCostPct,
		NetSpreadPct:     sc.Score.NetSpreadPct,
		Score:            sc.Score.Score,
		Recommendation:   sc.Score.Recommendation,
		RiskLevel:        sc.Score.RiskLevel,
	})
}

// Impact handles GET /market/impact?sizes=1,10,100.
func (h *ArbitrageHandler) Impact(w http.ResponseWriter, r *http.Request) {
	var sizes []float64
	if raw := r.URL.Query().Get("sizes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "validation_error", "sizes must be a comma-separated list of numbers")
				return
			}
			sizes = append(sizes, v)
		}
	}

	curve, err := h.pool.PriceImpact(r.Context(), sizes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := impactResponse{
		Points:          make([]impactPointResponse, 0, len(curve.Points)),
		Failed:          curve.Failed,
		RecommendedSize: curve.RecommendedSize,
	}
	if resp.Failed == nil {
		resp.Failed = []float64{}
	}
	for _, p := range curve.Points {
		resp.Points = append(resp.Points, impactPointResponse{
			Size:             p.Size,
			ExecutionCostPct: p.ExecutionCostPct,
			UnitPrice:        p.UnitPrice,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}
