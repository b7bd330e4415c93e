package handler

import (
	"net/http"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/service"
	"github.com/go-chi/chi/v5"
)

// OfferHandler handles HTTP requests for offer endpoints.
type OfferHandler struct {
	pool *service.PoolService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(pool *service.PoolService) *OfferHandler {
	return &OfferHandler{pool: pool}
}

// postOfferRequest is the JSON request body for POST /offers.
type postOfferRequest struct {
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Owner    string  `json:"owner"`
}

// offerResponse is the JSON representation of an offer.
type offerResponse struct {
	ID               int64   `json:"id"`
	Side             string  `json:"side"`
	Quantity         float64 `json:"quantity"`
	OriginalQuantity float64 `json:"original_quantity"`
	Price            float64 `json:"price"`
	Notional         float64 `json:"notional"`
	Owner            string  `json:"owner"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func buildOfferResponse(o domain.Offer) offerResponse {
	return offerResponse{
		ID:               o.ID,
		Side:             string(o.Side),
		Quantity:         o.Quantity,
		OriginalQuantity: o.OriginalQuantity,
		Price:            o.Price,
		Notional:         o.Notional,
		Owner:            o.Owner,
		Status:           string(o.Status),
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
}

// Post handles POST /offers.
func (h *OfferHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req postOfferRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	offer, err := h.pool.PostOffer(service.PostOfferRequest{
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Owner:    req.Owner,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildOfferResponse(offer))
}

// List handles GET /offers?side=BUY|SELL.
func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	offers, err := h.pool.ListActive(r.URL.Query().Get("side"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		resp = append(resp, buildOfferResponse(o))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"offers": resp})
}

// Get handles GET /offers/{id}.
func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	offer, err := h.pool.GetOffer(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOfferResponse(offer))
}

// Cancel handles DELETE /offers/{id}.
func (h *OfferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	offer, err := h.pool.CancelOffer(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOfferResponse(offer))
}

type poolStatsResponse struct {
	TotalActive     int     `json:"total_active"`
	BuyCount        int     `json:"buy_count"`
	SellCount       int     `json:"sell_count"`
	CompletedCount  int     `json:"completed_count"`
	CancelledCount  int     `json:"cancelled_count"`
	BuyVolume       float64 `json:"buy_volume"`
	SellVolume      float64 `json:"sell_volume"`
	AvgBuyPrice     float64 `json:"avg_buy_price"`
	AvgSellPrice    float64 `json:"avg_sell_price"`
	HighestBuyPrice float64 `json:"highest_buy_price"`
	LowestSellPrice float64 `json:"lowest_sell_price"`
}

type matchStatsResponse struct {
	TotalMatches  int     `json:"total_matches"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalNotional float64 `json:"total_notional"`
	AvgPrice      float64 `json:"avg_price"`
	AvgSpread     float64 `json:"avg_spread"`
	MaxSpread     float64 `json:"max_spread"`
	MinSpread     float64 `json:"min_spread"`
	MatchesToday  int     `json:"matches_today"`

	ProfitableMatches int     `json:"profitable_matches"`
	WinRatePct        float64 `json:"win_rate_pct"`
}

func buildMatchStatsResponse(ms domain.MatchStats) matchStatsResponse {
	return matchStatsResponse{
		TotalMatches:      ms.TotalMatches,
		TotalQuantity:     ms.TotalQuantity,
		TotalNotional:     ms.TotalNotional,
		AvgPrice:          ms.AvgPrice,
		AvgSpread:         ms.AvgSpread,
		MaxSpread:         ms.MaxSpread,
		MinSpread:         ms.MinSpread,
		MatchesToday:      ms.MatchesToday,
		ProfitableMatches: ms.ProfitableMatches,
		WinRatePct:        ms.WinRatePct,
	}
}

// Stats handles GET /stats.
func (h *OfferHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ps := h.pool.Stats()
	ms := h.pool.MatchStats()
	WriteJSON(w, http.StatusOK, map[string]any{
		"pool": poolStatsResponse{
			TotalActive:     ps.TotalActive,
			BuyCount:        ps.BuyCount,
			SellCount:       ps.SellCount,
			CompletedCount:  ps.CompletedCount,
			CancelledCount:  ps.CancelledCount,
			BuyVolume:       ps.BuyVolume,
			SellVolume:      ps.SellVolume,
			AvgBuyPrice:     ps.AvgBuyPrice,
			AvgSellPrice:    ps.AvgSellPrice,
			HighestBuyPrice: ps.HighestBuyPrice,
			LowestSellPrice: ps.LowestSellPrice,
		},
		"matches": buildMatchStatsResponse(ms),
	})
}
