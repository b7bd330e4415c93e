package handler

import (
	"net/http"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/service"
)

// MatchHandler handles HTTP requests for match endpoints.
type MatchHandler struct {
	pool *service.PoolService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(pool *service.PoolService) *MatchHandler {
	return &MatchHandler{pool: pool}
}

// executeMatchRequest is the JSON request body for POST /matches.
type executeMatchRequest struct {
	BuyID    int64    `json:"buy_id"`
	SellID   int64    `json:"sell_id"`
	Quantity float64  `json:"quantity"`
	Price    *float64 `json:"price"`
}

type matchResponse struct {
	BuyID     int64   `json:"buy_id"`
	SellID    int64   `json:"sell_id"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Spread    float64 `json:"spread"`
	Notional  float64 `json:"notional"`
	Timestamp string  `json:"timestamp"`
}

func buildMatchResponse(m domain.Match) matchResponse {
	return matchResponse{
		BuyID:     m.BuyID,
		SellID:    m.SellID,
		Quantity:  m.Quantity,
		Price:     m.Price,
		BuyPrice:  m.BuyPrice,
		SellPrice: m.SellPrice,
		Spread:    m.Spread,
		Notional:  m.Notional,
		Timestamp: formatTime(m.Timestamp),
	}
}

func buildMatchResponses(ms []domain.Match) []matchResponse {
	resp := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		resp = append(resp, buildMatchResponse(m))
	}
	return resp
}

// Candidates handles GET /matches/candidates.
func (h *MatchHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"candidates": buildMatchResponses(h.pool.MatchCandidates()),
	})
}

// Execute handles POST /matches.
func (h *MatchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeMatchRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	m, err := h.pool.Execute(r.Context(), service.ExecuteRequest{
		BuyID:    req.BuyID,
		SellID:   req.SellID,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildMatchResponse(m))
}

// Recent handles GET /matches?limit=N.
func (h *MatchHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 50, 1000)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"matches": buildMatchResponses(h.pool.RecentMatches(limit)),
	})
}
