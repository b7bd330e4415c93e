package handler

import (
	"net/http"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/service"
)

// MonitorHandler handles the reference price and monitor endpoints.
type MonitorHandler struct {
	pool *service.PoolService
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(pool *service.PoolService) *MonitorHandler {
	return &MonitorHandler{pool: pool}
}

// startMonitorRequest is the optional JSON body for POST /monitor/start.
type startMonitorRequest struct {
	IntervalSeconds float64 `json:"interval_seconds"`
}

type referenceResponse struct {
	Price     float64 `json:"price"`
	FetchedAt string  `json:"fetched_at"`
}

type marketResponse struct {
	AssetID      string  `json:"asset_id"`
	Price        float64 `json:"price"`
	MarketCap    float64 `json:"market_cap"`
	Volume24h    float64 `json:"volume_24h"`
	Change1hPct  float64 `json:"change_1h_pct"`
	Change24hPct float64 `json:"change_24h_pct"`
	Change7dPct  float64 `json:"change_7d_pct"`
	Rank         int     `json:"rank"`
	FetchedAt    string  `json:"fetched_at"`
}

// monitorResponse describes the monitor. Reference and Market are null
// until observed.
type monitorResponse struct {
	Running   bool               `json:"running"`
	Cycles    uint64             `json:"cycles"`
	Reference *referenceResponse `json:"reference"`
	Market    *marketResponse    `json:"market"`
}

type priceSampleResponse struct {
	UnitPrice        float64 `json:"unit_price"`
	InputAmount      float64 `json:"input_amount"`
	OutputAmount     float64 `json:"output_amount"`
	ExecutionCostPct float64 `json:"execution_cost_pct"`
	RouteCount       int     `json:"route_count"`
	FetchedAt        string  `json:"fetched_at"`
}

func buildMonitorResponse(st service.MonitorStatus) monitorResponse {
	resp := monitorResponse{Running: st.Running, Cycles: st.Cycles}
	if st.Reference != nil {
		resp.Reference = &referenceResponse{
			Price:     st.Reference.Price,
			FetchedAt: formatTime(st.Reference.FetchedAt),
		}
	}
	if m := st.Market; m != nil {
		resp.Market = &marketResponse{
			AssetID:      m.AssetID,
			Price:        m.Price,
			MarketCap:    m.MarketCap,
			Volume24h:    m.Volume24h,
			Change1hPct:  m.Change1hPct,
			Change24hPct: m.Change24hPct,
			Change7dPct:  m.Change7dPct,
			Rank:         m.Rank,
			FetchedAt:    formatTime(m.FetchedAt),
		}
	}
	return resp
}

// Status handles GET /monitor.
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, buildMonitorResponse(h.pool.MonitorStatus()))
}

// Start handles POST /monitor/start. The body is optional.
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startMonitorRequest
	if r.ContentLength != 0 {
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}
	if req.IntervalSeconds < 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "interval_seconds must not be negative")
		return
	}

	h.pool.StartMonitor(r.Context(), req.IntervalSeconds)
	WriteJSON(w, http.StatusOK, buildMonitorResponse(h.pool.MonitorStatus()))
}

// Stop handles POST /monitor/stop.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.pool.StopMonitor()
	WriteJSON(w, http.StatusOK, buildMonitorResponse(h.pool.MonitorStatus()))
}

// Reference handles GET /reference.
func (h *MonitorHandler) Reference(w http.ResponseWriter, r *http.Request) {
	ref, err := h.pool.CurrentReferencePrice()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, referenceResponse{
		Price:     ref.Price,
		FetchedAt: formatTime(ref.FetchedAt),
	})
}

func buildPriceSampleResponse(q domain.Quote) priceSampleResponse {
	return priceSampleResponse{
		UnitPrice:        q.UnitPrice,
		InputAmount:      q.InputAmount,
		OutputAmount:     q.OutputAmount,
		ExecutionCostPct: q.ExecutionCostPct,
		RouteCount:       q.RouteCount,
		FetchedAt:        formatTime(q.FetchedAt),
	}
}

// Prices handles GET /prices?limit=N.
func (h *MonitorHandler) Prices(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 100, 1000)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	samples := h.pool.RecentPrices(limit)
	resp := make([]priceSampleResponse, 0, len(samples))
	for _, q := range samples {
		resp = append(resp, buildPriceSampleResponse(q))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"prices": resp})
}
