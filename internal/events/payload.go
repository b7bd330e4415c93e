package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

// envelope is the JSON shape of an event on every network sink.
type envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	RecordedAt string          `json:"recorded_at"`
	Payload    json.RawMessage `json:"payload"`
}

type matchPayload struct {
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

type priceSamplePayload struct {
	UnitPrice        float64 `json:"unit_price"`
	InputAmount      float64 `json:"input_amount"`
	OutputAmount     float64 `json:"output_amount"`
	ExecutionCostPct float64 `json:"execution_cost_pct"`
	RouteCount       int     `json:"route_count"`
	FetchedAt        string  `json:"fetched_at"`
}

type opportunityPayload struct {
	OfferID        int64   `json:"offer_id"`
	Side           string  `json:"side"`
	OfferPrice     float64 `json:"offer_price"`
	ReferencePrice float64 `json:"reference_price"`
	Quantity       float64 `json:"quantity"`
	SpreadPct      float64 `json:"spread_pct"`
	Score          float64 `json:"score"`
	DetectedAt     string  `json:"detected_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// payloadJSON maps a domain payload onto its wire struct.
func payloadJSON(payload any) (any, error) {
	switch p := payload.(type) {
	case domain.Match:
		return matchPayload{
			BuyID:     p.BuyID,
			SellID:    p.SellID,
			Quantity:  p.Quantity,
			Price:     p.Price,
			BuyPrice:  p.BuyPrice,
			SellPrice: p.SellPrice,
			Spread:    p.Spread,
			Notional:  p.Notional,
			Timestamp: formatTime(p.Timestamp),
		}, nil
	case domain.Quote:
		return priceSamplePayload{
			UnitPrice:        p.UnitPrice,
			InputAmount:      p.InputAmount,
			OutputAmount:     p.OutputAmount,
			ExecutionCostPct: p.ExecutionCostPct,
			RouteCount:       p.RouteCount,
			FetchedAt:        formatTime(p.FetchedAt),
		}, nil
	case domain.Opportunity:
		return opportunityPayload{
			OfferID:        p.OfferID,
			Side:           string(p.Side),
			OfferPrice:     p.OfferPrice,
			ReferencePrice: p.ReferencePrice,
			Quantity:       p.Quantity,
			SpreadPct:      p.SpreadPct,
			Score:          p.Score,
			DetectedAt:     formatTime(p.DetectedAt),
		}, nil
	}
	return nil, fmt.Errorf("events: unsupported payload %T", payload)
}

// Encode renders e as its JSON envelope.
func Encode(e domain.Event) ([]byte, error) {
	p, err := payloadJSON(e.Payload)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	out, err := json.Marshal(envelope{
		ID:         e.ID,
		Kind:       string(e.Kind),
		RecordedAt: formatTime(e.RecordedAt),
		Payload:    raw,
	})
	if err != nil {
		return nil, fmt.Errorf("events: marshal event: %w", err)
	}
	return out, nil
}
