package engine

import (
	"math"
	"testing"

	"github.com/efreitasn/otcpool/internal/domain"
)

func TestSuggestPrice(t *testing.T) {
	q := domain.Quote{UnitPrice: 100, ExecutionCostPct: 1}
	market := domain.MarketSnapshot{Change24hPct: -3}

	tests := []struct {
		name             string
		side             domain.Side
		known            bool
		wantAdj          float64
		wantSuggested    float64
		wantConservative float64
		wantAggressive   float64
		wantVolatility   string
	}{
		// 0.5 base + 3 × 0.1 volatility + 1 × 0.5 impact
		{"buy premium", domain.SideBuy, true, 1.3, 101.3, 101.3 * 1.005, 101.3 * 0.998, "medium"},
		{"sell discount", domain.SideSell, true, 1.3, 98.7, 98.7 * 0.995, 98.7 * 1.002, "medium"},
		{"unknown market", domain.SideBuy, false, 1.0, 101, 101 * 1.005, 101 * 0.998, "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestPrice(tt.side, 5, q, market, tt.known)
			checks := []struct {
				field     string
				got, want float64
			}{
				{"AdjustmentPct", got.AdjustmentPct, tt.wantAdj},
				{"SuggestedPrice", got.SuggestedPrice, tt.wantSuggested},
				{"ConservativePrice", got.ConservativePrice, tt.wantConservative},
				{"AggressivePrice", got.AggressivePrice, tt.wantAggressive},
			}
			for _, c := range checks {
				if math.Abs(c.got-c.want) > 1e-9 {
					t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
				}
			}
			if got.VolatilityLevel != tt.wantVolatility {
				t.Errorf("VolatilityLevel = %q, want %q", got.VolatilityLevel, tt.wantVolatility)
			}
			if got.ReferencePrice != 100 || got.Volume != 5 || got.MarketKnown != tt.known {
				t.Errorf("SuggestPrice() = %+v", got)
			}
		})
	}
}

func TestSuggestPrice_HighVolatilityIsUrgent(t *testing.T) {
	got := SuggestPrice(domain.SideBuy, 1, domain.Quote{UnitPrice: 100}, domain.MarketSnapshot{Change24hPct: 8}, true)
	if got.VolatilityLevel != "high" || got.Urgency != "high" {
		t.Errorf("volatility, urgency = %q, %q, want high, high", got.VolatilityLevel, got.Urgency)
	}
}

func TestInsights(t *testing.T) {
	tests := []struct {
		name          string
		change        float64
		volume        float64
		wantCondition string
		wantBias      string
		wantRisk      string
		wantSize      string
		wantFactors   int
	}{
		{"calm liquid market", 0.5, 2e9, "neutral", "neutral", "low", "normal", 0},
		{"rally on thin volume", 3, 1e8, "bullish", "buy_side", "medium", "medium", 1},
		{"crash on thin volume", -7, 1e8, "strong_bearish", "sell_side", "high", "small", 2},
		{"sell-off", -2, 7e8, "bearish", "sell_side", "low", "normal", 0},
		{"breakout", 6, 3e9, "strong_bullish", "buy_side", "medium", "medium", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Insights(domain.MarketSnapshot{AssetID: "solana", Change24hPct: tt.change, Volume24h: tt.volume})
			if got.Condition != tt.wantCondition {
				t.Errorf("Condition = %q, want %q", got.Condition, tt.wantCondition)
			}
			if got.Bias != tt.wantBias {
				t.Errorf("Bias = %q, want %q", got.Bias, tt.wantBias)
			}
			if got.OverallRisk != tt.wantRisk {
				t.Errorf("OverallRisk = %q, want %q", got.OverallRisk, tt.wantRisk)
			}
			if got.PositionSize != tt.wantSize {
				t.Errorf("PositionSize = %q, want %q", got.PositionSize, tt.wantSize)
			}
			if len(got.RiskFactors) != tt.wantFactors {
				t.Errorf("RiskFactors = %v, want %d entries", got.RiskFactors, tt.wantFactors)
			}
		})
	}
}
