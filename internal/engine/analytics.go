package engine

import (
	"math"

	"github.com/efreitasn/otcpool/internal/domain"
)

// Price suggestion weights, in percent.
const (
	suggestBasePct        = 0.5
	suggestVolatilityRate = 0.1 // per point of absolute 24h change
	suggestImpactRate     = 0.5 // per point of execution cost
	conservativeBufferPct = 0.5
	aggressiveTrimPct     = 0.2
)

// SuggestPrice proposes an offer price around the reference quoted for the
// intended volume. A BUY is priced at a premium over the reference to draw
// sellers and a SELL at a discount to draw buyers; the adjustment grows with
// the absolute 24h change and the execution cost of the volume. Without a
// known market the change is taken as zero.
func SuggestPrice(side domain.Side, volume float64, q domain.Quote, market domain.MarketSnapshot, marketKnown bool) domain.PriceSuggestion {
	var volatility float64
	if marketKnown {
		volatility = math.Abs(market.Change24hPct)
	}
	cost := math.Max(q.ExecutionCostPct, 0)
	adj := suggestBasePct + volatility*suggestVolatilityRate + cost*suggestImpactRate

	sign := 1.0
	if side == domain.SideSell {
		sign = -1
	}
	suggested := q.UnitPrice * (1 + sign*adj/100)

	urgency := "medium"
	if volatility > 5 {
		urgency = "high"
	}
	return domain.PriceSuggestion{
		Side:              side,
		Volume:            volume,
		ReferencePrice:    q.UnitPrice,
		ExecutionCostPct:  q.ExecutionCostPct,
		Volatility24hPct:  volatility,
		MarketKnown:       marketKnown,
		AdjustmentPct:     adj,
		SuggestedPrice:    suggested,
		ConservativePrice: suggested * (1 + sign*conservativeBufferPct/100),
		AggressivePrice:   suggested * (1 - sign*aggressiveTrimPct/100),
		VolatilityLevel:   volatilityLevel(volatility),
		Urgency:           urgency,
	}
}

func volatilityLevel(absChangePct float64) string {
	switch {
	case absChangePct > 5:
		return "high"
	case absChangePct > 2:
		return "medium"
	default:
		return "low"
	}
}

func volumeLevel(volume24h float64) string {
	switch {
	case volume24h > 1e9:
		return "high"
	case volume24h > 5e8:
		return "medium"
	default:
		return "low"
	}
}

func marketCondition(change24hPct float64) string {
	switch {
	case change24hPct > 5:
		return "strong_bullish"
	case change24hPct > 1:
		return "bullish"
	case change24hPct > -1:
		return "neutral"
	case change24hPct > -5:
		return "bearish"
	default:
		return "strong_bearish"
	}
}

// Insights classifies a market snapshot by its 24h change and volume and
// derives a trading bias and risk assessment from them.
func Insights(m domain.MarketSnapshot) domain.MarketInsights {
	in := domain.MarketInsights{
		AssetID:         m.AssetID,
		Condition:       marketCondition(m.Change24hPct),
		Momentum24hPct:  m.Change24hPct,
		VolumeLevel:     volumeLevel(m.Volume24h),
		VolatilityLevel: volatilityLevel(math.Abs(m.Change24hPct)),
		RiskFactors:     []string{},
	}

	switch in.Condition {
	case "strong_bullish", "bullish":
		in.Bias = "buy_side"
		in.Strategy = "post buy offers slightly under the reference to capture upside"
		in.RiskLevel = "medium"
	case "strong_bearish", "bearish":
		in.Bias = "sell_side"
		in.Strategy = "post sell offers at a premium or wait for a reversal"
		in.RiskLevel = "high"
	default:
		in.Bias = "neutral"
		in.Strategy = "capture the spread on both sides"
		in.RiskLevel = "low"
	}

	if in.VolatilityLevel == "high" {
		in.RiskFactors = append(in.RiskFactors, "high price volatility increases execution risk")
	}
	if in.VolumeLevel == "low" {
		in.RiskFactors = append(in.RiskFactors, "low volume may impact liquidity")
	}
	switch len(in.RiskFactors) {
	case 0:
		in.OverallRisk, in.PositionSize = "low", "normal"
	case 1:
		in.OverallRisk, in.PositionSize = "medium", "medium"
	default:
		in.OverallRisk, in.PositionSize = "high", "small"
	}
	return in
}
