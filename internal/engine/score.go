package engine

import (
	"math"

	"github.com/efreitasn/otcpool/internal/domain"
)

// SpreadPct returns the signed deviation of an offer from the reference
// price, in percent. It is positive when the offer is favourable to a
// counterparty trading against the reference: a BUY priced above it, or a
// SELL priced below it. Returns 0 when refPrice is not a positive finite
// number.
func SpreadPct(side domain.Side, offerPrice, refPrice float64) float64 {
	if !(refPrice > 0) || math.IsInf(refPrice, 1) {
		return 0
	}
	if side == domain.SideSell {
		return (refPrice - offerPrice) / refPrice * 100
	}
	return (offerPrice - refPrice) / refPrice * 100
}

// Score rates an offer against the reference price net of the execution
// cost of reaching the reference venue. The result is clamped to [0, 100]
// and is non-decreasing in the net spread.
func Score(offerPrice, refPrice float64, side domain.Side, executionCostPct float64) domain.Score {
	gross := SpreadPct(side, offerPrice, refPrice)
	net := gross - executionCostPct
	score := clamp((net+5)*10, 0, 100)

	return domain.Score{
		GrossSpreadPct:   gross,
		ExecutionCostPct: executionCostPct,
		NetSpreadPct:     net,
		Score:            score,
		Recommendation:   recommendation(score),
		RiskLevel:        riskLevel(score),
	}
}

// clamp bounds v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func recommendation(score float64) string {
	switch {
	case score > 80:
		return "excellent"
	case score > 60:
		return "good"
	case score > 40:
		return "moderate"
	case score > 20:
		return "low"
	default:
		return "poor"
	}
}

func riskLevel(score float64) string {
	switch {
	case score > 60:
		return "low"
	case score > 30:
		return "medium"
	default:
		return "high"
	}
}
