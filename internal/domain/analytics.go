package domain

import "time"

// PriceSuggestion is a suggested offer price around the reference price
// quoted for the intended volume. AdjustmentPct is the premium over the
// reference for a BUY and the discount under it for a SELL.
type PriceSuggestion struct {
	Side              Side
	Volume            float64
	ReferencePrice    float64
	ExecutionCostPct  float64
	Volatility24hPct  float64
	MarketKnown       bool
	AdjustmentPct     float64
	SuggestedPrice    float64
	ConservativePrice float64 // more generous to the counterparty, fills sooner
	AggressivePrice   float64 // closer to the reference
	VolatilityLevel   string
	Urgency           string
}

// PriceSummary describes the reference price samples held in history.
type PriceSummary struct {
	Samples int
	Current float64
	High    float64
	Low     float64
	Average float64
	Trend   string // "bullish" when Current is above Average, else "bearish"; empty without samples
	From    time.Time
	To      time.Time
}

// MarketInsights classifies a market snapshot into conditions, a trading
// bias and risk factors.
type MarketInsights struct {
	AssetID         string
	Condition       string
	Momentum24hPct  float64
	VolumeLevel     string
	VolatilityLevel string
	Bias            string
	Strategy        string
	RiskLevel       string
	OverallRisk     string
	RiskFactors     []string
	PositionSize    string
}
