package domain

import "time"

// Opportunity flags a resting offer whose price deviates from the external
// reference price beyond the configured threshold.
type Opportunity struct {
	OfferID        int64
	Side           Side
	OfferPrice     float64
	ReferencePrice float64
	Quantity       float64
	SpreadPct      float64 // signed, see engine.SpreadPct
	Score          float64 // 0..100
	DetectedAt     time.Time
}

// Score is the outcome of scoring an offer against the reference price after
// execution costs.
type Score struct {
	GrossSpreadPct   float64
	ExecutionCostPct float64
	NetSpreadPct     float64
	Score            float64
	Recommendation   string
	RiskLevel        string
}
