package domain

import "time"

// Quote is a point-in-time reference price for a given input size.
// ExecutionCostPct is the aggregator's price-impact estimate for that size.
type Quote struct {
	UnitPrice        float64
	InputAmount      float64
	OutputAmount     float64
	ExecutionCostPct float64
	RouteCount       int
	FetchedAt        time.Time
}

// MarketSnapshot is the broader, lower-cadence market view of the base asset.
type MarketSnapshot struct {
	AssetID      string
	Price        float64
	MarketCap    float64
	Volume24h    float64
	Change1hPct  float64
	Change24hPct float64
	Change7dPct  float64
	Rank         int
	FetchedAt    time.Time
}

// ImpactPoint is the execution cost observed for one order size.
type ImpactPoint struct {
	Size             float64
	ExecutionCostPct float64
	UnitPrice        float64
}
