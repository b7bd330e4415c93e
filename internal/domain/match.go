package domain

import "time"

// Match is a crossing between a BUY and a SELL offer. Candidates produced by
// the matching scan and executed fills share this shape.
type Match struct {
	BuyID     int64
	SellID    int64
	Quantity  float64
	Price     float64 // midpoint of the legs for candidates, agreed price for fills
	BuyPrice  float64
	SellPrice float64
	Spread    float64 // BuyPrice - SellPrice
	Notional  float64 // Quantity × Price
	Timestamp time.Time
}

// MatchStats summarizes executed matches. A match is profitable when its
// legs' spread is positive.
type MatchStats struct {
	TotalMatches      int
	TotalQuantity     float64
	TotalNotional     float64
	AvgPrice          float64
	AvgSpread         float64
	MaxSpread         float64
	MinSpread         float64
	MatchesToday      int
	ProfitableMatches int
	WinRatePct        float64
}
