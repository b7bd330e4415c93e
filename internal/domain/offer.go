package domain

import (
	"strings"
	"time"
)

// Side indicates whether an offer buys or sells the base asset.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes a side string ("buy", "SELL", ...). The second return
// value is false for anything other than BUY or SELL.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OfferStatus represents the lifecycle state of an offer. ACTIVE is the only
// non-terminal state.
type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusCancelled OfferStatus = "CANCELLED"
	OfferStatusCompleted OfferStatus = "COMPLETED"
)

// DefaultOwner is used when an offer is posted without an owner.
const DefaultOwner = "anonymous"

// Offer is a resting one-sided order to buy or sell Quantity units of the
// base asset at Price quote units each.
type Offer struct {
	ID               int64
	Side             Side
	Quantity         float64 // remaining, decreases on fill
	OriginalQuantity float64
	Price            float64 // immutable after creation
	Notional         float64 // Quantity × Price
	Owner            string
	Status           OfferStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the offer is still eligible for matching.
func (o *Offer) IsActive() bool {
	return o.Status == OfferStatusActive
}

// PoolStats is an aggregate view over the offer book. Averages and extremes
// are computed over ACTIVE offers only and are 0 for an empty side.
type PoolStats struct {
	TotalActive     int
	BuyCount        int
	SellCount       int
	CompletedCount  int
	CancelledCount  int
	BuyVolume       float64
	SellVolume      float64
	AvgBuyPrice     float64
	AvgSellPrice    float64
	HighestBuyPrice float64
	LowestSellPrice float64
}
