package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidOrder      = errors.New("invalid_order")
	ErrOfferNotFound     = errors.New("offer_not_found")
	ErrInvalidState      = errors.New("invalid_state")
	ErrSourceUnavailable = errors.New("source_unavailable")
	ErrPriceUnavailable  = errors.New("price_unavailable")
	ErrMarketUnavailable = errors.New("market_unavailable")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
