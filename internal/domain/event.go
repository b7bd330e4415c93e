package domain

import (
	"strings"
	"time"
)

// EventKind identifies the payload carried by an Event.
type EventKind string

const (
	EventMatch                EventKind = "MATCH"
	EventPriceSample          EventKind = "PRICE_SAMPLE"
	EventArbitrageOpportunity EventKind = "ARBITRAGE_OPPORTUNITY"
)

// ParseEventKind normalizes a kind name such as "match". The second return
// value is false for unknown kinds.
func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case EventMatch, EventPriceSample, EventArbitrageOpportunity:
		return k, true
	}
	return "", false
}

// Event is the unit handed to event sinks. Payload is one of Match, Quote or
// Opportunity depending on Kind.
type Event struct {
	ID         string
	Kind       EventKind
	Payload    any
	RecordedAt time.Time
}
