package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

// DefaultPriceCapacity bounds the number of samples a PriceStore keeps.
const DefaultPriceCapacity = 1000

// PriceStore keeps the most recent reference price samples, dropping the
// oldest once capacity is reached.
type PriceStore struct {
	mu       sync.RWMutex
	capacity int
	samples  []domain.Quote
}

// NewPriceStore creates a PriceStore holding at most capacity samples.
func NewPriceStore(capacity int) *PriceStore {
	if capacity <= 0 {
		capacity = DefaultPriceCapacity
	}
	return &PriceStore{capacity: capacity}
}

// Append adds a sample, evicting the oldest when full.
func (s *PriceStore) Append(q domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) == s.capacity {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:len(s.samples)-1]
	}
	s.samples = append(s.samples, q)
}

// Recent returns up to limit samples, newest first.
func (s *PriceStore) Recent(limit int) []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.samples, limit)
}

// Summary describes the samples held. Trend is empty when there are none.
func (s *PriceStore) Summary() domain.PriceSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum domain.PriceSummary
	if len(s.samples) == 0 {
		return sum
	}

	sum.Samples = len(s.samples)
	sum.High = math.Inf(-1)
	sum.Low = math.Inf(1)
	var total float64
	for _, q := range s.samples {
		total += q.UnitPrice
		sum.High = math.Max(sum.High, q.UnitPrice)
		sum.Low = math.Min(sum.Low, q.UnitPrice)
	}
	first, last := s.samples[0], s.samples[len(s.samples)-1]
	sum.Current = last.UnitPrice
	sum.Average = total / float64(sum.Samples)
	sum.From = first.FetchedAt
	sum.To = last.FetchedAt
	sum.Trend = "bearish"
	if sum.Current > sum.Average {
		sum.Trend = "bullish"
	}
	return sum
}

// Between returns the samples with from <= FetchedAt < to, oldest first.
// A zero bound is open.
func (s *PriceStore) Between(from, to time.Time) []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return between(s.samples, from, to, func(q domain.Quote) time.Time { return q.FetchedAt })
}

// Len returns the number of samples held.
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

func (s *PriceStore) Name() string { return "price_history" }

// Inline reports that writes stay in memory.
func (s *PriceStore) Inline() bool { return true }

// Write records PRICE_SAMPLE events; other kinds are ignored.
func (s *PriceStore) Write(ctx context.Context, e domain.Event) error {
	if e.Kind != domain.EventPriceSample {
		return nil
	}
	q, ok := e.Payload.(domain.Quote)
	if !ok {
		return fmt.Errorf("store: price event carries %T", e.Payload)
	}
	s.Append(q)
	return nil
}
