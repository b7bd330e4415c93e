package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

// MatchStore is a thread-safe in-memory history of executed matches.
// Matches are append-only and chronological.
type MatchStore struct {
	mu      sync.RWMutex
	matches []domain.Match
}

// NewMatchStore creates an empty MatchStore.
func NewMatchStore() *MatchStore {
	return &MatchStore{}
}

// Append adds a match to the history.
func (s *MatchStore) Append(m domain.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matches = append(s.matches, m)
}

// Recent returns up to limit matches, newest first. A non-positive limit
// returns every match. Returns an empty slice if there are none.
func (s *MatchStore) Recent(limit int) []domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.matches, limit)
}

// Stats summarizes the history. MatchesToday counts matches on now's UTC
// calendar day.
func (s *MatchStore) Stats(now time.Time) domain.MatchStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st domain.MatchStats
	if len(s.matches) == 0 {
		return st
	}

	y, m, d := now.UTC().Date()
	var priceSum, spreadSum float64
	st.MaxSpread = math.Inf(-1)
	st.MinSpread = math.Inf(1)
	for _, mt := range s.matches {
		st.TotalMatches++
		st.TotalQuantity += mt.Quantity
		st.TotalNotional += mt.Notional
		priceSum += mt.Price
		spreadSum += mt.Spread
		st.MaxSpread = math.Max(st.MaxSpread, mt.Spread)
		st.MinSpread = math.Min(st.MinSpread, mt.Spread)
		if my, mm, md := mt.Timestamp.UTC().Date(); my == y && mm == m && md == d {
			st.MatchesToday++
		}
		if mt.Spread > 0 {
			st.ProfitableMatches++
		}
	}
	st.AvgPrice = priceSum / float64(st.TotalMatches)
	st.AvgSpread = spreadSum / float64(st.TotalMatches)
	st.WinRatePct = float64(st.ProfitableMatches) / float64(st.TotalMatches) * 100
	return st
}

// Between returns the matches with from <= Timestamp < to, oldest first.
// A zero bound is open.
func (s *MatchStore) Between(from, to time.Time) []domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return between(s.matches, from, to, func(m domain.Match) time.Time { return m.Timestamp })
}

func (s *MatchStore) Name() string { return "match_history" }

// Inline reports that writes stay in memory.
func (s *MatchStore) Inline() bool { return true }

// Write records MATCH events; other kinds are ignored.
func (s *MatchStore) Write(ctx context.Context, e domain.Event) error {
	if e.Kind != domain.EventMatch {
		return nil
	}
	m, ok := e.Payload.(domain.Match)
	if !ok {
		return fmt.Errorf("store: match event carries %T", e.Payload)
	}
	s.Append(m)
	return nil
}

func between[T any](items []T, from, to time.Time, at func(T) time.Time) []T {
	out := make([]T, 0)
	for _, it := range items {
		ts := at(it)
		if !from.IsZero() && ts.Before(from) {
			continue
		}
		if !to.IsZero() && !ts.Before(to) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// newestFirst copies up to limit trailing elements in reverse order.
func newestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}
