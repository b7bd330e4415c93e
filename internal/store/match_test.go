package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

var day = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestMatch(buyID int64, spread float64, at time.Time) domain.Match {
	return domain.Match{
		BuyID:     buyID,
		SellID:    buyID + 100,
		Quantity:  2,
		Price:     100,
		Spread:    spread,
		Notional:  200,
		Timestamp: at,
	}
}

func TestMatchStore_Recent_NewestFirst(t *testing.T) {
	s := NewMatchStore()
	for i := int64(1); i <= 3; i++ {
		s.Append(newTestMatch(i, 1, day))
	}

	got := s.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) len = %d, want 2", len(got))
	}
	if got[0].BuyID != 3 || got[1].BuyID != 2 {
		t.Errorf("Recent(2) buy ids = [%d %d], want [3 2]", got[0].BuyID, got[1].BuyID)
	}
	if all := s.Recent(0); len(all) != 3 {
		t.Errorf("Recent(0) len = %d, want 3", len(all))
	}
}

func TestMatchStore_Recent_Empty(t *testing.T) {
	s := NewMatchStore()
	got := s.Recent(10)
	if got == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 matches, got %d", len(got))
	}
}

func TestMatchStore_Stats(t *testing.T) {
	s := NewMatchStore()
	if st := s.Stats(day); st != (domain.MatchStats{}) {
		t.Errorf("Stats() on empty store = %+v, want zero value", st)
	}

	s.Append(newTestMatch(1, 1, day.Add(-24*time.Hour)))
	s.Append(newTestMatch(2, 4, day))
	s.Append(newTestMatch(3, 1, day.Add(time.Hour)))

	st := s.Stats(day)
	want := domain.MatchStats{
		TotalMatches:  3,
		TotalQuantity: 6,
		TotalNotional: 600,
		AvgPrice:      100,
		AvgSpread:     2,
		MaxSpread:     4,
		MinSpread:     1,
		MatchesToday:  2,

		ProfitableMatches: 3,
		WinRatePct:        100,
	}
	if st != want {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}
}

func TestMatchStore_Stats_WinRate(t *testing.T) {
	s := NewMatchStore()
	for i, spread := range []float64{0, 2, 0, 3} {
		s.Append(newTestMatch(int64(i+1), spread, day))
	}

	st := s.Stats(day)
	if st.ProfitableMatches != 2 {
		t.Errorf("ProfitableMatches = %d, want 2", st.ProfitableMatches)
	}
	if st.WinRatePct != 50 {
		t.Errorf("WinRatePct = %v, want 50", st.WinRatePct)
	}
	if st.MaxSpread != 3 || st.MinSpread != 0 {
		t.Errorf("best, worst spread = %v, %v, want 3, 0", st.MaxSpread, st.MinSpread)
	}
}

func TestMatchStore_Between(t *testing.T) {
	s := NewMatchStore()
	s.Append(newTestMatch(1, 1, day.Add(-time.Hour)))
	s.Append(newTestMatch(2, 1, day))
	s.Append(newTestMatch(3, 1, day.Add(time.Hour)))

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want []int64
	}{
		{"open bounds", time.Time{}, time.Time{}, []int64{1, 2, 3}},
		{"from is inclusive", day, time.Time{}, []int64{2, 3}},
		{"to is exclusive", time.Time{}, day, []int64{1}},
		{"empty window", day.Add(2 * time.Hour), time.Time{}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Between(tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("Between() len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].BuyID != id {
					t.Errorf("Between()[%d].BuyID = %d, want %d", i, got[i].BuyID, id)
				}
			}
		})
	}
}

func TestMatchStore_Write_FiltersKind(t *testing.T) {
	s := NewMatchStore()
	ctx := context.Background()

	if err := s.Write(ctx, domain.Event{Kind: domain.EventPriceSample, Payload: domain.Quote{}}); err != nil {
		t.Fatalf("Write(PRICE_SAMPLE) error: %v", err)
	}
	if err := s.Write(ctx, domain.Event{Kind: domain.EventMatch, Payload: newTestMatch(1, 1, day)}); err != nil {
		t.Fatalf("Write(MATCH) error: %v", err)
	}
	if err := s.Write(ctx, domain.Event{Kind: domain.EventMatch, Payload: "bad"}); err == nil {
		t.Error("Write(MATCH, bad payload) error = nil, want error")
	}
	if n := len(s.Recent(0)); n != 1 {
		t.Errorf("Recent() len = %d, want 1", n)
	}
}

func TestMatchStore_ConcurrentAppend(t *testing.T) {
	s := NewMatchStore()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(newTestMatch(int64(g*1000+i), 1, day))
			}
		}(g)
	}
	wg.Wait()

	if n := len(s.Recent(0)); n != 400 {
		t.Fatalf("Recent() len = %d, want 400", n)
	}
}
