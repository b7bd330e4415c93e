package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/engine"
	"github.com/efreitasn/otcpool/internal/events"
	"github.com/efreitasn/otcpool/internal/store"
)

// stubMarket returns a fixed snapshot, or err when set.
type stubMarket struct {
	snap domain.MarketSnapshot
	err  error
}

func (m *stubMarket) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	if m.err != nil {
		return domain.MarketSnapshot{}, m.err
	}
	return m.snap, nil
}

func newTestPoolEnvWithMarket(market engine.MarketSource) *testPoolEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	book := engine.NewOfferBook()
	src := &stubSource{price: 100}
	ms := store.NewMatchStore()
	ps := store.NewPriceStore(10)
	rec := events.NewDispatcher(logger, ms, ps)
	mon := engine.NewMonitor(book, src, market, rec, engine.NewReferenceState(), engine.MonitorConfig{StopTimeout: time.Second}, logger)
	svc := NewPoolService(book, mon, src, rec, ms, ps, logger)
	return &testPoolEnv{book: book, monitor: mon, source: src, matches: ms, prices: ps, svc: svc}
}

func TestSuggestPrice(t *testing.T) {
	env := newTestPoolEnvWithMarket(&stubMarket{snap: domain.MarketSnapshot{AssetID: "solana", Change24hPct: 4}})
	env.source.cost = 0.2

	got, err := env.svc.SuggestPrice(context.Background(), SuggestPriceRequest{Side: "sell", Volume: 25})
	if err != nil {
		t.Fatalf("SuggestPrice() error: %v", err)
	}
	// 0.5 base + 4 × 0.1 volatility + 0.2 × 0.5 impact
	if math.Abs(got.AdjustmentPct-1.0) > 1e-9 {
		t.Errorf("AdjustmentPct = %v, want 1", got.AdjustmentPct)
	}
	if math.Abs(got.SuggestedPrice-99) > 1e-9 {
		t.Errorf("SuggestedPrice = %v, want 99", got.SuggestedPrice)
	}
	if !got.MarketKnown || got.VolatilityLevel != "medium" {
		t.Errorf("MarketKnown, VolatilityLevel = %v, %q, want true, medium", got.MarketKnown, got.VolatilityLevel)
	}
	if len(env.source.sizes) != 1 || env.source.sizes[0] != 25 {
		t.Errorf("quoted sizes = %v, want [25]", env.source.sizes)
	}
}

func TestSuggestPrice_WithoutMarket(t *testing.T) {
	env := newTestPoolEnv()
	got, err := env.svc.SuggestPrice(context.Background(), SuggestPriceRequest{Side: "BUY", Volume: 1})
	if err != nil {
		t.Fatalf("SuggestPrice() error: %v", err)
	}
	if got.MarketKnown {
		t.Error("MarketKnown = true without a market source")
	}
	if math.Abs(got.SuggestedPrice-100.5) > 1e-9 {
		t.Errorf("SuggestedPrice = %v, want 100.5", got.SuggestedPrice)
	}
}

func TestSuggestPrice_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  SuggestPriceRequest
	}{
		{"bad side", SuggestPriceRequest{Side: "HOLD", Volume: 1}},
		{"zero volume", SuggestPriceRequest{Side: "BUY", Volume: 0}},
		{"NaN volume", SuggestPriceRequest{Side: "BUY", Volume: math.NaN()}},
		{"infinite volume", SuggestPriceRequest{Side: "SELL", Volume: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestPoolEnv()
			_, err := env.svc.SuggestPrice(context.Background(), tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("SuggestPrice() error = %v, want ValidationError", err)
			}
		})
	}

	env := newTestPoolEnv()
	env.source.fail(errors.New("aggregator down"))
	if _, err := env.svc.SuggestPrice(context.Background(), SuggestPriceRequest{Side: "BUY", Volume: 1}); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Errorf("SuggestPrice() with no price error = %v, want ErrPriceUnavailable", err)
	}
}

func TestMarketInsights(t *testing.T) {
	env := newTestPoolEnvWithMarket(&stubMarket{snap: domain.MarketSnapshot{AssetID: "solana", Change24hPct: -6, Volume24h: 1e8}})
	got, err := env.svc.MarketInsights(context.Background())
	if err != nil {
		t.Fatalf("MarketInsights() error: %v", err)
	}
	if got.Condition != "strong_bearish" || got.OverallRisk != "high" {
		t.Errorf("MarketInsights() = %+v, want strong_bearish with high risk", got)
	}
	if env.svc.MonitorStatus().Market == nil {
		t.Error("fetched snapshot was not published to the monitor")
	}
}

func TestMarketInsights_Unavailable(t *testing.T) {
	for name, env := range map[string]*testPoolEnv{
		"no source":      newTestPoolEnv(),
		"source failing": newTestPoolEnvWithMarket(&stubMarket{err: errors.New("rate limited")}),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := env.svc.MarketInsights(context.Background()); !errors.Is(err, domain.ErrMarketUnavailable) {
				t.Errorf("MarketInsights() error = %v, want ErrMarketUnavailable", err)
			}
		})
	}
}

func TestPerformance(t *testing.T) {
	env := newTestPoolEnv()
	if p := env.svc.Performance(); p.Prices.Samples != 0 || p.Matches.TotalMatches != 0 {
		t.Errorf("Performance() on empty pool = %+v", p)
	}

	buy := env.post(t, "BUY", 1, 102)
	sell := env.post(t, "SELL", 1, 98)
	if _, err := env.svc.Execute(context.Background(), ExecuteRequest{BuyID: buy.ID, SellID: sell.ID, Quantity: 1}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if _, err := env.svc.ScanNow(context.Background()); err != nil {
		t.Fatalf("ScanNow() error: %v", err)
	}

	p := env.svc.Performance()
	if p.Prices.Samples != 1 || p.Prices.Current != 100 || p.Prices.Trend != "bearish" {
		t.Errorf("Performance().Prices = %+v", p.Prices)
	}
	if p.Matches.TotalMatches != 1 || p.Matches.WinRatePct != 100 || p.Matches.MaxSpread != 4 {
		t.Errorf("Performance().Matches = %+v", p.Matches)
	}
}

func TestExport(t *testing.T) {
	env := newTestPoolEnv()
	buy := env.post(t, "BUY", 1, 101)
	sell := env.post(t, "SELL", 1, 99)
	if _, err := env.svc.Execute(context.Background(), ExecuteRequest{BuyID: buy.ID, SellID: sell.ID, Quantity: 1}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	all, err := env.svc.Export(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if len(all.Matches) != 1 || len(all.Prices) != 0 {
		t.Errorf("Export() = %d matches, %d prices, want 1, 0", len(all.Matches), len(all.Prices))
	}

	future := time.Now().Add(time.Hour)
	later, err := env.svc.Export(future, time.Time{})
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if len(later.Matches) != 0 {
		t.Errorf("Export(from future) matches = %d, want 0", len(later.Matches))
	}

	var ve *domain.ValidationError
	if _, err := env.svc.Export(future, future); !errors.As(err, &ve) {
		t.Errorf("Export(from == to) error = %v, want ValidationError", err)
	}
}
