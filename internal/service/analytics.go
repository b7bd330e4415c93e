package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/engine"
)

// Performance summarizes the reference price history and the executed
// matches.
type Performance struct {
	Prices  domain.PriceSummary
	Matches domain.MatchStats
}

// Export is the history recorded within a time window, oldest first.
type Export struct {
	From    time.Time
	To      time.Time
	Matches []domain.Match
	Prices  []domain.Quote
}

// SuggestPriceRequest represents the input for a price suggestion.
type SuggestPriceRequest struct {
	Side   string
	Volume float64
}

// SuggestPrice proposes an offer price for the given side and volume. The
// reference is quoted for the volume itself; when that quote fails the last
// observed reference is used. The market snapshot supplies the volatility;
// without one the suggestion is made as if the market were flat.
func (s *PoolService) SuggestPrice(ctx context.Context, req SuggestPriceRequest) (domain.PriceSuggestion, error) {
	side, ok := domain.ParseSide(req.Side)
	if !ok {
		return domain.PriceSuggestion{}, &domain.ValidationError{Message: "side must be 'BUY' or 'SELL'"}
	}
	if !(req.Volume > 0) || math.IsInf(req.Volume, 0) {
		return domain.PriceSuggestion{}, &domain.ValidationError{Message: "volume must be a positive number"}
	}

	q, err := s.source.Quote(ctx, req.Volume)
	if err != nil || !(q.UnitPrice > 0) {
		s.logger.WarnContext(ctx, "size quote failed, suggesting from last reference",
			slog.Float64("volume", req.Volume),
			slog.Any("error", err))
		last, ok := s.lastQuote()
		if !ok {
			return domain.PriceSuggestion{}, domain.ErrPriceUnavailable
		}
		q = last
	}

	market, err := s.marketSnapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "no market snapshot for price suggestion", slog.Any("error", err))
	}
	return engine.SuggestPrice(side, req.Volume, q, market, err == nil), nil
}

// MarketInsights classifies the market snapshot. It returns
// ErrMarketUnavailable when none can be obtained.
func (s *PoolService) MarketInsights(ctx context.Context) (domain.MarketInsights, error) {
	snap, err := s.marketSnapshot(ctx)
	if err != nil {
		return domain.MarketInsights{}, err
	}
	return engine.Insights(snap), nil
}

// marketSnapshot returns the monitor's last snapshot, fetching one when the
// monitor has none yet.
func (s *PoolService) marketSnapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	if snap, ok := s.monitor.MarketSnapshot(); ok {
		return snap, nil
	}
	return s.monitor.RefreshMarket(ctx)
}

// Performance summarizes price history and trading results.
func (s *PoolService) Performance() Performance {
	return Performance{
		Prices:  s.prices.Summary(),
		Matches: s.matches.Stats(s.now()),
	}
}

// Export returns matches and price samples recorded in [from, to). A zero
// bound is open.
func (s *PoolService) Export(from, to time.Time) (Export, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return Export{}, &domain.ValidationError{Message: "from must be before to"}
	}
	return Export{
		From:    from,
		To:      to,
		Matches: s.matches.Between(from, to),
		Prices:  s.prices.Between(from, to),
	}, nil
}
