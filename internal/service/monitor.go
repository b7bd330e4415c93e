package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/engine"
	"github.com/efreitasn/otcpool/internal/pricing"
)

const (
	maxImpactSizes = 10
	impactPause    = 100 * time.Millisecond
)

// DefaultImpactSizes are the order sizes quoted when none are given.
var DefaultImpactSizes = []float64{0.1, 1, 10, 100, 1000}

// ReferencePrice is the last observed external price.
type ReferencePrice struct {
	Price     float64
	FetchedAt time.Time
}

// MonitorStatus describes the arbitrage monitor.
type MonitorStatus struct {
	Running   bool
	Cycles    uint64
	Reference *ReferencePrice
	Market    *domain.MarketSnapshot
}

// OfferScore is the score of one offer against the reference price.
type OfferScore struct {
	Offer          domain.Offer
	ReferencePrice float64
	Score          domain.Score
}

// StartMonitor starts the background monitor polling every intervalSeconds.
// A non-positive interval uses the default. Starting a running monitor is a
// no-op. The monitor outlives the caller's context; stop it with
// StopMonitor.
func (s *PoolService) StartMonitor(ctx context.Context, intervalSeconds float64) {
	interval := time.Duration(intervalSeconds * float64(time.Second))
	s.monitor.Start(context.WithoutCancel(ctx), interval)
}

// StopMonitor stops the background monitor, waiting a bounded time for it.
func (s *PoolService) StopMonitor() {
	s.monitor.Stop()
}

// IsMonitoring reports whether the monitor loop is running.
func (s *PoolService) IsMonitoring() bool {
	return s.monitor.IsRunning()
}

// CurrentReferencePrice returns the last observed price or
// ErrPriceUnavailable when none was ever fetched.
func (s *PoolService) CurrentReferencePrice() (ReferencePrice, error) {
	price, at, ok := s.monitor.ReferencePrice()
	if !ok {
		return ReferencePrice{}, domain.ErrPriceUnavailable
	}
	return ReferencePrice{Price: price, FetchedAt: at}, nil
}

// MonitorStatus returns the monitor state and its last observations.
func (s *PoolService) MonitorStatus() MonitorStatus {
	st := MonitorStatus{
		Running: s.monitor.IsRunning(),
		Cycles:  s.monitor.Cycles(),
	}
	if price, at, ok := s.monitor.ReferencePrice(); ok {
		st.Reference = &ReferencePrice{Price: price, FetchedAt: at}
	}
	if snap, ok := s.monitor.MarketSnapshot(); ok {
		st.Market = &snap
	}
	return st
}

// ScanNow refreshes the reference price and returns the current
// opportunities.
func (s *PoolService) ScanNow(ctx context.Context) ([]domain.Opportunity, error) {
	return s.monitor.ScanNow(ctx)
}

// ScoreOffer scores an offer against the reference price, using the
// execution cost quoted for the offer's own size. When that quote fails the
// last observed reference and its cost are used instead.
func (s *PoolService) ScoreOffer(ctx context.Context, id int64) (OfferScore, error) {
	offer, ok := s.book.Get(id)
	if !ok {
		return OfferScore{}, domain.ErrOfferNotFound
	}

	q, err := s.source.Quote(ctx, offer.Quantity)
	if err != nil || !(q.UnitPrice > 0) {
		s.logger.WarnContext(ctx, "size quote failed, scoring against last reference",
			slog.Int64("offer_id", id),
			slog.Any("error", err))
		last, ok := s.lastQuote()
		if !ok {
			return OfferScore{}, domain.ErrPriceUnavailable
		}
		q = last
	}

	return OfferScore{
		Offer:          offer,
		ReferencePrice: q.UnitPrice,
		Score:          engine.Score(offer.Price, q.UnitPrice, offer.Side, q.ExecutionCostPct),
	}, nil
}

func (s *PoolService) lastQuote() (domain.Quote, bool) {
	recent := s.prices.Recent(1)
	if len(recent) == 1 {
		return recent[0], true
	}
	price, at, ok := s.monitor.ReferencePrice()
	if !ok {
		return domain.Quote{}, false
	}
	return domain.Quote{UnitPrice: price, FetchedAt: at}, true
}

// PriceImpact quotes each size and reports the execution cost curve.
func (s *PoolService) PriceImpact(ctx context.Context, sizes []float64) (pricing.ImpactCurve, error) {
	if len(sizes) == 0 {
		sizes = DefaultImpactSizes
	}
	if len(sizes) > maxImpactSizes {
		return pricing.ImpactCurve{}, &domain.ValidationError{
			Message: fmt.Sprintf("at most %d sizes may be quoted", maxImpactSizes),
		}
	}
	for _, size := range sizes {
		if !(size > 0) {
			return pricing.ImpactCurve{}, &domain.ValidationError{Message: "sizes must be positive numbers"}
		}
	}
	return pricing.PriceImpactCurve(ctx, s.source, sizes, impactPause, s.logger)
}
