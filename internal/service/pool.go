package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/engine"
	"github.com/efreitasn/otcpool/internal/store"
)

const maxOwnerLength = 64

// PostOfferRequest represents the input for posting an offer.
type PostOfferRequest struct {
	Side     string
	Quantity float64
	Price    float64
	Owner    string
}

// ExecuteRequest represents the input for executing a match. A nil Price
// fills at the midpoint of the two legs.
type ExecuteRequest struct {
	BuyID    int64
	SellID   int64
	Quantity float64
	Price    *float64
}

// PoolService is the API the presentation layer uses. It composes the offer
// book, the arbitrage monitor, scoring and event recording.
type PoolService struct {
	book     *engine.OfferBook
	monitor  *engine.Monitor
	source   engine.PriceSource
	recorder engine.Recorder
	matches  *store.MatchStore
	prices   *store.PriceStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewPoolService creates a PoolService with the given dependencies.
func NewPoolService(
	book *engine.OfferBook,
	monitor *engine.Monitor,
	source engine.PriceSource,
	recorder engine.Recorder,
	matches *store.MatchStore,
	prices *store.PriceStore,
	logger *slog.Logger,
) *PoolService {
	return &PoolService{
		book:     book,
		monitor:  monitor,
		source:   source,
		recorder: recorder,
		matches:  matches,
		prices:   prices,
		logger:   logger,
		now:      time.Now,
	}
}

// PostOffer validates the request and rests a new offer on the book.
func (s *PoolService) PostOffer(req PostOfferRequest) (domain.Offer, error) {
	side, ok := domain.ParseSide(req.Side)
	if !ok {
		return domain.Offer{}, &domain.ValidationError{Message: "side must be 'BUY' or 'SELL'"}
	}
	if !(req.Quantity > 0) || math.IsInf(req.Quantity, 0) {
		return domain.Offer{}, &domain.ValidationError{Message: "quantity must be a positive number"}
	}
	if !(req.Price > 0) || math.IsInf(req.Price, 0) {
		return domain.Offer{}, &domain.ValidationError{Message: "price must be a positive number"}
	}
	if len(req.Owner) > maxOwnerLength {
		return domain.Offer{}, &domain.ValidationError{
			Message: fmt.Sprintf("owner must be at most %d characters", maxOwnerLength),
		}
	}

	id, err := s.book.Post(side, req.Quantity, req.Price, req.Owner)
	if err != nil {
		return domain.Offer{}, err
	}
	offer, _ := s.book.Get(id)
	return offer, nil
}

// CancelOffer cancels an ACTIVE offer. It returns ErrOfferNotFound for
// unknown ids and ErrInvalidState for terminal offers.
func (s *PoolService) CancelOffer(id int64) (domain.Offer, error) {
	if !s.book.Cancel(id) {
		if _, ok := s.book.Get(id); ok {
			return domain.Offer{}, domain.ErrInvalidState
		}
		return domain.Offer{}, domain.ErrOfferNotFound
	}
	offer, _ := s.book.Get(id)
	return offer, nil
}

// GetOffer returns any offer by id, including terminal ones.
func (s *PoolService) GetOffer(id int64) (domain.Offer, error) {
	offer, ok := s.book.Get(id)
	if !ok {
		return domain.Offer{}, domain.ErrOfferNotFound
	}
	return offer, nil
}

// ListActive returns ACTIVE offers in insertion order. An empty side
// returns both sides.
func (s *PoolService) ListActive(side string) ([]domain.Offer, error) {
	if side == "" {
		return s.book.ListActive(""), nil
	}
	parsed, ok := domain.ParseSide(side)
	if !ok {
		return nil, &domain.ValidationError{Message: "side must be 'BUY' or 'SELL'"}
	}
	return s.book.ListActive(parsed), nil
}

// MatchCandidates returns every crossing pair on the book.
func (s *PoolService) MatchCandidates() []domain.Match {
	return s.book.MatchCandidates()
}

// Execute fills a match and records it. Failures distinguish unknown ids
// (ErrOfferNotFound) from offers that cannot fill (ErrInvalidState).
func (s *PoolService) Execute(ctx context.Context, req ExecuteRequest) (domain.Match, error) {
	if !(req.Quantity > 0) || math.IsInf(req.Quantity, 0) {
		return domain.Match{}, &domain.ValidationError{Message: "quantity must be a positive number"}
	}
	if req.Price != nil && (!(*req.Price > 0) || math.IsInf(*req.Price, 0)) {
		return domain.Match{}, &domain.ValidationError{Message: "price must be a positive number"}
	}

	buy, okBuy := s.book.Get(req.BuyID)
	sell, okSell := s.book.Get(req.SellID)
	if !okBuy || !okSell {
		return domain.Match{}, domain.ErrOfferNotFound
	}

	price := (buy.Price + sell.Price) / 2
	if req.Price != nil {
		price = *req.Price
	}

	m, ok := s.book.Execute(req.BuyID, req.SellID, req.Quantity, price)
	if !ok {
		return domain.Match{}, domain.ErrInvalidState
	}

	s.logger.InfoContext(ctx, "match executed",
		slog.Int64("buy_id", m.BuyID),
		slog.Int64("sell_id", m.SellID),
		slog.Float64("quantity", m.Quantity),
		slog.Float64("price", m.Price))
	if s.recorder != nil {
		s.recorder.Record(context.WithoutCancel(ctx), domain.EventMatch, m)
	}
	return m, nil
}

// Stats returns the book aggregates.
func (s *PoolService) Stats() domain.PoolStats {
	return s.book.Stats()
}

// Reset drops every offer. Offer ids keep increasing afterwards.
func (s *PoolService) Reset() {
	s.book.Reset()
}

// RecentMatches returns up to limit executed matches, newest first.
func (s *PoolService) RecentMatches(limit int) []domain.Match {
	return s.matches.Recent(limit)
}

// MatchStats summarizes executed matches.
func (s *PoolService) MatchStats() domain.MatchStats {
	return s.matches.Stats(s.now())
}

// RecentPrices returns up to limit reference price samples, newest first.
func (s *PoolService) RecentPrices(limit int) []domain.Quote {
	return s.prices.Recent(limit)
}
