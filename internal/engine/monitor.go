package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

const (
	DefaultMonitorInterval = 15 * time.Second
	DefaultStopTimeout     = 5 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultThresholdPct    = 1.0
	DefaultUnitSize        = 1.0
	DefaultMarketEvery     = 5

	// failureBackoff caps the wait after a failed cycle.
	failureBackoff = 30 * time.Second
)

// PriceSource quotes the external reference price for an input size.
type PriceSource interface {
	Quote(ctx context.Context, size float64) (domain.Quote, error)
}

// MarketSource provides the broader market view of the base asset.
type MarketSource interface {
	Snapshot(ctx context.Context) (domain.MarketSnapshot, error)
}

// Recorder receives events produced by the book's callers and the monitor.
// Implementations must not block for long and must be safe for concurrent
// use; failures are theirs to report.
type Recorder interface {
	Record(ctx context.Context, kind domain.EventKind, payload any)
}

// ReferenceState is the last reference observation shared between the
// monitor (writer) and foreground readers.
type ReferenceState struct {
	mu        sync.RWMutex
	quote     domain.Quote
	hasQuote  bool
	market    domain.MarketSnapshot
	hasMarket bool
}

// NewReferenceState returns an empty state; Price reports ok=false until
// the first successful fetch.
func NewReferenceState() *ReferenceState {
	return &ReferenceState{}
}

// Price returns the last observed unit price and when it was fetched.
// Stale values stay visible until replaced.
func (s *ReferenceState) Price() (float64, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote.UnitPrice, s.quote.FetchedAt, s.hasQuote
}

// Quote returns the full last observed quote.
func (s *ReferenceState) Quote() (domain.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote, s.hasQuote
}

// Market returns the last market snapshot.
func (s *ReferenceState) Market() (domain.MarketSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.market, s.hasMarket
}

// setQuote publishes q unless a newer quote is already stored.
func (s *ReferenceState) setQuote(q domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasQuote && q.FetchedAt.Before(s.quote.FetchedAt) {
		return
	}
	s.quote = q
	s.hasQuote = true
}

func (s *ReferenceState) setMarket(m domain.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market = m
	s.hasMarket = true
}

// MonitorConfig tunes the monitor. Zero values fall back to the defaults.
type MonitorConfig struct {
	StopTimeout  time.Duration
	FetchTimeout time.Duration
	ThresholdPct float64
	UnitSize     float64
	MarketEvery  int
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.ThresholdPct <= 0 {
		c.ThresholdPct = DefaultThresholdPct
	}
	if c.UnitSize <= 0 {
		c.UnitSize = DefaultUnitSize
	}
	if c.MarketEvery <= 0 {
		c.MarketEvery = DefaultMarketEvery
	}
	return c
}

// Monitor polls the reference price on an interval, publishes it to a
// ReferenceState and flags resting offers that deviate from it by more than
// the configured threshold. It reads the book only through its public API.
type Monitor struct {
	book     *OfferBook
	prices   PriceSource
	market   MarketSource
	recorder Recorder
	state    *ReferenceState
	cfg      MonitorConfig
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex // guards cancel and done
	cancel context.CancelFunc
	done   chan struct{}

	cycles atomic.Uint64
}

// NewMonitor creates a stopped monitor. market and recorder may be nil.
func NewMonitor(
	book *OfferBook,
	prices PriceSource,
	market MarketSource,
	recorder Recorder,
	state *ReferenceState,
	cfg MonitorConfig,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		book:     book,
		prices:   prices,
		market:   market,
		recorder: recorder,
		state:    state,
		cfg:      cfg.withDefaults(),
		logger:   logger.With(slog.String("component", "arbitrage_monitor")),
		now:      time.Now,
	}
}

// Start launches the polling loop. It is a no-op when the loop is already
// running. A non-positive interval uses DefaultMonitorInterval. The loop
// also stops when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go m.run(loopCtx, interval, done)
}

// Stop cancels the loop and waits up to the configured stop timeout for it
// to exit. It returns either way; a loop still blocked in a fetch exits
// without publishing once the fetch returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	timer := time.NewTimer(m.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		m.logger.Info("arbitrage monitor stopped")
	case <-timer.C:
		m.logger.Warn("arbitrage monitor did not stop in time",
			slog.Duration("timeout", m.cfg.StopTimeout))
	}
}

// IsRunning reports whether a loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done != nil
}

// ReferencePrice returns the last successfully observed reference price.
func (m *Monitor) ReferencePrice() (float64, time.Time, bool) {
	return m.state.Price()
}

// MarketSnapshot returns the last market snapshot, if any was fetched.
func (m *Monitor) MarketSnapshot() (domain.MarketSnapshot, bool) {
	return m.state.Market()
}

// Cycles returns the number of cycles the loop has run.
func (m *Monitor) Cycles() uint64 {
	return m.cycles.Load()
}

func (m *Monitor) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		if m.done == done {
			m.cancel()
			m.cancel, m.done = nil, nil
		}
		m.mu.Unlock()
		close(done)
	}()

	m.logger.Info("arbitrage monitor started", slog.Duration("interval", interval))

	for {
		wait := m.runCycle(ctx, interval)
		if ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle performs one poll-and-scan cycle and returns how long to wait
// before the next one. The market snapshot is refreshed on its own cadence
// whether or not the quote succeeded.
func (m *Monitor) runCycle(ctx context.Context, interval time.Duration) time.Duration {
	n := m.cycles.Add(1)

	q, err := m.fetchQuote(ctx)
	if ctx.Err() != nil {
		return 0
	}

	wait := interval
	if err != nil {
		m.logger.WarnContext(ctx, "reference price fetch failed",
			slog.Uint64("cycle", n),
			slog.String("error", err.Error()))
		wait = min(interval, failureBackoff)
	} else {
		m.state.setQuote(q)
		m.record(ctx, domain.EventPriceSample, q)
		m.logger.DebugContext(ctx, "reference price updated",
			slog.Uint64("cycle", n),
			slog.Float64("price", q.UnitPrice))

		m.scan(ctx, q)
	}

	if m.market != nil && n%uint64(m.cfg.MarketEvery) == 0 {
		m.refreshMarket(ctx)
	}
	return wait
}

// fetchQuote runs on a context detached from ctx's cancellation so Stop
// does not abort an in-flight request; FetchTimeout bounds it instead.
func (m *Monitor) fetchQuote(ctx context.Context) (domain.Quote, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.FetchTimeout)
	defer cancel()

	q, err := m.prices.Quote(fctx, m.cfg.UnitSize)
	if err != nil {
		return domain.Quote{}, err
	}
	if !(q.UnitPrice > 0) || math.IsInf(q.UnitPrice, 0) {
		return domain.Quote{}, fmt.Errorf("%w: non-positive unit price %v", domain.ErrSourceUnavailable, q.UnitPrice)
	}
	if q.FetchedAt.IsZero() {
		q.FetchedAt = m.now()
	}
	return q, nil
}

func (m *Monitor) refreshMarket(ctx context.Context) {
	snap, err := m.fetchMarket(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "market snapshot fetch failed", slog.String("error", err.Error()))
		return
	}
	if ctx.Err() != nil {
		return
	}
	m.state.setMarket(snap)
}

func (m *Monitor) fetchMarket(ctx context.Context) (domain.MarketSnapshot, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.FetchTimeout)
	defer cancel()

	snap, err := m.market.Snapshot(fctx)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = m.now()
	}
	return snap, nil
}

// RefreshMarket fetches a market snapshot immediately and publishes it. It
// returns ErrMarketUnavailable when there is no market source or the fetch
// fails.
func (m *Monitor) RefreshMarket(ctx context.Context) (domain.MarketSnapshot, error) {
	if m.market == nil {
		return domain.MarketSnapshot{}, domain.ErrMarketUnavailable
	}
	snap, err := m.fetchMarket(ctx)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: %v", domain.ErrMarketUnavailable, err)
	}
	m.state.setMarket(snap)
	return snap, nil
}

// scan flags every ACTIVE offer whose spread against q exceeds the
// threshold and records each as an opportunity.
func (m *Monitor) scan(ctx context.Context, q domain.Quote) []domain.Opportunity {
	now := m.now()
	var out []domain.Opportunity
	for _, o := range m.book.ListActive("") {
		spread := SpreadPct(o.Side, o.Price, q.UnitPrice)
		if math.Abs(spread) <= m.cfg.ThresholdPct {
			continue
		}
		sc := Score(o.Price, q.UnitPrice, o.Side, q.ExecutionCostPct)
		opp := domain.Opportunity{
			OfferID:        o.ID,
			Side:           o.Side,
			OfferPrice:     o.Price,
			ReferencePrice: q.UnitPrice,
			Quantity:       o.Quantity,
			SpreadPct:      spread,
			Score:          sc.Score,
			DetectedAt:     now,
		}
		out = append(out, opp)
		m.record(ctx, domain.EventArbitrageOpportunity, opp)
	}
	if len(out) > 0 {
		m.logger.InfoContext(ctx, "arbitrage opportunities detected",
			slog.Int("count", len(out)),
			slog.Float64("reference_price", q.UnitPrice))
	}
	return out
}

// ScanNow refreshes the reference price and scans the book immediately.
// If the refresh fails the last known price is used; ErrPriceUnavailable
// is returned when no price was ever observed.
func (m *Monitor) ScanNow(ctx context.Context) ([]domain.Opportunity, error) {
	q, err := m.fetchQuote(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "forced price refresh failed, using last known price",
			slog.String("error", err.Error()))
	} else {
		m.state.setQuote(q)
		m.record(ctx, domain.EventPriceSample, q)
	}

	last, ok := m.state.Quote()
	if !ok {
		return nil, domain.ErrPriceUnavailable
	}
	return m.scan(ctx, last), nil
}

func (m *Monitor) record(ctx context.Context, kind domain.EventKind, payload any) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(context.WithoutCancel(ctx), kind, payload)
}
