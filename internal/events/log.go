package events

import (
	"context"
	"log/slog"

	"github.com/efreitasn/otcpool/internal/domain"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Inline() bool { return true }

func (s *LogSink) Write(ctx context.Context, e domain.Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", e.ID),
		slog.String("kind", string(e.Kind)),
	}
	switch p := e.Payload.(type) {
	case domain.Match:
		attrs = append(attrs,
			slog.Int64("buy_id", p.BuyID),
			slog.Int64("sell_id", p.SellID),
			slog.Float64("quantity", p.Quantity),
			slog.Float64("price", p.Price))
	case domain.Quote:
		attrs = append(attrs,
			slog.Float64("unit_price", p.UnitPrice),
			slog.Float64("execution_cost_pct", p.ExecutionCostPct))
	case domain.Opportunity:
		attrs = append(attrs,
			slog.Int64("offer_id", p.OfferID),
			slog.String("side", string(p.Side)),
			slog.Float64("spread_pct", p.SpreadPct),
			slog.Float64("score", p.Score))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "event recorded", attrs...)
	return nil
}
