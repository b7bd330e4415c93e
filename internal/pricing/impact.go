package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/efreitasn/otcpool/internal/engine"
)

// RecommendedImpactPct is the largest execution cost considered acceptable
// when picking a recommended order size.
const RecommendedImpactPct = 0.5

// ImpactCurve is the execution cost observed across several order sizes.
type ImpactCurve struct {
	Points []domain.ImpactPoint
	// Failed lists sizes whose quote could not be fetched.
	Failed []float64
	// RecommendedSize is the largest size whose cost stays within
	// RecommendedImpactPct; 0 when none does.
	RecommendedSize float64
}

// PriceImpactCurve quotes each size in turn, pausing between requests to
// stay under the API rate limit. A failed size is reported, not fatal.
func PriceImpactCurve(ctx context.Context, src engine.PriceSource, sizes []float64, pause time.Duration, logger *slog.Logger) (ImpactCurve, error) {
	var curve ImpactCurve
	for i, size := range sizes {
		if i > 0 && pause > 0 {
			t := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return curve, ctx.Err()
			case <-t.C:
			}
		}

		q, err := src.Quote(ctx, size)
		if err != nil {
			logger.WarnContext(ctx, "impact quote failed",
				slog.Float64("size", size),
				slog.String("error", err.Error()))
			curve.Failed = append(curve.Failed, size)
			continue
		}
		curve.Points = append(curve.Points, domain.ImpactPoint{
			Size:             size,
			ExecutionCostPct: q.ExecutionCostPct,
			UnitPrice:        q.UnitPrice,
		})
		if q.ExecutionCostPct <= RecommendedImpactPct && size > curve.RecommendedSize {
			curve.RecommendedSize = size
		}
	}
	return curve, nil
}
