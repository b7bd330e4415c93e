package events

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

// CSV file names inside the sink directory.
const (
	MatchesFile       = "otc_matches.csv"
	PricesFile        = "reference_prices.csv"
	OpportunitiesFile = "arbitrage_opportunities.csv"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var (
	matchesHeader = []string{
		"timestamp", "buy_id", "sell_id", "match_amount", "match_price",
		"buy_price", "sell_price", "spread", "total_usdc", "jupiter_price",
		"otc_vs_jupiter_spread",
	}
	pricesHeader = []string{
		"timestamp", "jupiter_price", "input_amount", "output_amount",
		"price_impact_pct", "route_count",
	}
	opportunitiesHeader = []string{
		"timestamp", "offer_id", "side", "offer_price", "reference_price",
		"quantity", "spread_pct", "score",
	}
)

// ReferenceReader exposes the last observed reference price.
type ReferenceReader interface {
	Price() (float64, time.Time, bool)
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// CSVSink appends each event kind to its own CSV file. Headers are written
// when a file is created.
type CSVSink struct {
	mu    sync.Mutex
	ref   ReferenceReader
	files map[domain.EventKind]*csvFile
}

// NewCSVSink opens (creating if needed) the CSV files under dir. ref may be
// nil, in which case match rows carry no reference price.
func NewCSVSink(dir string, ref ReferenceReader) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("events/csv: create dir: %w", err)
	}

	s := &CSVSink{ref: ref, files: make(map[domain.EventKind]*csvFile)}
	layout := []struct {
		kind   domain.EventKind
		name   string
		header []string
	}{
		{domain.EventMatch, MatchesFile, matchesHeader},
		{domain.EventPriceSample, PricesFile, pricesHeader},
		{domain.EventArbitrageOpportunity, OpportunitiesFile, opportunitiesHeader},
	}
	for _, l := range layout {
		cf, err := openCSV(filepath.Join(dir, l.name), l.header)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.files[l.kind] = cf
	}
	return s, nil
}

func openCSV(path string, header []string) (*csvFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("events/csv: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("events/csv: stat %s: %w", path, err)
	}
	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := cf.write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("events/csv: write header %s: %w", path, err)
		}
	}
	return cf, nil
}

func (c *csvFile) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, e domain.Event) error {
	record, err := s.row(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cf, ok := s.files[e.Kind]
	if !ok {
		return fmt.Errorf("events/csv: no file for kind %s", e.Kind)
	}
	if err := cf.write(record); err != nil {
		return fmt.Errorf("events/csv: write %s: %w", e.Kind, err)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *CSVSink) row(e domain.Event) ([]string, error) {
	switch p := e.Payload.(type) {
	case domain.Match:
		refPrice, refSpread := "", ""
		if s.ref != nil {
			if ref, _, ok := s.ref.Price(); ok && ref > 0 {
				refPrice = ftoa(ref)
				refSpread = ftoa((p.Price - ref) / ref * 100)
			}
		}
		return []string{
			p.Timestamp.UTC().Format(csvTimeLayout),
			strconv.FormatInt(p.BuyID, 10),
			strconv.FormatInt(p.SellID, 10),
			ftoa(p.Quantity),
			ftoa(p.Price),
			ftoa(p.BuyPrice),
			ftoa(p.SellPrice),
			ftoa(p.Spread),
			ftoa(p.Notional),
			refPrice,
			refSpread,
		}, nil
	case domain.Quote:
		return []string{
			p.FetchedAt.UTC().Format(csvTimeLayout),
			ftoa(p.UnitPrice),
			ftoa(p.InputAmount),
			ftoa(p.OutputAmount),
			ftoa(p.ExecutionCostPct),
			strconv.Itoa(p.RouteCount),
		}, nil
	case domain.Opportunity:
		return []string{
			p.DetectedAt.UTC().Format(csvTimeLayout),
			strconv.FormatInt(p.OfferID, 10),
			string(p.Side),
			ftoa(p.OfferPrice),
			ftoa(p.ReferencePrice),
			ftoa(p.Quantity),
			ftoa(p.SpreadPct),
			ftoa(p.Score),
		}, nil
	}
	return nil, fmt.Errorf("events/csv: unsupported payload %T", e.Payload)
}

// Close flushes and closes every file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, cf := range s.files {
		cf.w.Flush()
		if err := cf.w.Error(); err != nil {
			errs = append(errs, err)
		}
		if err := cf.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = map[domain.EventKind]*csvFile{}
	return errors.Join(errs...)
}
