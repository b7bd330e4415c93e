package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultAggregatorURL = "https://quote-api.jup.ag/v6"
	SOLMint              = "So11111111111111111111111111111111111111112"
	USDCMint             = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// AggregatorConfig describes the pair quoted by an AggregatorClient.
type AggregatorConfig struct {
	BaseURL        string
	InputMint      string
	OutputMint     string
	InputDecimals  int32
	OutputDecimals int32
	SlippageBps    int
	Timeout        time.Duration
}

// AggregatorClient quotes swaps of the input token into the output token
// through a Jupiter-style quote API. The quoted unit price is the reference
// price for the pool.
type AggregatorClient struct {
	cfg        AggregatorConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewAggregatorClient creates a client. Empty fields default to a SOL/USDC
// quote against the public endpoint.
func NewAggregatorClient(cfg AggregatorConfig) *AggregatorClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAggregatorURL
	}
	if cfg.InputMint == "" {
		cfg.InputMint = SOLMint
	}
	if cfg.OutputMint == "" {
		cfg.OutputMint = USDCMint
	}
	if cfg.InputDecimals == 0 {
		cfg.InputDecimals = 9
	}
	if cfg.OutputDecimals == 0 {
		cfg.OutputDecimals = 6
	}
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &AggregatorClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
}

// quoteResponse is the subset of the quote API response the pool uses.
// Amounts are integer strings in the tokens' smallest units.
type quoteResponse struct {
	InAmount       string            `json:"inAmount"`
	OutAmount      string            `json:"outAmount"`
	PriceImpactPct string            `json:"priceImpactPct"`
	RoutePlan      []json.RawMessage `json:"routePlan"`
}

// Quote asks for the output received for size input tokens. The unit price
// is output/size and ExecutionCostPct carries the API's price impact.
func (c *AggregatorClient) Quote(ctx context.Context, size float64) (domain.Quote, error) {
	if !(size > 0) {
		return domain.Quote{}, fmt.Errorf("pricing/aggregator: quote: %w: size must be positive", domain.ErrInvalidOrder)
	}

	in := decimal.NewFromFloat(size).Shift(c.cfg.InputDecimals).Truncate(0)
	if !in.IsPositive() {
		return domain.Quote{}, fmt.Errorf("pricing/aggregator: quote: %w: size below one base unit", domain.ErrInvalidOrder)
	}

	params := url.Values{}
	params.Set("inputMint", c.cfg.InputMint)
	params.Set("outputMint", c.cfg.OutputMint)
	params.Set("amount", in.String())
	params.Set("slippageBps", strconv.Itoa(c.cfg.SlippageBps))

	body, err := doGet(ctx, c.httpClient, c.cfg.BaseURL+"/quote?"+params.Encode())
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pricing/aggregator: quote: %w", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("pricing/aggregator: decode quote: %w: %v", domain.ErrSourceUnavailable, err)
	}

	out, err := decimal.NewFromString(resp.OutAmount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pricing/aggregator: parse outAmount %q: %w", resp.OutAmount, domain.ErrSourceUnavailable)
	}
	inputAmount := in.Shift(-c.cfg.InputDecimals)
	outputAmount := out.Shift(-c.cfg.OutputDecimals)
	unitPrice := outputAmount.Div(inputAmount)

	var impact float64
	if resp.PriceImpactPct != "" {
		d, err := decimal.NewFromString(resp.PriceImpactPct)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("pricing/aggregator: parse priceImpactPct %q: %w", resp.PriceImpactPct, domain.ErrSourceUnavailable)
		}
		impact = d.InexactFloat64()
	}

	return domain.Quote{
		UnitPrice:        unitPrice.InexactFloat64(),
		InputAmount:      inputAmount.InexactFloat64(),
		OutputAmount:     outputAmount.InexactFloat64(),
		ExecutionCostPct: impact,
		RouteCount:       len(resp.RoutePlan),
		FetchedAt:        c.now(),
	}, nil
}
