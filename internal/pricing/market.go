package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
)

const (
	DefaultMarketDataURL = "https://api.coingecko.com/api/v3"
	DefaultMarketAssetID = "solana"
)

// MarketDataClient fetches market snapshots from a CoinGecko-style
// /coins/markets endpoint.
type MarketDataClient struct {
	baseURL    string
	assetID    string
	httpClient *http.Client
	now        func() time.Time
}

// NewMarketDataClient creates a client for assetID.
func NewMarketDataClient(baseURL, assetID string, timeout time.Duration) *MarketDataClient {
	if baseURL == "" {
		baseURL = DefaultMarketDataURL
	}
	if assetID == "" {
		assetID = DefaultMarketAssetID
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketDataClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		assetID:    assetID,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

type apiMarket struct {
	ID            string  `json:"id"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	TotalVolume   float64 `json:"total_volume"`
	Change1h      float64 `json:"price_change_percentage_1h_in_currency"`
	Change24h     float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d      float64 `json:"price_change_percentage_7d_in_currency"`
}

// Snapshot returns the current market view of the configured asset.
func (c *MarketDataClient) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", c.assetID)
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "1h,24h,7d")

	body, err := doGet(ctx, c.httpClient, c.baseURL+"/coins/markets?"+params.Encode())
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("pricing/market: get markets: %w", err)
	}

	var markets []apiMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("pricing/market: decode markets: %w: %v", domain.ErrSourceUnavailable, err)
	}
	for _, m := range markets {
		if m.ID != c.assetID {
			continue
		}
		return domain.MarketSnapshot{
			AssetID:      m.ID,
			Price:        m.CurrentPrice,
			MarketCap:    m.MarketCap,
			Volume24h:    m.TotalVolume,
			Change1hPct:  m.Change1h,
			Change24hPct: m.Change24h,
			Change7dPct:  m.Change7d,
			Rank:         m.MarketCapRank,
			FetchedAt:    c.now(),
		}, nil
	}
	return domain.MarketSnapshot{}, fmt.Errorf("pricing/market: %w: asset %s not in response", domain.ErrSourceUnavailable, c.assetID)
}
