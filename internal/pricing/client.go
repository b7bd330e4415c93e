// Package pricing implements the external reference price and market data
// sources: a swap aggregator quote client and a market data client.
package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/efreitasn/otcpool/internal/domain"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 256

// doGet issues a GET and returns the body of a 2xx response. Transport and
// status failures wrap domain.ErrSourceUnavailable.
func doGet(ctx context.Context, c *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrSourceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, body)
	}
	return body, nil
}
