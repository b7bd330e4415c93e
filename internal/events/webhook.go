package events

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/otcpool/internal/domain"
)

// DefaultWebhookTimeout bounds one delivery.
const DefaultWebhookTimeout = 5 * time.Second

// WebhookSink POSTs each event envelope to a subscriber URL.
type WebhookSink struct {
	url    string
	kinds  map[domain.EventKind]bool
	client *http.Client
}

// NewWebhookSink validates rawURL and creates a sink delivering the given
// event kinds. No kinds means every kind.
func NewWebhookSink(rawURL string, kinds []domain.EventKind, timeout time.Duration) (*WebhookSink, error) {
	if len(rawURL) > 2048 {
		return nil, fmt.Errorf("webhook: url must be at most 2048 characters")
	}
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return nil, fmt.Errorf("webhook: url must be a valid absolute http(s) URL: %q", rawURL)
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}

	var filter map[domain.EventKind]bool
	if len(kinds) > 0 {
		filter = make(map[domain.EventKind]bool, len(kinds))
		for _, k := range kinds {
			filter[k] = true
		}
	}
	return &WebhookSink{
		url:    rawURL,
		kinds:  filter,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *WebhookSink) Name() string { return "webhook" }

// Write delivers e and treats any non-2xx response as a failure.
func (s *WebhookSink) Write(ctx context.Context, e domain.Event) error {
	if s.kinds != nil && !s.kinds[e.Kind] {
		return nil
	}
	body, err := Encode(e)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Event-Id", e.ID)
	req.Header.Set("X-Event-Type", string(e.Kind))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver %s: %w", e.Kind, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: deliver %s: status %d", e.Kind, resp.StatusCode)
	}
	return nil
}
