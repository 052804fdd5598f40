package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fundimport/internal/config"
)

// Client fetches listing pages and binary assets with a descriptive
// user-agent, a Dutch language preference, and bounded retry on transient
// failures.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.RateLimitRPS),
	}
}

// SetHTTPClient swaps the underlying HTTP client, for tests.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.httpClient = h
}

// GetPage fetches a listing page.
func (c *Client) GetPage(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, "text/html,application/xhtml+xml")
}

// Download fetches a binary asset (brochure, drawing).
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, "*/*")
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	attempts := c.cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(c.cfg.BackoffMs) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
		}
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", accept)
		req.Header.Set("Accept-Language", "nl-NL,nl;q=0.9")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("request failed with status %d", resp.StatusCode)
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				continue
			}
			return nil, lastErr
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
