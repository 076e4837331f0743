// Package vybe talks to the Vybe Network Solana data platform.
// An API key is required; the free tier is heavily rate limited, so callers
// should keep cadences conservative.
package vybe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/providers"
	"trend-hunter/internal/resilience"
)

const (
	DefaultBaseURL = "https://api.vybenetwork.xyz"
	DefaultTimeout = 30 * time.Second

	// Holders above this share of supply count as whales.
	whaleThresholdPct = 5.0
)

// ErrNoAPIKey is returned when the client was built without credentials.
var ErrNoAPIKey = errors.New("vybe: api key not configured")

// Client is an HTTP client for the Vybe Network API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   resilience.RetryConfig
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// NewClient creates a new Vybe client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ providers.OnChainProvider = (*Client)(nil)

// Holder is one entry of the top-holders response.
type Holder struct {
	Address    string  `json:"address"`
	Percentage float64 `json:"percentage"`
}

type topHoldersResponse struct {
	Holders []Holder `json:"holders"`
}

// TopHolders returns the largest holders of a mint, biggest first.
func (c *Client) TopHolders(ctx context.Context, mint string) ([]Holder, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	url := fmt.Sprintf("%s/tokens/top-holders?mint=%s", c.baseURL, mint)

	var resp topHoldersResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch top holders: %w", err)
	}
	return resp.Holders, nil
}

// HolderStats returns holder concentration analytics for a mint.
func (c *Client) HolderStats(ctx context.Context, mint string) (*domain.OnChainStats, error) {
	holders, err := c.TopHolders(ctx, mint)
	if err != nil {
		return nil, err
	}

	stats := &domain.OnChainStats{
		HolderCount: len(holders),
	}
	if len(holders) > 0 {
		stats.TopHolderPct = holders[0].Percentage
	}
	for i, h := range holders {
		if i < 10 {
			stats.Top10Pct += h.Percentage
		}
		if h.Percentage > whaleThresholdPct {
			stats.WhaleCount++
		}
	}

	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return resilience.Permanent(fmt.Errorf("auth rejected (%d)", resp.StatusCode))
		case resp.StatusCode == http.StatusNotFound:
			return resilience.Permanent(fmt.Errorf("not found: %s", url))
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("rate limited (429)")
		default:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return resilience.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil
	})
}
