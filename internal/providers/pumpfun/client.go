// Package pumpfun talks to the pump.fun frontend API for memecoin launches.
// The API is free and requires no authentication.
package pumpfun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/providers"
	"trend-hunter/internal/resilience"
)

const (
	DefaultBaseURL = "https://frontend-api.pump.fun"
	DefaultTimeout = 30 * time.Second

	// The bonding curve completes at roughly 85 SOL of virtual reserves.
	curveTargetSOL = 85.0
	lamportsPerSOL = 1e9
)

// Client is an HTTP client for the pump.fun frontend API.
type Client struct {
	baseURL string
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

// NewClient creates a new pump.fun client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ providers.LaunchProvider = (*Client)(nil)

// Coin is the raw coin record returned by the frontend API.
type Coin struct {
	Mint               string  `json:"mint"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	Creator            string  `json:"creator"`
	USDMarketCap       float64 `json:"usd_market_cap"`
	MarketCap          float64 `json:"market_cap"`
	VirtualSolReserves float64 `json:"virtual_sol_reserves"`
	Complete           bool    `json:"complete"`
	RaydiumPool        string  `json:"raydium_pool"`
	CreatedTimestamp   int64   `json:"created_timestamp"` // Unix ms
	Twitter            string  `json:"twitter"`
	Telegram           string  `json:"telegram"`
	Website            string  `json:"website"`
}

// CurveProgress returns the bonding curve completion percentage.
func (c *Coin) CurveProgress() float64 {
	if c.Complete {
		return 100.0
	}
	virtualSOL := c.VirtualSolReserves / lamportsPerSOL
	progress := virtualSOL / curveTargetSOL * 100
	if progress > 100 {
		progress = 100
	}
	return progress
}

// LaunchInfo returns launch metadata for a mint.
func (c *Client) LaunchInfo(ctx context.Context, mint string) (*domain.LaunchInfo, error) {
	var coin Coin
	if err := c.getJSON(ctx, fmt.Sprintf("%s/coins/%s", c.baseURL, mint), &coin); err != nil {
		return nil, fmt.Errorf("fetch coin details: %w", err)
	}

	return coinToLaunchInfo(&coin), nil
}

// NewCoins returns the latest launches, newest first.
func (c *Client) NewCoins(ctx context.Context, limit int) ([]Coin, error) {
	url := fmt.Sprintf("%s/coins?offset=0&limit=%d&sort=created_timestamp&order=DESC&includeNsfw=false",
		c.baseURL, limit)

	var coins []Coin
	if err := c.getJSON(ctx, url, &coins); err != nil {
		return nil, fmt.Errorf("fetch new coins: %w", err)
	}
	return coins, nil
}

// KingOfTheHill returns the coin currently holding the spotlight slot.
func (c *Client) KingOfTheHill(ctx context.Context) (*Coin, error) {
	var coin Coin
	if err := c.getJSON(ctx, c.baseURL+"/coins/king-of-the-hill", &coin); err != nil {
		return nil, fmt.Errorf("fetch king of the hill: %w", err)
	}
	return &coin, nil
}

func coinToLaunchInfo(coin *Coin) *domain.LaunchInfo {
	mcap := coin.USDMarketCap
	if mcap == 0 {
		mcap = coin.MarketCap
	}

	return &domain.LaunchInfo{
		Name:          coin.Name,
		Symbol:        coin.Symbol,
		USDMarketCap:  mcap,
		CurveProgress: coin.CurveProgress(),
		Graduated:     coin.Complete,
		CreatedAt:     coin.CreatedTimestamp,
		Twitter:       coin.Twitter,
		Telegram:      coin.Telegram,
		Website:       coin.Website,
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

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
