// Package feargreed reads the crypto Fear & Greed index.
// The API is free and requires no authentication.
package feargreed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"trend-hunter/internal/resilience"
)

const (
	DefaultBaseURL = "https://api.alternative.me/fng/"
	DefaultTimeout = 30 * time.Second
)

// Reading is one index sample.
type Reading struct {
	Value          int    // 0 (extreme fear) to 100 (extreme greed)
	Classification string // e.g. "Extreme Fear", "Greed"
	Timestamp      int64  // Unix seconds
}

// Client is an HTTP client for the Fear & Greed index API.
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

// NewClient creates a new Fear & Greed client.
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

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// Latest returns the most recent index reading.
func (c *Client) Latest(ctx context.Context) (*Reading, error) {
	var resp fngResponse
	err := resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		httpResp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, &resp); err != nil {
			return resilience.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch fear & greed index: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("fear & greed response has no data")
	}

	d := resp.Data[0]
	value, err := strconv.Atoi(d.Value)
	if err != nil {
		return nil, fmt.Errorf("parse index value %q: %w", d.Value, err)
	}
	ts, err := strconv.ParseInt(d.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse index timestamp %q: %w", d.Timestamp, err)
	}

	return &Reading{
		Value:          value,
		Classification: d.Classification,
		Timestamp:      ts,
	}, nil
}
