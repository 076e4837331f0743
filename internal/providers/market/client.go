// Package market talks to the CoinMarketCap Pro API for quotes and listings.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/providers"
	"trend-hunter/internal/resilience"
)

const (
	DefaultBaseURL = "https://pro-api.coinmarketcap.com/v1"
	DefaultTimeout = 30 * time.Second
)

// Client is an HTTP client for the CoinMarketCap API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   resilience.RetryConfig
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
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

// NewClient creates a new CoinMarketCap client.
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
var _ providers.MarketProvider = (*Client)(nil)

// Listing is one coin entry in the listings response.
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Quote  struct {
		USD usdQuote `json:"USD"`
	} `json:"quote"`
}

type usdQuote struct {
	Price            float64 `json:"price"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
}

type quotesResponse struct {
	Data map[string]struct {
		Symbol string `json:"symbol"`
		Quote  struct {
			USD usdQuote `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

type listingsResponse struct {
	Data []Listing `json:"data"`
}

// Quote returns the current USD quote for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.MarketQuote, error) {
	symbol = strings.ToUpper(symbol)
	u := fmt.Sprintf("%s/cryptocurrency/quotes/latest?symbol=%s&convert=USD",
		c.baseURL, url.QueryEscape(symbol))

	var resp quotesResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}

	entry, ok := resp.Data[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not in response", symbol)
	}

	q := entry.Quote.USD
	return &domain.MarketQuote{
		Price:     q.Price,
		Change1h:  q.PercentChange1h,
		Change24h: q.PercentChange24h,
		MarketCap: q.MarketCap,
		Volume24h: q.Volume24h,
	}, nil
}

// Listings returns the top coins by market cap.
func (c *Client) Listings(ctx context.Context, limit int) ([]Listing, error) {
	u := fmt.Sprintf("%s/cryptocurrency/listings/latest?start=1&limit=%d&convert=USD&sort=market_cap",
		c.baseURL, limit)

	var resp listingsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	return resp.Data, nil
}

// Mover is a listing annotated with its 24h change for gainer/loser ranking.
type Mover struct {
	Symbol    string
	Name      string
	Price     float64
	Change24h float64
	MarketCap float64
	Volume24h float64
}

// TopMovers ranks listings by 24h change and returns the biggest gainers and
// losers. The trending endpoint needs a paid plan, so movers are derived from
// the plain listings feed.
func (c *Client) TopMovers(ctx context.Context, limit int) (gainers, losers []Mover, err error) {
	listings, err := c.Listings(ctx, 200)
	if err != nil {
		return nil, nil, err
	}

	movers := make([]Mover, len(listings))
	for i, l := range listings {
		movers[i] = Mover{
			Symbol:    l.Symbol,
			Name:      l.Name,
			Price:     l.Quote.USD.Price,
			Change24h: l.Quote.USD.PercentChange24h,
			MarketCap: l.Quote.USD.MarketCap,
			Volume24h: l.Quote.USD.Volume24h,
		}
	}

	sort.Slice(movers, func(i, j int) bool {
		return movers[i].Change24h > movers[j].Change24h
	})

	if limit > len(movers) {
		limit = len(movers)
	}
	gainers = movers[:limit]

	losers = make([]Mover, 0, limit)
	for i := len(movers) - 1; i >= len(movers)-limit; i-- {
		losers = append(losers, movers[i])
	}

	return gainers, losers, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
		}

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
