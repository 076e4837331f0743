// Package rugcheck talks to the RugCheck token safety scanner.
// The API is free and requires no authentication.
package rugcheck

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
	DefaultBaseURL = "https://api.rugcheck.xyz/v1"
	DefaultTimeout = 30 * time.Second
)

// Client is an HTTP client for the RugCheck API.
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

// NewClient creates a new RugCheck client.
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
var _ providers.SafetyProvider = (*Client)(nil)

// reportSummary is the raw /tokens/{mint}/report/summary response.
type reportSummary struct {
	Score  float64 `json:"score_normalised"`
	Rugged bool    `json:"rugged"`
	Risks  []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Level       string `json:"level"`
	} `json:"risks"`
}

// tokenReport is the raw /tokens/{mint}/report response.
type tokenReport struct {
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	Markets         []struct {
		LP struct {
			LPLockedPct float64 `json:"lpLockedPct"`
		} `json:"lp"`
	} `json:"markets"`
	TopHolders []struct {
		Pct float64 `json:"pct"`
	} `json:"topHolders"`
}

// TokenReport returns the safety report for a mint.
func (c *Client) TokenReport(ctx context.Context, mint string) (*domain.SafetyReport, error) {
	var summary reportSummary
	if err := c.getJSON(ctx, fmt.Sprintf("%s/tokens/%s/report/summary", c.baseURL, mint), &summary); err != nil {
		return nil, fmt.Errorf("fetch report summary: %w", err)
	}

	report := &domain.SafetyReport{
		Score:  summary.Score,
		Rugged: summary.Rugged,
	}
	for _, r := range summary.Risks {
		report.Risks = append(report.Risks, r.Name)
	}

	// The full report carries authority and holder detail; a failure here
	// still leaves a usable summary.
	var full tokenReport
	if err := c.getJSON(ctx, fmt.Sprintf("%s/tokens/%s/report", c.baseURL, mint), &full); err == nil {
		report.MintAuthority = full.MintAuthority != nil && *full.MintAuthority != ""
		report.FreezeAuthority = full.FreezeAuthority != nil && *full.FreezeAuthority != ""
		if len(full.Markets) > 0 {
			report.LPLockedPct = full.Markets[0].LP.LPLockedPct
		}
		if len(full.TopHolders) > 0 {
			report.TopHolderPct = full.TopHolders[0].Pct
		}
	}

	return report, nil
}

// trendingToken is one entry of the /stats/trending response.
type trendingToken struct {
	Mint     string `json:"mint"`
	VoteUp   int    `json:"up_count"`
	VoteDown int    `json:"down_count"`
}

// TrendingToken is a token currently trending on the scanner.
type TrendingToken struct {
	Mint     string
	VoteUp   int
	VoteDown int
}

// Trending returns the tokens currently trending on RugCheck.
func (c *Client) Trending(ctx context.Context) ([]TrendingToken, error) {
	var raw []trendingToken
	if err := c.getJSON(ctx, c.baseURL+"/stats/trending", &raw); err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	tokens := make([]TrendingToken, len(raw))
	for i, t := range raw {
		tokens[i] = TrendingToken{Mint: t.Mint, VoteUp: t.VoteUp, VoteDown: t.VoteDown}
	}
	return tokens, nil
}

// SafetyLabel maps a report to the scanner's human-readable verdict.
func SafetyLabel(r *domain.SafetyReport) string {
	switch {
	case r.Rugged:
		return "RUGGED"
	case r.Score >= 80:
		return "SAFE"
	case r.Score >= 50:
		return "MODERATE RISK"
	case r.Score >= 30:
		return "HIGH RISK"
	default:
		return "DANGER"
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
