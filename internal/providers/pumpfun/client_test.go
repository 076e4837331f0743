package pumpfun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trend-hunter/internal/resilience"
)

func testRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxRetries:  1,
		RetryDelay:  time.Millisecond,
		MaxDelay:    time.Millisecond,
		BackoffMult: 2.0,
	}
}

func TestLaunchInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/mint1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{
			"mint": "mint1",
			"name": "Test Coin",
			"symbol": "TEST",
			"usd_market_cap": 54000,
			"virtual_sol_reserves": 42500000000,
			"complete": false,
			"created_timestamp": 1700000000000,
			"twitter": "https://x.com/testcoin",
			"telegram": "",
			"website": "https://test.coin"
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryConfig(testRetryConfig()))

	info, err := client.LaunchInfo(context.Background(), "mint1")
	if err != nil {
		t.Fatalf("LaunchInfo failed: %v", err)
	}

	if info.Name != "Test Coin" || info.Symbol != "TEST" {
		t.Errorf("name/symbol = %s/%s", info.Name, info.Symbol)
	}
	if info.USDMarketCap != 54000 {
		t.Errorf("USDMarketCap = %v, want 54000", info.USDMarketCap)
	}
	// 42.5 SOL of 85 SOL target
	if info.CurveProgress != 50 {
		t.Errorf("CurveProgress = %v, want 50", info.CurveProgress)
	}
	if info.Graduated {
		t.Error("Graduated should be false")
	}
	if info.SocialChannels() != 2 {
		t.Errorf("SocialChannels = %d, want 2", info.SocialChannels())
	}
}

func TestCurveProgress_Graduated(t *testing.T) {
	coin := Coin{Complete: true, VirtualSolReserves: 0}
	if got := coin.CurveProgress(); got != 100 {
		t.Errorf("CurveProgress = %v, want 100", got)
	}
}

func TestCurveProgress_Capped(t *testing.T) {
	coin := Coin{VirtualSolReserves: 200 * lamportsPerSOL}
	if got := coin.CurveProgress(); got != 100 {
		t.Errorf("CurveProgress = %v, want 100", got)
	}
}

func TestNewCoins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("sort") != "created_timestamp" {
			t.Errorf("unexpected sort param: %s", r.URL.Query().Get("sort"))
		}
		w.Write([]byte(`[
			{"mint": "m1", "name": "A", "symbol": "A", "created_timestamp": 3000},
			{"mint": "m2", "name": "B", "symbol": "B", "created_timestamp": 2000}
		]`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryConfig(testRetryConfig()))

	coins, err := client.NewCoins(context.Background(), 50)
	if err != nil {
		t.Fatalf("NewCoins failed: %v", err)
	}
	if len(coins) != 2 {
		t.Fatalf("len = %d, want 2", len(coins))
	}
	if coins[0].Mint != "m1" {
		t.Errorf("first mint = %s, want m1", coins[0].Mint)
	}
}

func TestLaunchInfo_FallsBackToSolMarketCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mint": "m1", "market_cap": 12345, "usd_market_cap": 0}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRetryConfig(testRetryConfig()))

	info, err := client.LaunchInfo(context.Background(), "m1")
	if err != nil {
		t.Fatalf("LaunchInfo failed: %v", err)
	}
	if info.USDMarketCap != 12345 {
		t.Errorf("USDMarketCap = %v, want 12345", info.USDMarketCap)
	}
}
