// Package main provides a one-shot token scanner: gathers evidence for the
// given mints, scores them, and prints the analyses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/providers/market"
	"trend-hunter/internal/providers/pumpfun"
	"trend-hunter/internal/providers/rugcheck"
	"trend-hunter/internal/providers/vybe"
	"trend-hunter/internal/scoring"
	"trend-hunter/internal/storage/migrations"
	pgstore "trend-hunter/internal/storage/postgres"
)

func main() {
	// Parse flags
	mints := flag.String("mints", "", "Comma-separated token mints to scan (required)")
	vybeAPIKey := flag.String("vybe-api-key", os.Getenv("VYBE_API_KEY"), "Vybe Network API key (optional)")
	cmcAPIKey := flag.String("cmc-api-key", os.Getenv("CMC_API_KEY"), "CoinMarketCap API key (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (optional, persists analyses)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Scan timeout")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup structured logger
	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	// Validate required flags
	mintList := splitMints(*mints)
	if len(mintList) == 0 {
		logger.Fatal("--mints is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create scoring engine
	opts := scoring.Options{
		Safety: rugcheck.NewClient(),
		Launch: pumpfun.NewClient(),
		Market: market.NewClient(*cmcAPIKey),
		Logger: logger,
	}
	if *vybeAPIKey != "" {
		opts.OnChain = vybe.NewClient(*vybeAPIKey)
	}
	engine, err := scoring.New(opts)
	if err != nil {
		logger.Fatalf("create scoring engine: %v", err)
	}

	// Scan
	analyses, err := engine.ScanBatch(ctx, mintList)
	if err != nil {
		logger.Fatalf("scan: %v", err)
	}

	// Persist when a DSN is given
	if *postgresDSN != "" {
		if err := persistAnalyses(ctx, *postgresDSN, analyses); err != nil {
			logger.Printf("persist analyses: %v", err)
		}
	}

	// Output
	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analyses); err != nil {
			logger.Fatalf("encode: %v", err)
		}
		return
	}
	for _, a := range analyses {
		printAnalysis(a)
	}
}

// splitMints parses the comma-separated mint list.
func splitMints(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// persistAnalyses stores the scan results in PostgreSQL.
func persistAnalyses(ctx context.Context, dsn string, analyses []*domain.TokenAnalysis) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := pgstore.NewAnalysisStore(pool)
	for _, a := range analyses {
		if err := store.Insert(ctx, a); err != nil {
			return fmt.Errorf("insert %s: %w", a.Mint, err)
		}
	}
	return nil
}

// printAnalysis writes a human-readable analysis summary.
func printAnalysis(a *domain.TokenAnalysis) {
	name := a.Mint
	if a.Symbol != "" {
		name = fmt.Sprintf("%s (%s)", a.Symbol, a.Mint)
	}
	fmt.Printf("=== %s ===\n", name)
	fmt.Printf("  overall:        %.1f -> %s\n", a.Scores.Overall, a.Recommendation)
	fmt.Printf("  safety:         %.1f\n", a.Scores.Safety)
	fmt.Printf("  fundamentals:   %.1f\n", a.Scores.Fundamentals)
	fmt.Printf("  momentum:       %.1f\n", a.Scores.Momentum)
	fmt.Printf("  on-chain:       %.1f\n", a.Scores.OnChain)
	fmt.Printf("  sentiment:      %.1f\n", a.Scores.Sentiment)
	fmt.Printf("  confidence:     %.2f\n", a.Confidence)
	if len(a.Risks) > 0 {
		fmt.Println("  risks:")
		for _, r := range a.Risks {
			fmt.Printf("    - %s\n", r)
		}
	}
	fmt.Println()
}
