// Package main provides the long-running trend hunter service:
// - Discovery (scheduled): pump.fun launches, RugCheck trending, Fear & Greed, market movers
// - Streaming: whale transfer feed over WebSocket
// - Scoring: token scans for every discovery carrying a mint
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"trend-hunter/internal/aggregator"
	"trend-hunter/internal/domain"
	"trend-hunter/internal/observability"
	"trend-hunter/internal/providers/feargreed"
	"trend-hunter/internal/providers/market"
	"trend-hunter/internal/providers/pumpfun"
	"trend-hunter/internal/providers/rugcheck"
	"trend-hunter/internal/providers/vybe"
	"trend-hunter/internal/scoring"
	"trend-hunter/internal/sources"
	"trend-hunter/internal/storage"
	chstore "trend-hunter/internal/storage/clickhouse"
	"trend-hunter/internal/storage/memory"
	"trend-hunter/internal/storage/migrations"
	pgstore "trend-hunter/internal/storage/postgres"
)

// Server holds all components of the hunter service.
type Server struct {
	hunter *aggregator.Hunter
	logger *log.Logger

	mu          sync.Mutex
	started     time.Time
	lastBatch   time.Time
	batches     int
	discoveries int
	signals     int
	analyses    int
}

// allStores holds the storage implementations in use.
type allStores struct {
	discoveryStore storage.DiscoveryStore
	analysisStore  storage.AnalysisStore
	signalStore    storage.SignalHistoryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	whaleEndpoint := flag.String("whale-ws-endpoint", os.Getenv("WHALE_WS_ENDPOINT"), "Whale feed WebSocket endpoint (optional)")
	vybeAPIKey := flag.String("vybe-api-key", os.Getenv("VYBE_API_KEY"), "Vybe Network API key (optional)")
	cmcAPIKey := flag.String("cmc-api-key", os.Getenv("CMC_API_KEY"), "CoinMarketCap API key (optional)")
	launchInterval := flag.Duration("launch-interval", 5*time.Minute, "pump.fun launch hunt interval")
	trendingInterval := flag.Duration("trending-interval", 15*time.Minute, "RugCheck trending hunt interval")
	sentimentInterval := flag.Duration("sentiment-interval", 1*time.Hour, "Fear & Greed hunt interval")
	moversInterval := flag.Duration("movers-interval", 30*time.Minute, "Market movers hunt interval")
	whaleInterval := flag.Duration("whale-interval", 1*time.Minute, "Whale feed drain interval")
	dedupTTL := flag.Duration("dedup-ttl", 24*time.Hour, "Deduplication TTL")
	sweepInterval := flag.Duration("sweep-interval", 10*time.Minute, "Dedup cache sweep interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[hunter] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	metrics := observability.NewMetrics("")

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, metrics)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	engine, err := createEngine(*vybeAPIKey, *cmcAPIKey, logger)
	if err != nil {
		logger.Fatalf("Failed to create scoring engine: %v", err)
	}

	server := &Server{logger: logger}
	hunter := aggregator.New(aggregator.Options{
		DedupTTL:           *dedupTTL,
		SweepInterval:      *sweepInterval,
		Engine:             engine,
		DiscoveryStore:     stores.discoveryStore,
		AnalysisStore:      stores.analysisStore,
		SignalHistoryStore: stores.signalStore,
		OnDiscoveries:      server.onDiscoveries,
		OnSignals:          server.onSignals,
		OnAnalyses:         server.onAnalyses,
		Metrics:            metrics,
		Logger:             logger,
	})
	server.hunter = hunter

	if err := registerSources(hunter, sourceConfig{
		whaleEndpoint:     *whaleEndpoint,
		vybeAPIKey:        *vybeAPIKey,
		cmcAPIKey:         *cmcAPIKey,
		launchInterval:    *launchInterval,
		trendingInterval:  *trendingInterval,
		sentimentInterval: *sentimentInterval,
		moversInterval:    *moversInterval,
		whaleInterval:     *whaleInterval,
	}); err != nil {
		logger.Fatalf("Failed to register sources: %v", err)
	}
	logger.Printf("Registered sources: %v", hunter.SourceIDs())

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	server.mu.Lock()
	server.started = time.Now()
	server.mu.Unlock()

	hunter.Start(ctx)
	logger.Println("Hunter running")

	// Seed the pipeline immediately instead of waiting for the first tick.
	if _, err := hunter.HuntNow(ctx); err != nil {
		logger.Printf("Initial hunt: %v", err)
	}

	<-ctx.Done()
	hunter.Stop()
	close(done)
	logger.Println("Shutdown complete")
}

// sourceConfig bundles the per-source wiring inputs.
type sourceConfig struct {
	whaleEndpoint     string
	vybeAPIKey        string
	cmcAPIKey         string
	launchInterval    time.Duration
	trendingInterval  time.Duration
	sentimentInterval time.Duration
	moversInterval    time.Duration
	whaleInterval     time.Duration
}

// registerSources wires every discovery source into the hunter. Sources
// needing credentials or endpoints are skipped when those are absent.
func registerSources(hunter *aggregator.Hunter, cfg sourceConfig) error {
	srcLogger := log.New(os.Stdout, "[sources] ", log.LstdFlags)

	if err := hunter.RegisterSource(sources.NewLaunchSource(sources.LaunchOptions{
		Client: pumpfun.NewClient(),
		Logger: srcLogger,
	}), cfg.launchInterval); err != nil {
		return err
	}

	if err := hunter.RegisterSource(sources.NewTrendingSource(sources.TrendingOptions{
		Client: rugcheck.NewClient(),
		Logger: srcLogger,
	}), cfg.trendingInterval); err != nil {
		return err
	}

	if err := hunter.RegisterSource(sources.NewSentimentSource(sources.SentimentOptions{
		Client: feargreed.NewClient(),
		Logger: srcLogger,
	}), cfg.sentimentInterval); err != nil {
		return err
	}

	if err := hunter.RegisterSource(sources.NewMoversSource(sources.MoversOptions{
		Client: market.NewClient(cfg.cmcAPIKey),
		Logger: srcLogger,
	}), cfg.moversInterval); err != nil {
		return err
	}

	if cfg.whaleEndpoint != "" {
		if err := hunter.RegisterSource(sources.NewWhaleFeedSource(sources.WhaleFeedOptions{
			Endpoint: cfg.whaleEndpoint,
			Logger:   srcLogger,
		}), cfg.whaleInterval); err != nil {
			return err
		}
	}

	return nil
}

// createEngine wires the evidence providers into a scoring engine.
// The on-chain provider needs a Vybe API key; without one that evidence
// category is simply always absent.
func createEngine(vybeAPIKey, cmcAPIKey string, logger *log.Logger) (*scoring.Engine, error) {
	opts := scoring.Options{
		Safety: rugcheck.NewClient(),
		Launch: pumpfun.NewClient(),
		Market: market.NewClient(cmcAPIKey),
		Logger: logger,
	}
	if vybeAPIKey != "" {
		opts.OnChain = vybe.NewClient(vybeAPIKey)
	}
	return scoring.New(opts)
}

// createStores creates the storage layer.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, metrics *observability.Metrics) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			discoveryStore: memory.NewDiscoveryStore(),
			analysisStore:  memory.NewAnalysisStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		discoveryStore: pgstore.NewDiscoveryStore(pool).WithMetrics(metrics),
		analysisStore:  pgstore.NewAnalysisStore(pool).WithMetrics(metrics),
		signalStore:    chstore.NewSignalHistoryStore(chConn).WithMetrics(metrics),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// onDiscoveries tracks batch stats for /status.
func (s *Server) onDiscoveries(_ context.Context, discoveries []domain.Discovery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	s.discoveries += len(discoveries)
	s.lastBatch = time.Now()
}

// onSignals logs actionable signals as they arrive.
func (s *Server) onSignals(_ context.Context, signals []domain.Signal) {
	s.mu.Lock()
	s.signals += len(signals)
	s.mu.Unlock()

	for _, sig := range signals {
		if sig.Urgency.Rank() >= domain.UrgencyToday.Rank() && sig.Action != domain.ActionIgnore {
			s.logger.Printf("signal %s/%s (%.0f%%, %s): %s",
				sig.Type, sig.Action, sig.Confidence, sig.Urgency, sig.Reasoning)
		}
	}
}

// onAnalyses logs scored tokens.
func (s *Server) onAnalyses(_ context.Context, analyses []*domain.TokenAnalysis) {
	s.mu.Lock()
	s.analyses += len(analyses)
	s.mu.Unlock()

	for _, a := range analyses {
		s.logger.Printf("scanned %s (%s): overall %.1f -> %s (confidence %.2f)",
			a.Mint, a.Symbol, a.Scores.Overall, a.Recommendation, a.Confidence)
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Sources     []string  `json:"sources"`
	Batches     int       `json:"batches"`
	Discoveries int       `json:"discoveries"`
	Signals     int       `json:"signals"`
	Analyses    int       `json:"analyses"`
	LastBatch   time.Time `json:"last_batch,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Sources:     s.hunter.SourceIDs(),
		Batches:     s.batches,
		Discoveries: s.discoveries,
		Signals:     s.signals,
		Analyses:    s.analyses,
		LastBatch:   s.lastBatch,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
