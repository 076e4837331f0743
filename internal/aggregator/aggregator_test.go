package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/providers/stub"
	"trend-hunter/internal/scheduler"
	"trend-hunter/internal/scoring"
	"trend-hunter/internal/source"
	"trend-hunter/internal/storage"
	"trend-hunter/internal/storage/memory"
)

const wsolMint = "So11111111111111111111111111111111111111112"

// fakeSource replays fixed raw records. Records that are *domain.Discovery
// transform to a copy of themselves; anything else is malformed.
type fakeSource struct {
	id      string
	records []source.RawRecord
	huntErr error
	hunts   atomic.Int64
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) Hunt(_ context.Context) ([]source.RawRecord, error) {
	f.hunts.Add(1)
	if f.huntErr != nil {
		return nil, f.huntErr
	}
	return f.records, nil
}

func (f *fakeSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	proto, ok := raw.(*domain.Discovery)
	if !ok {
		return nil, source.ErrMalformedRecord
	}
	cp := *proto
	return &cp, nil
}

// streamSource is a fakeSource with a lifecycle.
type streamSource struct {
	fakeSource
	started atomic.Int64
	closed  atomic.Int64
}

func (s *streamSource) Start(_ context.Context) error {
	s.started.Add(1)
	return nil
}

func (s *streamSource) Close() error {
	s.closed.Add(1)
	return nil
}

// fakeNow is an adjustable time source.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// fakeTicker and fakeClock drive the scheduler manually.
type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *fakeClock) Now() time.Time { return time.Unix(1704067200, 0) }

func (f *fakeClock) NewTicker(_ time.Duration) scheduler.Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *fakeClock) tickAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickers {
		select {
		case t.ch <- time.Now():
		default:
		}
	}
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestHunter(opts Options) *Hunter {
	if opts.Logger == nil {
		opts.Logger = discard()
	}
	return New(opts)
}

func discoveryProto(sourceID, fingerprint string) *domain.Discovery {
	return &domain.Discovery{
		Fingerprint: fingerprint,
		Source:      sourceID,
		SourceID:    fingerprint,
		Title:       "item " + fingerprint,
		Category:    domain.CategoryNews,
		Metrics:     map[string]float64{},
		RawMetadata: map[string]string{},
	}
}

func mustRegister(t *testing.T, h *Hunter, src source.Source) {
	t.Helper()
	if err := h.RegisterSource(src, time.Minute); err != nil {
		t.Fatalf("RegisterSource(%s) failed: %v", src.ID(), err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHunter_HuntNowUnknownSource(t *testing.T) {
	h := newTestHunter(Options{})

	_, err := h.HuntNow(context.Background(), "nope")
	if !errors.Is(err, source.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestHunter_RegisterDuplicate(t *testing.T) {
	h := newTestHunter(Options{})
	mustRegister(t, h, &fakeSource{id: "a"})

	err := h.RegisterSource(&fakeSource{id: "a"}, time.Minute)
	if !errors.Is(err, source.ErrDuplicateSource) {
		t.Errorf("expected ErrDuplicateSource, got %v", err)
	}
}

func TestHunter_UnregisterRemovesSource(t *testing.T) {
	h := newTestHunter(Options{})
	mustRegister(t, h, &fakeSource{id: "a"})

	if err := h.UnregisterSource("a"); err != nil {
		t.Fatalf("UnregisterSource failed: %v", err)
	}
	if _, err := h.HuntNow(context.Background(), "a"); !errors.Is(err, source.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource after unregister, got %v", err)
	}
}

func TestHunter_FaultIsolation(t *testing.T) {
	h := newTestHunter(Options{})
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{discoveryProto("a", "fp-a")}})
	mustRegister(t, h, &fakeSource{id: "b", huntErr: errors.New("upstream down")})
	mustRegister(t, h, &fakeSource{id: "c", records: []source.RawRecord{discoveryProto("c", "fp-c")}})

	fresh, err := h.HuntNow(context.Background())
	if err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 discoveries from the healthy sources, got %d", len(fresh))
	}
	for _, d := range fresh {
		if d.Source == "b" {
			t.Errorf("discovery attributed to the failing source: %+v", d)
		}
		if d.DiscoveredAt == 0 {
			t.Error("DiscoveredAt not stamped")
		}
	}
}

func TestHunter_MalformedRecordDropped(t *testing.T) {
	h := newTestHunter(Options{})
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{
		discoveryProto("a", "fp-good"),
		"not a discovery",
	}})

	fresh, err := h.HuntNow(context.Background(), "a")
	if err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	if len(fresh) != 1 || fresh[0].Fingerprint != "fp-good" {
		t.Errorf("expected only the well-formed record, got %+v", fresh)
	}
}

func TestHunter_DedupAcrossTTL(t *testing.T) {
	now := &fakeNow{t: time.Unix(1704067200, 0)}
	h := newTestHunter(Options{DedupTTL: time.Hour, Now: now.Now})
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{discoveryProto("a", "fp-1")}})

	fresh, err := h.HuntNow(context.Background(), "a")
	if err != nil {
		t.Fatalf("first hunt failed: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("first hunt: expected 1 discovery, got %d", len(fresh))
	}

	fresh, err = h.HuntNow(context.Background(), "a")
	if err != nil {
		t.Fatalf("second hunt failed: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("second hunt within TTL: expected 0 discoveries, got %d", len(fresh))
	}

	now.Advance(time.Hour + time.Minute)
	fresh, err = h.HuntNow(context.Background(), "a")
	if err != nil {
		t.Fatalf("post-TTL hunt failed: %v", err)
	}
	if len(fresh) != 1 {
		t.Errorf("post-TTL hunt: expected re-emission, got %d discoveries", len(fresh))
	}
}

func TestHunter_CallbacksAndCountsReconcile(t *testing.T) {
	var gotDiscoveries []domain.Discovery
	var gotSignals []domain.Signal
	h := newTestHunter(Options{
		OnDiscoveries: func(_ context.Context, ds []domain.Discovery) { gotDiscoveries = ds },
		OnSignals:     func(_ context.Context, ss []domain.Signal) { gotSignals = ss },
	})
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{
		discoveryProto("a", "fp-1"),
		discoveryProto("a", "fp-2"),
		discoveryProto("a", "fp-3"),
	}})

	fresh, err := h.HuntNow(context.Background(), "a")
	if err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	if len(gotDiscoveries) != len(fresh) {
		t.Errorf("OnDiscoveries got %d, want %d", len(gotDiscoveries), len(fresh))
	}
	if len(gotSignals) != len(fresh) {
		t.Errorf("signal count %d does not reconcile with %d discoveries", len(gotSignals), len(fresh))
	}
	for _, s := range gotSignals {
		if s.Fingerprint == "" || s.Source != "a" {
			t.Errorf("signal missing back-references: %+v", s)
		}
	}
}

func TestHunter_PersistsDiscoveries(t *testing.T) {
	now := &fakeNow{t: time.Unix(1704067200, 0)}
	store := memory.NewDiscoveryStore()
	h := newTestHunter(Options{DedupTTL: time.Hour, Now: now.Now, DiscoveryStore: store})
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{discoveryProto("a", "fp-1")}})

	ctx := context.Background()
	if _, err := h.HuntNow(ctx, "a"); err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	stored, err := store.GetByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("discovery not persisted: %v", err)
	}
	if stored.Source != "a" {
		t.Errorf("stored Source = %q, want %q", stored.Source, "a")
	}

	// Re-emission after TTL hits the existing row; that is tolerated.
	now.Advance(2 * time.Hour)
	fresh, err := h.HuntNow(ctx, "a")
	if err != nil {
		t.Fatalf("post-TTL hunt failed: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected re-emission, got %d", len(fresh))
	}
}

func TestHunter_AppendsSignalHistory(t *testing.T) {
	history := &captureSignalStore{}
	h := newTestHunter(Options{SignalHistoryStore: history})
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{
		discoveryProto("a", "fp-1"),
		discoveryProto("a", "fp-2"),
	}})

	if _, err := h.HuntNow(context.Background(), "a"); err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	if got := len(history.inserted); got != 2 {
		t.Errorf("signal history got %d rows, want 2", got)
	}
}

func TestHunter_RoutesMintsToScoring(t *testing.T) {
	engine, err := scoring.New(scoring.Options{
		Market: stub.NewMarketProvider(map[string]*domain.MarketQuote{
			"WSOL": {Price: 150, Change24h: 4, MarketCap: 70e9, Volume24h: 2e9},
		}),
		Logger: discard(),
	})
	if err != nil {
		t.Fatalf("scoring.New failed: %v", err)
	}

	analyses := memory.NewAnalysisStore()
	var callbackAnalyses []*domain.TokenAnalysis
	h := newTestHunter(Options{
		Engine:        engine,
		AnalysisStore: analyses,
		OnAnalyses:    func(_ context.Context, as []*domain.TokenAnalysis) { callbackAnalyses = as },
	})

	withMint := discoveryProto("a", "fp-mint")
	withMint.Category = domain.CategoryWhale
	withMint.Metrics = map[string]float64{"amount_usd": 300_000}
	withMint.RawMetadata = map[string]string{"mint": wsolMint, "symbol": "WSOL", "side": "buy"}
	mustRegister(t, h, &fakeSource{id: "a", records: []source.RawRecord{
		withMint,
		discoveryProto("a", "fp-plain"),
	}})

	ctx := context.Background()
	if _, err := h.HuntNow(ctx, "a"); err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}

	if len(callbackAnalyses) != 1 {
		t.Fatalf("OnAnalyses got %d analyses, want 1", len(callbackAnalyses))
	}
	if callbackAnalyses[0].Mint != wsolMint {
		t.Errorf("analysis mint = %q, want %q", callbackAnalyses[0].Mint, wsolMint)
	}
	if callbackAnalyses[0].Confidence != 0.25 {
		t.Errorf("single-category confidence = %v, want 0.25", callbackAnalyses[0].Confidence)
	}
	if _, err := analyses.GetLatestByMint(ctx, wsolMint); err != nil {
		t.Errorf("analysis not persisted: %v", err)
	}
}

func TestHunter_SentimentContrarianFlow(t *testing.T) {
	var gotSignals []domain.Signal
	h := newTestHunter(Options{
		OnSignals: func(_ context.Context, ss []domain.Signal) { gotSignals = ss },
	})

	d := discoveryProto("feargreed", "fp-fear")
	d.Category = domain.CategorySentiment
	d.Metrics = map[string]float64{"value": 15}
	d.RawMetadata = map[string]string{"signal": "ACCUMULATE"}
	mustRegister(t, h, &fakeSource{id: "feargreed", records: []source.RawRecord{d}})

	if _, err := h.HuntNow(context.Background(), "feargreed"); err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	if len(gotSignals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(gotSignals))
	}
	s := gotSignals[0]
	if s.Action != domain.ActionBuy {
		t.Errorf("extreme fear should map to a contrarian buy, got %s", s.Action)
	}
	if s.Urgency.Rank() < domain.UrgencyToday.Rank() {
		t.Errorf("urgency %s below today", s.Urgency)
	}
}

func TestHunter_WhalePurchaseFlow(t *testing.T) {
	var gotSignals []domain.Signal
	h := newTestHunter(Options{
		OnSignals: func(_ context.Context, ss []domain.Signal) { gotSignals = ss },
	})

	d := discoveryProto("whalefeed", "fp-whale")
	d.Category = domain.CategoryWhale
	d.Metrics = map[string]float64{"amount_usd": 400_000}
	d.RawMetadata = map[string]string{"side": "buy"}
	mustRegister(t, h, &fakeSource{id: "whalefeed", records: []source.RawRecord{d}})

	if _, err := h.HuntNow(context.Background(), "whalefeed"); err != nil {
		t.Fatalf("HuntNow failed: %v", err)
	}
	if len(gotSignals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(gotSignals))
	}
	s := gotSignals[0]
	if s.Urgency != domain.UrgencyImmediate {
		t.Errorf("large whale purchase urgency = %s, want IMMEDIATE", s.Urgency)
	}
	if s.Risk.Rank() > domain.RiskMedium.Rank() {
		t.Errorf("whale purchase risk = %s, want at most MEDIUM", s.Risk)
	}
	if s.Reasoning == "" {
		t.Error("whale signal has empty reasoning")
	}
}

func TestHunter_ScheduledHuntRuns(t *testing.T) {
	clock := &fakeClock{}
	src := &fakeSource{id: "a", records: []source.RawRecord{discoveryProto("a", "fp-1")}}
	h := newTestHunter(Options{Clock: clock})
	mustRegister(t, h, src)

	h.Start(context.Background())
	defer h.Stop()

	// One ticker for the source job, one for the dedup sweep.
	waitFor(t, func() bool {
		clock.mu.Lock()
		defer clock.mu.Unlock()
		return len(clock.tickers) == 2
	})
	clock.tickAll()
	waitFor(t, func() bool { return src.hunts.Load() >= 1 })
}

func TestHunter_StartStopStreamingSource(t *testing.T) {
	src := &streamSource{fakeSource: fakeSource{id: "stream"}}
	h := newTestHunter(Options{Clock: &fakeClock{}})
	mustRegister(t, h, src)

	h.Start(context.Background())
	if src.started.Load() != 1 {
		t.Fatalf("streaming source started %d times, want 1", src.started.Load())
	}

	h.Stop()
	if src.closed.Load() != 1 {
		t.Errorf("streaming source closed %d times, want 1", src.closed.Load())
	}
}

func TestHunter_SerializesSameSource(t *testing.T) {
	var inFlight atomic.Int64
	var overlapped atomic.Bool
	src := &slowSource{
		id: "slow",
		onHunt: func() {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
		},
	}
	h := newTestHunter(Options{})
	mustRegister(t, h, src)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.HuntNow(context.Background(), "slow")
		}()
	}
	wg.Wait()

	if overlapped.Load() {
		t.Error("same source hunted concurrently with itself")
	}
}

// slowSource invokes a hook on every hunt and returns a fresh record each
// time so concurrent batches always have work.
type slowSource struct {
	id     string
	onHunt func()
	n      atomic.Int64
}

func (s *slowSource) ID() string { return s.id }

func (s *slowSource) Hunt(_ context.Context) ([]source.RawRecord, error) {
	s.onHunt()
	return []source.RawRecord{discoveryProto(s.id, fmt.Sprintf("fp-%d", s.n.Add(1)))}, nil
}

func (s *slowSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	proto, ok := raw.(*domain.Discovery)
	if !ok {
		return nil, source.ErrMalformedRecord
	}
	cp := *proto
	return &cp, nil
}

// captureSignalStore records InsertBulk calls.
type captureSignalStore struct {
	inserted []*domain.Signal
}

func (c *captureSignalStore) InsertBulk(_ context.Context, signals []*domain.Signal) error {
	c.inserted = append(c.inserted, signals...)
	return nil
}

func (c *captureSignalStore) GetByTimeRange(_ context.Context, _, _ int64) ([]*domain.Signal, error) {
	return nil, storage.ErrNotFound
}

func (c *captureSignalStore) GetByType(_ context.Context, _ domain.SignalType) ([]*domain.Signal, error) {
	return nil, storage.ErrNotFound
}
