// Package aggregator is the facade over the discovery pipeline. The Hunter
// owns the source registry, the scheduler, and the deduplication cache;
// every hunt flows through it and nothing else mutates that state.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trend-hunter/internal/classify"
	"trend-hunter/internal/dedup"
	"trend-hunter/internal/domain"
	"trend-hunter/internal/observability"
	"trend-hunter/internal/scheduler"
	"trend-hunter/internal/scoring"
	"trend-hunter/internal/source"
	"trend-hunter/internal/storage"
)

// Aggregator defaults.
const (
	// DefaultSweepInterval drives the dedup cache eviction cadence.
	DefaultSweepInterval = 10 * time.Minute

	// DefaultBatchTimeout is the per-batch ceiling a single source gets
	// before the batch proceeds without it.
	DefaultBatchTimeout = 60 * time.Second

	sweepJobID = "dedup:sweep"
)

// streamingSource is implemented by sources that hold a live connection
// and need lifecycle calls alongside the scheduler.
type streamingSource interface {
	Start(ctx context.Context) error
	Close() error
}

// Hunter drives the discovery pipeline: scheduled and on-demand hunts,
// dedup filtering, persistence, classification, and token scanning.
type Hunter struct {
	registry *source.Registry
	sched    *scheduler.Scheduler
	cache    *dedup.Cache

	classifier *classify.Classifier
	engine     *scoring.Engine

	discoveries storage.DiscoveryStore
	analyses    storage.AnalysisStore
	signals     storage.SignalHistoryStore

	onDiscoveries func(ctx context.Context, discoveries []domain.Discovery)
	onSignals     func(ctx context.Context, signals []domain.Signal)
	onAnalyses    func(ctx context.Context, analyses []*domain.TokenAnalysis)

	batchTimeout time.Duration
	metrics      *observability.Metrics
	logger       *log.Logger
	now          func() time.Time

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
}

// Options contains configuration for creating a Hunter.
// The classifier is created with defaults when absent. The scoring engine,
// the stores, the metrics, and the callbacks are all individually optional;
// a missing collaborator simply disables that leg of the pipeline.
type Options struct {
	DedupTTL      time.Duration
	SweepInterval time.Duration
	BatchTimeout  time.Duration

	Classifier *classify.Classifier
	Engine     *scoring.Engine

	DiscoveryStore     storage.DiscoveryStore
	AnalysisStore      storage.AnalysisStore
	SignalHistoryStore storage.SignalHistoryStore

	OnDiscoveries func(ctx context.Context, discoveries []domain.Discovery)
	OnSignals     func(ctx context.Context, signals []domain.Signal)
	OnAnalyses    func(ctx context.Context, analyses []*domain.TokenAnalysis)

	Metrics *observability.Metrics
	Logger  *log.Logger
	Clock   scheduler.Clock
	Now     func() time.Time
}

// New creates a stopped Hunter with no registered sources.
func New(opts Options) *Hunter {
	sweepInterval := opts.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	batchTimeout := opts.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.New(classify.Options{Logger: logger, Now: now})
	}

	h := &Hunter{
		registry:      source.NewRegistry(),
		sched:         scheduler.New(scheduler.Options{Clock: opts.Clock, Logger: logger}),
		cache:         dedup.New(opts.DedupTTL, dedup.WithClock(now)),
		classifier:    classifier,
		engine:        opts.Engine,
		discoveries:   opts.DiscoveryStore,
		analyses:      opts.AnalysisStore,
		signals:       opts.SignalHistoryStore,
		onDiscoveries: opts.OnDiscoveries,
		onSignals:     opts.OnSignals,
		onAnalyses:    opts.OnAnalyses,
		batchTimeout:  batchTimeout,
		metrics:       opts.Metrics,
		logger:        logger,
		now:           now,
	}

	// The sweep job is registered up front; it starts with the scheduler.
	if err := h.sched.Add(sweepJobID, sweepInterval, func(context.Context) {
		evicted := h.cache.Sweep()
		h.metrics.UpdateDedupCache(h.cache.Len(), evicted)
		if evicted > 0 {
			h.logger.Printf("[aggregator] dedup sweep evicted %d fingerprints", evicted)
		}
	}); err != nil {
		// Only reachable for a duplicate id, which cannot happen here.
		logger.Printf("[aggregator] add sweep job: %v", err)
	}

	return h
}

// RegisterSource adds a source under its own id and schedules its recurring
// hunt. A non-positive cadence falls back to source.DefaultCadence. If the
// hunter is running and the source streams, its connection is opened now.
func (h *Hunter) RegisterSource(src source.Source, cadence time.Duration) error {
	if err := h.registry.Register(src, cadence); err != nil {
		return fmt.Errorf("register source %q: %w", src.ID(), err)
	}

	entry, err := h.registry.Get(src.ID())
	if err != nil {
		return err
	}
	id := src.ID()
	if err := h.sched.Add(id, entry.Cadence, func(ctx context.Context) {
		if _, err := h.huntBatch(ctx, []string{id}); err != nil {
			h.logger.Printf("[aggregator] scheduled hunt %s: %v", id, err)
		}
	}); err != nil {
		_ = h.registry.Unregister(id)
		return fmt.Errorf("schedule source %q: %w", id, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.UpdateSchedulerJobs(h.registry.Len() + 1)
	if h.running {
		h.startStreaming(h.runCtx, src)
	}
	return nil
}

// UnregisterSource removes a source and cancels its scheduled hunts.
// An in-flight hunt is not aborted; its late batch is still processed.
func (h *Hunter) UnregisterSource(id string) error {
	entry, err := h.registry.Get(id)
	if err != nil {
		return err
	}
	if err := h.registry.Unregister(id); err != nil {
		return err
	}
	if err := h.sched.Remove(id); err != nil {
		h.logger.Printf("[aggregator] remove job %s: %v", id, err)
	}
	h.closeStreaming(entry.Source)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics.UpdateSchedulerJobs(h.registry.Len() + 1)
	return nil
}

// SourceIDs returns all registered source ids in lexical order.
func (h *Hunter) SourceIDs() []string {
	return h.registry.IDs()
}

// HuntNow invokes the named sources immediately, bypassing their cadence,
// and returns the dedup-filtered discoveries of the batch. No ids means all
// registered sources. An unknown id fails the whole call up front; source
// failures inside the batch are isolated and logged.
func (h *Hunter) HuntNow(ctx context.Context, sourceIDs ...string) ([]domain.Discovery, error) {
	ids := sourceIDs
	if len(ids) == 0 {
		ids = h.registry.IDs()
	}
	for _, id := range ids {
		if _, err := h.registry.Get(id); err != nil {
			return nil, fmt.Errorf("hunt now %q: %w", id, err)
		}
	}
	return h.huntBatch(ctx, ids)
}

// Start opens streaming sources and launches the scheduler. Calling Start
// on a running hunter is a no-op.
func (h *Hunter) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return
	}
	h.runCtx, h.cancel = context.WithCancel(ctx)
	h.running = true

	for _, id := range h.registry.IDs() {
		entry, err := h.registry.Get(id)
		if err != nil {
			continue
		}
		h.startStreaming(h.runCtx, entry.Source)
	}

	h.sched.Start(h.runCtx)
	h.logger.Printf("[aggregator] started with %d sources", h.registry.Len())
}

// Stop cancels future scheduled hunts and closes streaming sources. An
// in-flight hunt is allowed to finish; its late results are discarded
// because the run context is already canceled.
func (h *Hunter) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	cancel := h.cancel
	h.mu.Unlock()

	h.sched.Stop()
	cancel()

	for _, id := range h.registry.IDs() {
		entry, err := h.registry.Get(id)
		if err != nil {
			continue
		}
		h.closeStreaming(entry.Source)
	}
	h.logger.Println("[aggregator] stopped")
}

// huntBatch is the pipeline for one batch: concurrent settle-all hunts,
// single-threaded dedup filtering, persistence, then routing.
func (h *Hunter) huntBatch(ctx context.Context, ids []string) ([]domain.Discovery, error) {
	type result struct {
		id          string
		discoveries []domain.Discovery
	}

	results := make([]result, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = result{id: id, discoveries: h.huntOne(ctx, id)}
		}(i, id)
	}
	wg.Wait()

	// Late batch after Stop: drop rather than race a restarted cache.
	if ctx.Err() != nil {
		return nil, nil
	}

	// Accumulate in invocation order, then filter as one atomic pass.
	var batch []domain.Discovery
	transformed := make(map[string]int, len(ids))
	for _, r := range results {
		batch = append(batch, r.discoveries...)
		transformed[r.id] = len(r.discoveries)
	}

	fresh := h.cache.FilterNew(batch)
	h.metrics.UpdateDedupCache(h.cache.Len(), 0)

	emitted := make(map[string]int, len(ids))
	for _, d := range fresh {
		emitted[d.Source]++
	}
	for _, id := range ids {
		h.metrics.RecordDiscoveries(id, emitted[id], transformed[id]-emitted[id])
	}

	if len(fresh) == 0 {
		return fresh, nil
	}
	h.metrics.MarkSuccessfulHunt(h.now().Unix())

	h.persistDiscoveries(ctx, fresh)
	if h.onDiscoveries != nil {
		h.onDiscoveries(ctx, fresh)
	}

	h.routeSignals(ctx, fresh)
	h.routeScans(ctx, fresh)

	return fresh, nil
}

// huntOne runs a single source's hunt and transform, serialized against
// other invocations of the same source. Failures are absorbed here.
func (h *Hunter) huntOne(ctx context.Context, id string) []domain.Discovery {
	entry, err := h.registry.Get(id)
	if err != nil {
		// Unregistered between validation and execution; skip.
		return nil
	}

	entry.InFlight.Lock()
	defer entry.InFlight.Unlock()

	huntCtx, cancel := context.WithTimeout(ctx, h.batchTimeout)
	defer cancel()

	start := h.now()
	records, err := entry.Source.Hunt(huntCtx)
	elapsed := h.now().Sub(start).Seconds()
	if err != nil {
		h.metrics.RecordHunt(id, "error", elapsed)
		h.logger.Printf("[aggregator] hunt %s failed: %v", id, err)
		return nil
	}
	h.metrics.RecordHunt(id, "ok", elapsed)
	h.metrics.RecordRecords(id, len(records))

	nowMs := h.now().UnixMilli()
	discoveries := make([]domain.Discovery, 0, len(records))
	for _, raw := range records {
		d, err := entry.Source.Transform(raw)
		if err != nil {
			h.metrics.RecordTransformError(id)
			h.logger.Printf("[aggregator] transform %s: dropping record: %v", id, err)
			continue
		}
		d.DiscoveredAt = nowMs
		discoveries = append(discoveries, *d)
	}
	return discoveries
}

// routeSignals classifies the whole fresh batch. Every discovery yields
// exactly one signal, so batch counts stay reconcilable; discoveries that
// also carry a mint get scanned separately in routeScans.
func (h *Hunter) routeSignals(ctx context.Context, fresh []domain.Discovery) {
	batch := h.classifier.ProcessSignals(fresh)
	for _, s := range batch.Signals {
		h.metrics.RecordSignal(string(s.Type), string(s.Action))
	}

	if h.signals != nil && len(batch.Signals) > 0 {
		rows := make([]*domain.Signal, len(batch.Signals))
		for i := range batch.Signals {
			rows[i] = &batch.Signals[i]
		}
		if err := h.signals.InsertBulk(ctx, rows); err != nil {
			h.logger.Printf("[aggregator] append signal history: %v", err)
		}
	}

	if h.onSignals != nil {
		h.onSignals(ctx, batch.Signals)
	}
}

// routeScans scores the unique mints referenced by the batch, passing along
// the discovery's symbol so the market quote can resolve. A nil engine
// disables this leg entirely.
func (h *Hunter) routeScans(ctx context.Context, fresh []domain.Discovery) {
	if h.engine == nil {
		return
	}

	var targets []scoring.Target
	seen := make(map[string]int)
	for i := range fresh {
		mint, ok := fresh[i].Mint()
		if !ok {
			continue
		}
		symbol := fresh[i].RawMetadata["symbol"]
		if j, dup := seen[mint]; dup {
			if targets[j].Symbol == "" {
				targets[j].Symbol = symbol
			}
			continue
		}
		seen[mint] = len(targets)
		targets = append(targets, scoring.Target{Mint: mint, Symbol: symbol})
	}
	if len(targets) == 0 {
		return
	}

	analyses, err := h.engine.ScanTargets(ctx, targets)
	if err != nil {
		h.metrics.RecordTokenScan("error")
		h.logger.Printf("[aggregator] scan batch: %v", err)
		return
	}
	for range analyses {
		h.metrics.RecordTokenScan("ok")
	}

	if h.analyses != nil {
		for _, a := range analyses {
			if err := h.analyses.Insert(ctx, a); err != nil && !errorsIsDuplicate(err) {
				h.logger.Printf("[aggregator] store analysis %s: %v", a.Mint, err)
			}
		}
	}

	if h.onAnalyses != nil {
		h.onAnalyses(ctx, analyses)
	}
}

// persistDiscoveries writes the fresh batch. A duplicate key means the row
// survived a cache restart; that is expected and skipped silently.
func (h *Hunter) persistDiscoveries(ctx context.Context, fresh []domain.Discovery) {
	if h.discoveries == nil {
		return
	}
	for i := range fresh {
		if err := h.discoveries.Insert(ctx, &fresh[i]); err != nil && !errorsIsDuplicate(err) {
			h.logger.Printf("[aggregator] store discovery %s: %v", fresh[i].Fingerprint, err)
		}
	}
}

// startStreaming opens a streaming source's connection if it has one.
// Caller holds h.mu.
func (h *Hunter) startStreaming(ctx context.Context, src source.Source) {
	stream, ok := src.(streamingSource)
	if !ok {
		return
	}
	if err := stream.Start(ctx); err != nil {
		h.logger.Printf("[aggregator] start stream %s: %v", src.ID(), err)
	}
}

// closeStreaming closes a streaming source's connection if it has one.
func (h *Hunter) closeStreaming(src source.Source) {
	stream, ok := src.(streamingSource)
	if !ok {
		return
	}
	if err := stream.Close(); err != nil {
		h.logger.Printf("[aggregator] close stream %s: %v", src.ID(), err)
	}
}

func errorsIsDuplicate(err error) bool {
	return errors.Is(err, storage.ErrDuplicateKey)
}
