// Package scheduler runs one recurring job per registered source, each on
// its own cadence, with an on-demand trigger that bypasses the cadence.
// Each job runs in its own goroutine, so invocations of the same job are
// serialized while different jobs proceed independently.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Package errors.
var (
	ErrUnknownJob   = errors.New("unknown job id")
	ErrDuplicateJob = errors.New("job id already scheduled")
	ErrNotRunning   = errors.New("scheduler is not running")
)

// Ticker abstracts time.Ticker for testability.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock produces tickers and the current time. Tests inject a fake.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

// RealClock returns the wall-clock Clock.
func RealClock() Clock { return realClock{} }

// Job is one scheduled unit of work. The context is the scheduler's run
// context; jobs are expected to honor its cancellation.
type Job func(ctx context.Context)

type job struct {
	id      string
	every   time.Duration
	run     Job
	trigger chan struct{}
	stop    chan struct{}
}

// Scheduler owns the per-job goroutines and their lifecycle.
type Scheduler struct {
	clock  Clock
	logger *log.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Options contains configuration for creating a Scheduler.
type Options struct {
	Clock  Clock
	Logger *log.Logger
}

// New creates a stopped scheduler.
func New(opts Options) *Scheduler {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		clock:  clock,
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Add schedules a job. If the scheduler is already running the job starts
// immediately; otherwise it starts on Start.
func (s *Scheduler) Add(id string, every time.Duration, run Job) error {
	if every <= 0 {
		return errors.New("cadence must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return ErrDuplicateJob
	}
	j := &job{
		id:      id,
		every:   every,
		run:     run,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	s.jobs[id] = j

	if s.running {
		s.launch(j)
	}
	return nil
}

// Remove cancels a job's future invocations. An in-flight invocation is
// not aborted; its result is the caller's problem to discard.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists {
		return ErrUnknownJob
	}
	delete(s.jobs, id)
	close(j.stop)
	return nil
}

// Trigger requests an immediate run of the job, bypassing its cadence.
// A trigger while a run is already pending coalesces into one run.
func (s *Scheduler) Trigger(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	j, exists := s.jobs[id]
	if !exists {
		return ErrUnknownJob
	}
	select {
	case j.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Start launches all registered jobs. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, j := range s.jobs {
		s.launch(j)
	}
	s.logger.Printf("scheduler started with %d jobs", len(s.jobs))
}

// Stop cancels all future invocations and waits for in-flight runs to
// return. Jobs stay registered; a later Start relaunches them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Println("scheduler stopped")
}

// launch starts the job goroutine. Caller holds s.mu.
func (s *Scheduler) launch(j *job) {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := s.clock.NewTicker(j.every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stop:
				return
			case <-ticker.C():
				j.run(ctx)
			case <-j.trigger:
				j.run(ctx)
			}
		}
	}()
}
