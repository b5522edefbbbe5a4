// Package runner provides the generic loop supervisor driving every
// ingestor, syncer, and worker in the pipeline.
//
// A Runner executes a RunFunc forever until stopped. Iterations that find
// work reset the delay to the minimum; idle or failed iterations grow the
// delay exponentially with jitter. Errors never escape the runner: a failed
// iteration is logged and treated as idle for backoff purposes.
package runner

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Outcome reports what one loop iteration accomplished.
type Outcome struct {
	Worked bool  // True when work was found and done
	Err    error // Non-nil when the iteration failed
}

// Worked reports a successful iteration that found work.
func Worked() Outcome { return Outcome{Worked: true} }

// Idle reports a successful iteration that found nothing to do.
func Idle() Outcome { return Outcome{} }

// Failed reports an iteration that errored.
func Failed(err error) Outcome { return Outcome{Err: err} }

// RunFunc is a single loop iteration.
type RunFunc func(ctx context.Context) Outcome

// Config holds runner backoff configuration.
type Config struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Growth   float64
}

// WorkerConfig returns the backoff preset for pipeline workers.
func WorkerConfig() Config {
	return Config{MinDelay: 1 * time.Second, MaxDelay: 30 * time.Second, Growth: 1.5}
}

// SyncConfig returns the backoff preset for platform syncers.
func SyncConfig() Config {
	return Config{MinDelay: 5 * time.Second, MaxDelay: 300 * time.Second, Growth: 2}
}

// IngestConfig returns the backoff preset for news ingestors.
func IngestConfig() Config {
	return Config{MinDelay: 1 * time.Second, MaxDelay: 60 * time.Second, Growth: 2}
}

// Runner drives a RunFunc in a loop with exponential backoff and jitter.
type Runner struct {
	name   string
	cfg    Config
	run    RunFunc
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Runner. The name appears in every log line.
func New(name string, cfg Config, run RunFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.Growth < 1 {
		cfg.Growth = 2
	}
	return &Runner{
		name:   name,
		cfg:    cfg,
		run:    run,
		logger: logger.With("runner", name),
	}
}

// Start launches the loop. A second call is a no-op that warns.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		r.logger.Warn("runner already started")
		return
	}
	r.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(loopCtx)
	}()

	r.logger.Info("runner started",
		"min_delay", r.cfg.MinDelay,
		"max_delay", r.cfg.MaxDelay,
	)
}

// Stop signals cancellation and waits for the current iteration to finish.
// Returns ctx.Err if the wait is cut short. Stopping a runner that was
// never started is informational only.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		r.logger.Debug("runner already stopped")
		return nil
	}
	r.started = false
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop runs iterations until the context is cancelled. The cancellation flag
// is checked at the top of each iteration; in-flight iterations complete.
func (r *Runner) loop(ctx context.Context) {
	delay := r.cfg.MinDelay

	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		outcome := r.run(ctx)

		switch {
		case outcome.Err != nil:
			if ctx.Err() != nil {
				// Cancellation surfaced as an iteration error; not a failure.
				return
			}
			r.logger.Error("iteration failed",
				"error", outcome.Err,
				"duration", time.Since(start),
				"next_delay", delay,
			)
		case outcome.Worked:
			r.logger.Debug("iteration worked", "duration", time.Since(start))
		default:
			r.logger.Debug("iteration idle",
				"duration", time.Since(start),
				"next_delay", delay,
			)
		}

		if outcome.Worked && outcome.Err == nil {
			delay = r.cfg.MinDelay
			// Run again immediately when work was found.
			continue
		}

		// Grow the delay, then add jitter of up to 10% of the pre-growth delay.
		jitter := time.Duration(rand.Int64N(int64(delay)/10 + 1))
		next := time.Duration(float64(delay) * r.cfg.Growth)
		delay = min(max(next, r.cfg.MinDelay), r.cfg.MaxDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay + jitter):
		}
	}
}
