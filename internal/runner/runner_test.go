package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitForCount(t *testing.T, counter *atomic.Int64, want int64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("counter = %d, want >= %d within %v", counter.Load(), want, timeout)
}

func TestRunnerRunsUntilStopped(t *testing.T) {
	var count atomic.Int64
	r := New("test", Config{MinDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Growth: 2},
		func(ctx context.Context) Outcome {
			count.Add(1)
			return Worked()
		}, nil)

	r.Start(context.Background())
	waitForCount(t, &count, 5, time.Second)

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	stopped := count.Load()
	time.Sleep(20 * time.Millisecond)
	if count.Load() != stopped {
		t.Errorf("runner kept running after Stop: %d -> %d", stopped, count.Load())
	}
}

func TestRunnerBacksOffWhenIdle(t *testing.T) {
	var count atomic.Int64
	r := New("test", Config{MinDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Growth: 2},
		func(ctx context.Context) Outcome {
			count.Add(1)
			return Idle()
		}, nil)

	r.Start(context.Background())
	defer r.Stop(context.Background())

	// Idle iterations are spaced by the growing delay, so a few should land
	// within a generous window but nowhere near a hot loop's count.
	waitForCount(t, &count, 3, time.Second)
}

func TestRunnerContinuesAfterError(t *testing.T) {
	var count atomic.Int64
	r := New("test", Config{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Growth: 2},
		func(ctx context.Context) Outcome {
			count.Add(1)
			return Failed(errors.New("transient"))
		}, nil)

	r.Start(context.Background())
	defer r.Stop(context.Background())

	// Errors are contained; the loop keeps going.
	waitForCount(t, &count, 3, time.Second)
}

func TestRunnerStartIsIdempotent(t *testing.T) {
	var count atomic.Int64
	r := New("test", Config{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Growth: 2},
		func(ctx context.Context) Outcome {
			count.Add(1)
			return Idle()
		}, nil)

	r.Start(context.Background())
	r.Start(context.Background()) // no-op

	waitForCount(t, &count, 1, time.Second)

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}

func TestRunnerStopWithoutStart(t *testing.T) {
	r := New("test", Config{}, func(ctx context.Context) Outcome { return Idle() }, nil)
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop on never-started runner = %v, want nil", err)
	}
}

func TestRunnerRestart(t *testing.T) {
	var count atomic.Int64
	r := New("test", Config{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Growth: 2},
		func(ctx context.Context) Outcome {
			count.Add(1)
			return Worked()
		}, nil)

	r.Start(context.Background())
	waitForCount(t, &count, 1, time.Second)
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop error: %v", err)
	}

	before := count.Load()
	r.Start(context.Background())
	waitForCount(t, &count, before+1, time.Second)
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
}

func TestRunnerStopTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once atomic.Bool

	r := New("test", Config{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Growth: 2},
		func(ctx context.Context) Outcome {
			if once.CompareAndSwap(false, true) {
				close(started)
			}
			<-release // ignores cancellation on purpose
			return Idle()
		}, nil)

	r.Start(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop = %v, want deadline exceeded", err)
	}

	close(release)
}

func TestOutcomeConstructors(t *testing.T) {
	if o := Worked(); !o.Worked || o.Err != nil {
		t.Errorf("Worked() = %+v", o)
	}
	if o := Idle(); o.Worked || o.Err != nil {
		t.Errorf("Idle() = %+v", o)
	}
	err := errors.New("boom")
	if o := Failed(err); o.Worked || !errors.Is(o.Err, err) {
		t.Errorf("Failed() = %+v", o)
	}
}

func TestConfigPresets(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		min  time.Duration
		max  time.Duration
	}{
		{"worker", WorkerConfig(), time.Second, 30 * time.Second},
		{"sync", SyncConfig(), 5 * time.Second, 300 * time.Second},
		{"ingest", IngestConfig(), time.Second, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.MinDelay != tt.min {
				t.Errorf("MinDelay = %v, want %v", tt.cfg.MinDelay, tt.min)
			}
			if tt.cfg.MaxDelay != tt.max {
				t.Errorf("MaxDelay = %v, want %v", tt.cfg.MaxDelay, tt.max)
			}
		})
	}
}
