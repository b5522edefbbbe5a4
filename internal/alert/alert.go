// Package alert delivers validated-match alerts through configured sinks.
//
// The Dispatcher applies two local filters before any sink is called: a
// confidence threshold and a per-market cooldown. The cooldown map is
// process-local and lost on restart; oversending after a crash is preferred
// to missing an event.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/model"
)

// Config tunes the dispatcher.
type Config struct {
	MinConfidence float64
	Cooldown      time.Duration
}

// Dispatcher fans an alert out to every sink, tracking per-market cooldowns.
// It is owned and written by the validation worker only.
type Dispatcher struct {
	cfg    Config
	sinks  []capability.AlertSink
	logger *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time // marketURL -> last successful send
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher over the given sinks.
func NewDispatcher(cfg Config, sinks []capability.AlertSink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		sinks:    sinks,
		logger:   logger,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Dispatch applies the confidence and cooldown filters, then sends to every
// sink. Returns true when at least one sink accepted the alert; the cooldown
// is recorded only then.
func (d *Dispatcher) Dispatch(ctx context.Context, a model.Alert) (bool, error) {
	if a.Confidence < d.cfg.MinConfidence {
		d.logger.Debug("alert below sink threshold",
			"market", a.MarketTitle,
			"confidence", a.Confidence,
			"threshold", d.cfg.MinConfidence,
		)
		return false, nil
	}

	if d.inCooldown(a.MarketURL) {
		d.logger.Info("alert suppressed by cooldown",
			"market", a.MarketTitle,
			"market_url", a.MarketURL,
			"cooldown", d.cfg.Cooldown,
		)
		return false, nil
	}

	var sent int
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, a); err != nil {
			d.logger.Error("alert sink failed",
				"sink", sink.Name(),
				"market", a.MarketTitle,
				"error", err,
			)
			continue
		}
		sent++
	}

	if sent == 0 {
		return false, nil
	}

	d.recordSend(a.MarketURL)
	return true, nil
}

func (d *Dispatcher) inCooldown(marketURL string) bool {
	if d.cfg.Cooldown <= 0 || marketURL == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastSent[marketURL]
	return ok && d.now().Sub(last) < d.cfg.Cooldown
}

func (d *Dispatcher) recordSend(marketURL string) {
	if marketURL == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent[marketURL] = d.now()
}
