// Package coordinator assembles the pipeline from configuration and manages
// its lifecycle. Components start in dependency order (ingestors, syncers,
// embedding, matching, validation) and stop in reverse, so downstream stages
// drain before their upstream feeds shut down.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddsline/newsflow/internal/alert"
	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/config"
	"github.com/oddsline/newsflow/internal/ingest"
	"github.com/oddsline/newsflow/internal/marketsync"
	"github.com/oddsline/newsflow/internal/pipeline"
	"github.com/oddsline/newsflow/internal/runner"
	"github.com/oddsline/newsflow/internal/store"
)

// Coordinator owns every pipeline runner and the capability registries.
type Coordinator struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	registries *Registries

	// Runners grouped by stage, in start order.
	ingestors []*runner.Runner
	syncers   []*runner.Runner
	workers   []*runner.Runner // embedding, matching, validation
	janitor   *runner.Runner

	platforms map[string]capability.MarketPlatform
}

// New builds a Coordinator from configuration. All adapters are instantiated
// here; an unknown adapter name in the config fails construction.
func New(cfg *config.Config, st *store.Store, registries *Registries, logger *slog.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		cfg:        cfg,
		store:      st,
		logger:     logger.With("component", "coordinator"),
		registries: registries,
		platforms:  make(map[string]capability.MarketPlatform),
	}

	if err := c.build(); err != nil {
		return nil, err
	}
	return c, nil
}

// build instantiates every adapter and runner named in the config.
func (c *Coordinator) build() error {
	cfg := c.cfg

	provider, err := c.registries.Embedders.Build(cfg.Embedding.Provider)
	if err != nil {
		return fmt.Errorf("build embedding provider: %w", err)
	}
	if provider.Dimension() != c.store.Dimension() {
		return fmt.Errorf("embedding dimension %d does not match store dimension %d",
			provider.Dimension(), c.store.Dimension())
	}

	llm, err := c.registries.LLMs.Build(cfg.LLM.Provider)
	if err != nil {
		return fmt.Errorf("build LLM provider: %w", err)
	}

	sinks := make([]capability.AlertSink, 0, len(cfg.Alerts.Sinks))
	for _, name := range cfg.Alerts.Sinks {
		sink, err := c.registries.Sinks.Build(name)
		if err != nil {
			return fmt.Errorf("build alert sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, alert.NewLogSink(c.logger))
	}

	dispatcher := alert.NewDispatcher(alert.Config{
		MinConfidence: cfg.Alerts.MinConfidence,
		Cooldown:      time.Duration(cfg.Alerts.CooldownMinutes) * time.Minute,
	}, sinks, c.logger)

	// News ingestors, one runner per configured source.
	ingestCfg := runner.IngestConfig()
	if cfg.News.MinDelay > 0 {
		ingestCfg.MinDelay = cfg.News.MinDelay.Std()
	}
	if cfg.News.MaxDelay > 0 {
		ingestCfg.MaxDelay = cfg.News.MaxDelay.Std()
	}
	for _, src := range cfg.News.Sources {
		source, err := c.registries.News.Build(src.Name)
		if err != nil {
			return fmt.Errorf("build news source: %w", err)
		}
		ing := ingest.New(source, c.store, c.logger)
		c.ingestors = append(c.ingestors, runner.New(
			"ingest."+source.Name(), ingestCfg, ing.RunOnce, c.logger))
	}

	// Shared embedder: runs as the embedding worker and backfills market
	// embeddings for the syncers.
	embedder := pipeline.NewEmbedder(c.store, provider, cfg.Pipeline.EmbedBatchSize, c.logger)

	// Platform syncers.
	syncCfg := runner.SyncConfig()
	if cfg.Platforms.MinDelay > 0 {
		syncCfg.MinDelay = cfg.Platforms.MinDelay.Std()
	}
	if cfg.Platforms.MaxDelay > 0 {
		syncCfg.MaxDelay = cfg.Platforms.MaxDelay.Std()
	}
	for _, name := range cfg.Platforms.Enabled {
		platform, err := c.registries.Platforms.Build(name)
		if err != nil {
			return fmt.Errorf("build platform: %w", err)
		}
		c.platforms[platform.Name()] = platform

		syncer := marketsync.New(marketsync.Config{
			EmbedPerCycle: cfg.Pipeline.MarketEmbedPerCycle,
		}, platform, c.store, embedder, c.logger)
		c.syncers = append(c.syncers, runner.New(
			"sync."+platform.Name(), syncCfg, syncer.RunOnce, c.logger))
	}

	// Pipeline workers, in stage order.
	workerCfg := runner.WorkerConfig()
	if cfg.Pipeline.WorkerMinDelay > 0 {
		workerCfg.MinDelay = cfg.Pipeline.WorkerMinDelay.Std()
	}
	if cfg.Pipeline.WorkerMaxDelay > 0 {
		workerCfg.MaxDelay = cfg.Pipeline.WorkerMaxDelay.Std()
	}

	matcher := pipeline.NewMatcher(pipeline.MatcherConfig{
		BatchSize:     cfg.Pipeline.MatchBatchSize,
		TopN:          cfg.Pipeline.TopN,
		MinSimilarity: cfg.Pipeline.MinSimilarity,
	}, c.store, c.logger)

	validator := pipeline.NewValidator(pipeline.ValidatorConfig{
		BatchSize:      cfg.Pipeline.ValidateBatchSize,
		MinConfidence:  cfg.Pipeline.MinConfidence,
		TradingEnabled: cfg.Trading.Enabled,
		DryRun:         cfg.Trading.DryRun,
	}, c.store, llm, dispatcher, c.platforms, c.logger)

	c.workers = append(c.workers,
		runner.New("worker.embedding", workerCfg, embedder.RunOnce, c.logger),
		runner.New("worker.matching", workerCfg, matcher.RunOnce, c.logger),
		runner.New("worker.validation", workerCfg, validator.RunOnce, c.logger),
	)

	// Retention sweep. Always idles so the runner settles at its max delay.
	if cfg.News.RetentionDays > 0 {
		retention := time.Duration(cfg.News.RetentionDays) * 24 * time.Hour
		janitorCfg := runner.Config{MinDelay: time.Hour, MaxDelay: 6 * time.Hour, Growth: 2}
		c.janitor = runner.New("janitor.retention", janitorCfg, func(ctx context.Context) runner.Outcome {
			deleted, err := c.store.DeleteArticlesBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return runner.Failed(fmt.Errorf("retention sweep: %w", err))
			}
			if deleted > 0 {
				c.logger.Info("retention sweep complete", "deleted", deleted)
			}
			return runner.Idle()
		}, c.logger)
	}

	return nil
}

// Start launches every runner in dependency order.
func (c *Coordinator) Start(ctx context.Context) {
	for _, r := range c.ingestors {
		r.Start(ctx)
	}
	for _, r := range c.syncers {
		r.Start(ctx)
	}
	for _, r := range c.workers {
		r.Start(ctx)
	}
	if c.janitor != nil {
		c.janitor.Start(ctx)
	}

	c.logger.Info("pipeline started",
		"ingestors", len(c.ingestors),
		"syncers", len(c.syncers),
		"workers", len(c.workers),
	)
}

// Stop shuts the pipeline down in reverse order so downstream stages finish
// their in-flight work before the stages feeding them stop.
func (c *Coordinator) Stop(ctx context.Context) error {
	var errs []error

	if c.janitor != nil {
		errs = append(errs, c.janitor.Stop(ctx))
	}
	for i := len(c.workers) - 1; i >= 0; i-- {
		errs = append(errs, c.workers[i].Stop(ctx))
	}
	for i := len(c.syncers) - 1; i >= 0; i-- {
		errs = append(errs, c.syncers[i].Stop(ctx))
	}
	for i := len(c.ingestors) - 1; i >= 0; i-- {
		errs = append(errs, c.ingestors[i].Stop(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("stop pipeline: %w", err)
	}
	c.logger.Info("pipeline stopped")
	return nil
}

// Platforms returns the built platform adapters keyed by name.
func (c *Coordinator) Platforms() map[string]capability.MarketPlatform {
	return c.platforms
}
