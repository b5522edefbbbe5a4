package coordinator

import (
	"context"
	"log/slog"

	"github.com/oddsline/newsflow/internal/alert"
	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/config"
	"github.com/oddsline/newsflow/internal/embed"
	"github.com/oddsline/newsflow/internal/llm"
	"github.com/oddsline/newsflow/internal/news/feed"
	"github.com/oddsline/newsflow/internal/platform/kalshi"
)

// Registries holds the named factories for every capability kind.
type Registries struct {
	News      *capability.Registry[capability.NewsSource]
	Platforms *capability.Registry[capability.MarketPlatform]
	Embedders *capability.Registry[capability.EmbeddingProvider]
	LLMs      *capability.Registry[capability.LLMProvider]
	Sinks     *capability.Registry[capability.AlertSink]
}

// NewRegistries creates empty registries.
func NewRegistries() *Registries {
	return &Registries{
		News:      capability.NewRegistry[capability.NewsSource]("news source"),
		Platforms: capability.NewRegistry[capability.MarketPlatform]("platform"),
		Embedders: capability.NewRegistry[capability.EmbeddingProvider]("embedding provider"),
		LLMs:      capability.NewRegistry[capability.LLMProvider]("LLM provider"),
		Sinks:     capability.NewRegistry[capability.AlertSink]("alert sink"),
	}
}

// DefaultRegistries registers the built-in adapters against the given
// configuration. Each configured news source registers under its own name as
// a JSON feed; additional adapter kinds register under fixed names.
func DefaultRegistries(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Registries {
	r := NewRegistries()

	for _, src := range cfg.News.Sources {
		name, url := src.Name, src.URL
		r.News.Register(name, func() (capability.NewsSource, error) {
			return feed.New(name, url, 0, logger), nil
		})
	}

	r.Platforms.Register("kalshi", func() (capability.MarketPlatform, error) {
		return kalshi.New(kalshi.Config{
			BaseURL: cfg.Platforms.Kalshi.BaseURL,
			APIKey:  cfg.Platforms.Kalshi.APIKey,
			Timeout: cfg.Platforms.Kalshi.Timeout.Std(),
		}, logger), nil
	})

	r.Embedders.Register("gemini", func() (capability.EmbeddingProvider, error) {
		return embed.NewGemini(ctx, embed.GeminiConfig{
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout.Std(),
		}, logger)
	})

	r.LLMs.Register("claude", func() (capability.LLMProvider, error) {
		return llm.NewClaude(llm.ClaudeConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout.Std(),
			MinInterval: cfg.LLM.MinInterval.Std(),
			MaxRetries:  cfg.LLM.MaxRetries,
		}, logger)
	})

	r.Sinks.Register("log", func() (capability.AlertSink, error) {
		return alert.NewLogSink(logger), nil
	})
	r.Sinks.Register("webhook", func() (capability.AlertSink, error) {
		return alert.NewWebhookSink(cfg.Alerts.WebhookURL, cfg.Alerts.WebhookTimeout.Std()), nil
	})

	return r
}
