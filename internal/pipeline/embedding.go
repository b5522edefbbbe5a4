package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/model"
	"github.com/oddsline/newsflow/internal/runner"
)

// contentSnippetLen caps how much article body feeds the embedding text when
// no summary is available.
const contentSnippetLen = 500

// EmbedStore is the persistence surface the embedder needs.
type EmbedStore interface {
	ClaimPendingArticles(ctx context.Context, limit int) ([]model.Article, error)
	SetArticleEmbedded(ctx context.Context, id int64, embedding []float32) error
	SetArticleFailed(ctx context.Context, id int64, msg string) error
	FailArticles(ctx context.Context, ids []int64, msg string) error

	MarketsMissingEmbedding(ctx context.Context, limit int) ([]model.Market, error)
	SetMarketEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// Embedder advances articles pending -> embedded and generates market
// embeddings. The market path is shared with the syncer, which invokes it
// directly for new and retitled markets.
type Embedder struct {
	store     EmbedStore
	provider  capability.EmbeddingProvider
	batchSize int
	logger    *slog.Logger
}

// NewEmbedder creates an Embedder.
func NewEmbedder(st EmbedStore, provider capability.EmbeddingProvider, batchSize int, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Embedder{
		store:     st,
		provider:  provider,
		batchSize: batchSize,
		logger:    logger.With("worker", "embedding"),
	}
}

// RunOnce claims a batch of pending articles and embeds them. When no
// articles are pending it sweeps markets still missing an embedding, so a
// failed sync-time embedding heals on a later tick.
func (e *Embedder) RunOnce(ctx context.Context) runner.Outcome {
	articles, err := e.store.ClaimPendingArticles(ctx, e.batchSize)
	if err != nil {
		return runner.Failed(fmt.Errorf("claim pending articles: %w", err))
	}

	if len(articles) == 0 {
		return e.sweepMarkets(ctx)
	}

	start := time.Now()

	texts := make([]string, len(articles))
	ids := make([]int64, len(articles))
	for i, a := range articles {
		texts[i] = articleEmbedText(a)
		ids[i] = a.ID
	}

	vectors, err := e.provider.Embed(ctx, texts)
	if err != nil {
		// Provider-wide failure fails the whole claimed batch.
		if failErr := e.store.FailArticles(ctx, ids, err.Error()); failErr != nil {
			e.logger.Error("failed to mark batch failed", "error", failErr)
		}
		return runner.Failed(fmt.Errorf("embed batch of %d: %w", len(articles), err))
	}

	var succeeded int
	for i, a := range articles {
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		if len(vec) == 0 {
			if err := e.store.SetArticleFailed(ctx, a.ID, "empty embedding returned"); err != nil {
				e.logger.Error("failed to mark article failed", "article_id", a.ID, "error", err)
			}
			continue
		}
		if err := e.store.SetArticleEmbedded(ctx, a.ID, vec); err != nil {
			e.logger.Error("failed to store embedding", "article_id", a.ID, "error", err)
			continue
		}
		succeeded++
		e.logger.Debug("article embedded", "article_id", a.ID, "dim", len(vec))
	}

	e.logger.Info("embedding batch complete",
		"claimed", len(articles),
		"embedded", succeeded,
		"duration", time.Since(start),
	)

	if succeeded == 0 {
		return runner.Idle()
	}
	return runner.Worked()
}

// sweepMarkets embeds a small batch of markets that have no embedding yet.
func (e *Embedder) sweepMarkets(ctx context.Context) runner.Outcome {
	markets, err := e.store.MarketsMissingEmbedding(ctx, e.batchSize)
	if err != nil {
		return runner.Failed(fmt.Errorf("query markets missing embedding: %w", err))
	}
	if len(markets) == 0 {
		return runner.Idle()
	}

	n, err := e.EmbedMarkets(ctx, markets)
	if err != nil {
		return runner.Failed(err)
	}
	if n == 0 {
		return runner.Idle()
	}
	return runner.Worked()
}

// EmbedMarkets generates and stores embeddings for the given markets,
// batching provider calls. Returns how many markets were embedded.
func (e *Embedder) EmbedMarkets(ctx context.Context, markets []model.Market) (int, error) {
	var embedded int

	for start := 0; start < len(markets); start += e.batchSize {
		end := min(start+e.batchSize, len(markets))
		batch := markets[start:end]

		texts := make([]string, len(batch))
		for i, m := range batch {
			texts[i] = marketEmbedText(m)
		}

		vectors, err := e.provider.Embed(ctx, texts)
		if err != nil {
			return embedded, fmt.Errorf("embed markets batch: %w", err)
		}

		for i, m := range batch {
			var vec []float32
			if i < len(vectors) {
				vec = vectors[i]
			}
			if len(vec) == 0 {
				e.logger.Warn("empty embedding for market", "market_id", m.ID, "title", m.Title)
				continue
			}
			if err := e.store.SetMarketEmbedding(ctx, m.ID, vec); err != nil {
				e.logger.Error("failed to store market embedding", "market_id", m.ID, "error", err)
				continue
			}
			embedded++
		}
	}

	if embedded > 0 {
		e.logger.Info("markets embedded", "count", embedded, "requested", len(markets))
	}
	return embedded, nil
}

// articleEmbedText builds the text embedded for an article: title, summary
// (or a content snippet), and tags, blank-line separated.
func articleEmbedText(a model.Article) string {
	var b strings.Builder
	b.WriteString(a.Title)

	body := a.Summary
	if body == "" && a.Content != "" {
		body = a.Content
		if len(body) > contentSnippetLen {
			body = body[:contentSnippetLen]
		}
	}
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}

	if len(a.Tags) > 0 {
		b.WriteString("\n\n")
		b.WriteString("Tags: ")
		b.WriteString(strings.Join(a.Tags, ", "))
	}

	return b.String()
}

// marketEmbedText builds the text embedded for a market.
func marketEmbedText(m model.Market) string {
	if m.Category != "" {
		return m.Title + ". Category: " + m.Category
	}
	return m.Title
}
