package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddsline/newsflow/internal/model"
	"github.com/oddsline/newsflow/internal/runner"
	"github.com/oddsline/newsflow/internal/store"
)

// MatchStore is the persistence surface the matcher needs.
type MatchStore interface {
	ClaimEmbeddedArticles(ctx context.Context, limit int) ([]model.Article, error)
	SearchMarkets(ctx context.Context, query []float32, topN int, minSimilarity float64, activeOnly bool) ([]store.SearchResult, error)
	InsertMatch(ctx context.Context, articleID, marketID int64, similarity float64) (bool, error)
	SetArticleMatched(ctx context.Context, id int64) error
	SetArticleFailed(ctx context.Context, id int64, msg string) error
}

// MatcherConfig tunes the similarity search.
type MatcherConfig struct {
	BatchSize     int
	TopN          int
	MinSimilarity float64
}

// DefaultMatcherConfig returns sensible defaults.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{BatchSize: 5, TopN: 20, MinSimilarity: 0.3}
}

// Matcher advances articles embedded -> matched by joining each article's
// embedding against the market vector index.
type Matcher struct {
	cfg    MatcherConfig
	store  MatchStore
	logger *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(cfg MatcherConfig, st MatchStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultMatcherConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	return &Matcher{cfg: cfg, store: st, logger: logger.With("worker", "matching")}
}

// RunOnce claims a batch of embedded articles and matches each against the
// market index. An article is promoted to matched even when zero matches are
// produced; a per-article error fails only that article.
func (m *Matcher) RunOnce(ctx context.Context) runner.Outcome {
	articles, err := m.store.ClaimEmbeddedArticles(ctx, m.cfg.BatchSize)
	if err != nil {
		return runner.Failed(fmt.Errorf("claim embedded articles: %w", err))
	}
	if len(articles) == 0 {
		return runner.Idle()
	}

	start := time.Now()
	var matched, totalMatches int

	for _, a := range articles {
		n, err := m.matchArticle(ctx, a)
		if err != nil {
			m.logger.Error("matching failed", "article_id", a.ID, "error", err)
			msg := fmt.Sprintf("Matching failed: %v", err)
			if failErr := m.store.SetArticleFailed(ctx, a.ID, msg); failErr != nil {
				m.logger.Error("failed to mark article failed", "article_id", a.ID, "error", failErr)
			}
			continue
		}
		matched++
		totalMatches += n
	}

	m.logger.Info("matching batch complete",
		"claimed", len(articles),
		"matched", matched,
		"match_rows", totalMatches,
		"duration", time.Since(start),
	)

	if matched == 0 {
		return runner.Idle()
	}
	return runner.Worked()
}

// matchArticle finds top-N similar markets for one article, inserts match
// rows, and promotes the article.
func (m *Matcher) matchArticle(ctx context.Context, a model.Article) (int, error) {
	if len(a.Embedding) == 0 {
		return 0, fmt.Errorf("article %d has no embedding", a.ID)
	}

	results, err := m.store.SearchMarkets(ctx, a.Embedding, m.cfg.TopN, m.cfg.MinSimilarity, true)
	if err != nil {
		return 0, fmt.Errorf("vector search: %w", err)
	}

	var inserted int
	for _, r := range results {
		ok, err := m.store.InsertMatch(ctx, a.ID, r.MarketID, r.Similarity)
		if err != nil {
			return inserted, fmt.Errorf("insert match (market %d): %w", r.MarketID, err)
		}
		if ok {
			inserted++
			m.logger.Debug("match found",
				"article_id", a.ID,
				"market_id", r.MarketID,
				"similarity", r.Similarity,
			)
		}
	}

	// The article has been through the matcher even with zero hits.
	if err := m.store.SetArticleMatched(ctx, a.ID); err != nil {
		return inserted, fmt.Errorf("promote article: %w", err)
	}
	return inserted, nil
}
