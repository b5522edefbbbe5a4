// Package ingest polls news sources and inserts pending articles.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/model"
	"github.com/oddsline/newsflow/internal/runner"
)

// Store is the persistence surface the ingestor needs.
type Store interface {
	InsertArticle(ctx context.Context, item model.NewsItem) (bool, error)
}

// Ingestor polls one news source. Items already seen (same source and
// external id) are skipped via the store's conflict handling, so re-fetching
// an unchanged feed is a no-op.
type Ingestor struct {
	source capability.NewsSource
	store  Store
	logger *slog.Logger
}

// New creates an Ingestor for one source.
func New(source capability.NewsSource, st Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		source: source,
		store:  st,
		logger: logger.With("source", source.Name()),
	}
}

// RunOnce fetches the latest items and inserts the unseen ones as pending
// articles. Per-item errors are logged and skipped; only a fetch-wide error
// fails the iteration. It is the ingestor's runner.RunFunc.
func (i *Ingestor) RunOnce(ctx context.Context) runner.Outcome {
	start := time.Now()

	items, err := i.source.FetchLatest(ctx)
	if err != nil {
		return runner.Failed(fmt.Errorf("fetch latest: %w", err))
	}

	var inserted int
	for _, item := range items {
		if item.ID == "" {
			i.logger.Warn("skipping item with empty id", "title", item.Title)
			continue
		}
		if item.Source == "" {
			item.Source = i.source.Name()
		}
		// Missing or unparseable publish times become "now" at insert.
		ok, err := i.store.InsertArticle(ctx, item)
		if err != nil {
			i.logger.Error("failed to insert article",
				"external_id", item.ID,
				"error", err,
			)
			continue
		}
		if ok {
			inserted++
		}
	}

	i.logger.Info("news fetched",
		"items", len(items),
		"inserted", inserted,
		"duration", time.Since(start),
	)

	if inserted == 0 {
		return runner.Idle()
	}
	return runner.Worked()
}
