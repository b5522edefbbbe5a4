package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oddsline/newsflow/internal/model"
)

// MarketRef is a lightweight (id, natural key) projection used by the
// syncer's deactivation pass.
type MarketRef struct {
	ID          int64
	EventTicker string
}

// SearchResult is one hit from a vector similarity query.
type SearchResult struct {
	MarketID   int64
	Similarity float64
}

// GetMarketByKey looks a market up by its natural key. Returns nil when
// absent.
func (s *Store) GetMarketByKey(ctx context.Context, platform, eventTicker string) (*model.Market, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+marketColumns+`
		FROM markets
		WHERE platform = $1 AND event_ticker = $2
	`, platform, eventTicker)

	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMarketByID fetches one market. Returns nil when absent.
func (s *Store) GetMarketByID(ctx context.Context, id int64) (*model.Market, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+marketColumns+`
		FROM markets
		WHERE id = $1
	`, id)

	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMarket creates a new active market and returns its id.
func (s *Store) InsertMarket(ctx context.Context, m model.Market) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO markets (platform, event_ticker, series_ticker, title, url, category, end_date, is_active, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now())
		RETURNING id
	`, m.Platform, m.EventTicker, m.SeriesTicker, m.Title, m.URL, m.Category, m.EndDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert market: %w", err)
	}
	return id, nil
}

// UpdateMarketSynced rewrites the sync-owned columns, reactivates the market,
// and bumps last_synced_at.
func (s *Store) UpdateMarketSynced(ctx context.Context, id int64, title, url, category string, endDate *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE markets
		SET title = $2, url = $3, category = $4, end_date = $5,
		    is_active = TRUE, last_synced_at = now()
		WHERE id = $1
	`, id, title, url, category, endDate)
	if err != nil {
		return fmt.Errorf("update market: %w", err)
	}
	return nil
}

// TouchMarket reactivates an unchanged market and bumps last_synced_at.
func (s *Store) TouchMarket(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE markets SET is_active = TRUE, last_synced_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("touch market: %w", err)
	}
	return nil
}

// SetMarketEmbedding stores a fresh embedding for the market.
func (s *Store) SetMarketEmbedding(ctx context.Context, id int64, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE markets
		SET embedding = $2::vector, embedding_updated_at = now()
		WHERE id = $1
	`, id, EncodeVector(embedding))
	if err != nil {
		return fmt.Errorf("set market embedding: %w", err)
	}
	return nil
}

// MarketsMissingEmbedding returns up to limit active markets without an
// embedding.
func (s *Store) MarketsMissingEmbedding(ctx context.Context, limit int) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+marketColumns+`
		FROM markets
		WHERE is_active AND embedding IS NULL
		ORDER BY last_synced_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query markets missing embedding: %w", err)
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// ActiveMarketRefs lists the id and event ticker of every active market on a
// platform, for the syncer's deactivation pass.
func (s *Store) ActiveMarketRefs(ctx context.Context, platform string) ([]MarketRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_ticker FROM markets WHERE platform = $1 AND is_active
	`, platform)
	if err != nil {
		return nil, fmt.Errorf("query active market refs: %w", err)
	}
	defer rows.Close()

	var refs []MarketRef
	for rows.Next() {
		var ref MarketRef
		if err := rows.Scan(&ref.ID, &ref.EventTicker); err != nil {
			return nil, fmt.Errorf("scan market ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// DeactivateMarkets flips is_active off for the given ids, in batches to stay
// below the bound-parameter limit.
func (s *Store) DeactivateMarkets(ctx context.Context, ids []int64, batchSize int) (int64, error) {
	return s.deactivateByID(ctx, "markets", ids, batchSize)
}

// SearchMarkets runs the cosine top-k query: the topN active markets with a
// non-null embedding whose similarity (1 - cosine distance) clears
// minSimilarity, ranked most similar first.
func (s *Store) SearchMarkets(ctx context.Context, query []float32, topN int, minSimilarity float64, activeOnly bool) ([]SearchResult, error) {
	lit := EncodeVector(query)
	rows, err := s.pool.Query(ctx, `
		SELECT id, 1 - (embedding <=> $1::vector) AS similarity
		FROM markets
		WHERE embedding IS NOT NULL
		  AND (NOT $4 OR is_active)
		  AND 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector ASC
		LIMIT $3
	`, lit, minSimilarity, topN, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("search markets: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.MarketID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// deactivateByID batches UPDATE ... WHERE id = ANY($1) over an id list.
// Deactivation runs after all upserts in a sync cycle.
func (s *Store) deactivateByID(ctx context.Context, table string, ids []int64, batchSize int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if batchSize < 1 {
		batchSize = len(ids)
	}

	var total int64
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		ct, err := s.pool.Exec(ctx,
			`UPDATE `+table+` SET is_active = FALSE WHERE id = ANY($1)`,
			ids[start:end])
		if err != nil {
			return total, fmt.Errorf("deactivate %s batch: %w", table, err)
		}
		total += ct.RowsAffected()
	}
	return total, nil
}

const marketColumns = `
	id, platform, event_ticker, series_ticker, title, url, category, end_date,
	is_active, embedding::text, embedding_updated_at, last_synced_at
`

func scanMarket(row pgx.Row) (model.Market, error) {
	var (
		m         model.Market
		embedding *string
	)
	err := row.Scan(
		&m.ID, &m.Platform, &m.EventTicker, &m.SeriesTicker, &m.Title, &m.URL,
		&m.Category, &m.EndDate, &m.IsActive, &embedding,
		&m.EmbeddingUpdatedAt, &m.LastSyncedAt,
	)
	if err != nil {
		return model.Market{}, err
	}
	if embedding != nil {
		vec, err := DecodeVector(*embedding)
		if err != nil {
			return model.Market{}, err
		}
		m.Embedding = vec
	}
	return m, nil
}
