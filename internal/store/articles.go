package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oddsline/newsflow/internal/model"
)

// InsertArticle inserts a pending article for a news item. Returns false when
// an article with the same (source, external_id) already exists; duplicates
// inside a single fetch hit the same conflict and are ignored.
func (s *Store) InsertArticle(ctx context.Context, item model.NewsItem) (bool, error) {
	publishedAt := item.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(orEmpty(item.Metadata))
	if err != nil {
		return false, fmt.Errorf("marshal metadata: %w", err)
	}

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	ct, err := s.pool.Exec(ctx, `
		INSERT INTO articles (external_id, source, title, content, summary, url, author, published_at, tags, metadata, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending')
		ON CONFLICT (source, external_id) DO NOTHING
	`, item.ID, item.Source, item.Title, item.Content, item.Summary, item.URL, item.Author, publishedAt, tags, meta)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// ClaimPendingArticles returns up to limit pending articles, oldest first.
func (s *Store) ClaimPendingArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return s.queryArticles(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE status = 'pending'
		ORDER BY fetched_at ASC
		LIMIT $1
	`, limit)
}

// ClaimEmbeddedArticles returns up to limit embedded articles, oldest
// embedded_at first.
func (s *Store) ClaimEmbeddedArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return s.queryArticles(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE status = 'embedded'
		ORDER BY embedded_at ASC
		LIMIT $1
	`, limit)
}

// ClaimMatchedArticles returns up to limit matched articles that still have
// at least one unvalidated match.
func (s *Store) ClaimMatchedArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return s.queryArticles(ctx, `
		SELECT `+articleColumns+`
		FROM articles a
		WHERE a.status = 'matched'
		  AND EXISTS (
			SELECT 1 FROM news_market_matches m
			WHERE m.article_id = a.id AND NOT m.is_validated
		  )
		ORDER BY a.matched_at ASC
		LIMIT $1
	`, limit)
}

// SetArticleEmbedded stores the embedding and promotes the article in one
// atomic update.
func (s *Store) SetArticleEmbedded(ctx context.Context, id int64, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE articles
		SET embedding = $2::vector, status = 'embedded', embedded_at = now(), error_message = ''
		WHERE id = $1
	`, id, EncodeVector(embedding))
	if err != nil {
		return fmt.Errorf("set article embedded: %w", err)
	}
	return nil
}

// SetArticleMatched promotes the article past the matching stage. Applied
// even when zero matches were produced.
func (s *Store) SetArticleMatched(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE articles SET status = 'matched', matched_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("set article matched: %w", err)
	}
	return nil
}

// SetArticleValidated promotes the article to its terminal validated state.
func (s *Store) SetArticleValidated(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE articles SET status = 'validated', validated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("set article validated: %w", err)
	}
	return nil
}

// SetArticleFailed moves the article sideways to failed with a reason.
func (s *Store) SetArticleFailed(ctx context.Context, id int64, msg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE articles SET status = 'failed', error_message = $2 WHERE id = $1
	`, id, msg)
	if err != nil {
		return fmt.Errorf("set article failed: %w", err)
	}
	return nil
}

// FailArticles marks a whole batch failed with the same reason, used when an
// embedding provider call fails for every claimed article at once.
func (s *Store) FailArticles(ctx context.Context, ids []int64, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE articles SET status = 'failed', error_message = $2 WHERE id = ANY($1)
	`, ids, msg)
	if err != nil {
		return fmt.Errorf("fail articles: %w", err)
	}
	return nil
}

// DeleteArticlesBefore removes articles fetched before the cutoff. Matches
// cascade via the foreign key.
func (s *Store) DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	return ct.RowsAffected(), nil
}

const articleColumns = `
	id, external_id, source, title, content, summary, url, author,
	published_at, tags, metadata, status, embedding::text, error_message,
	fetched_at, embedded_at, matched_at, validated_at
`

func (s *Store) queryArticles(ctx context.Context, sql string, args ...any) ([]model.Article, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(row pgx.Row) (model.Article, error) {
	var (
		a         model.Article
		metaRaw   []byte
		embedding *string
	)
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Source, &a.Title, &a.Content, &a.Summary,
		&a.URL, &a.Author, &a.PublishedAt, &a.Tags, &metaRaw, &a.Status,
		&embedding, &a.ErrorMessage, &a.FetchedAt, &a.EmbeddedAt,
		&a.MatchedAt, &a.ValidatedAt,
	)
	if err != nil {
		return model.Article{}, fmt.Errorf("scan article: %w", err)
	}

	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &a.Metadata); err != nil {
			return model.Article{}, fmt.Errorf("unmarshal article metadata: %w", err)
		}
	}
	if embedding != nil {
		vec, err := DecodeVector(*embedding)
		if err != nil {
			return model.Article{}, err
		}
		a.Embedding = vec
	}
	return a, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
