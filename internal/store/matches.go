package store

import (
	"context"
	"fmt"

	"github.com/oddsline/newsflow/internal/model"
)

// InsertMatch inserts one (article, market) match row. Duplicate pairs are
// conflict-ignored: concurrent matchers over disjoint articles cannot double
// insert, and re-matching an article is idempotent.
func (s *Store) InsertMatch(ctx context.Context, articleID, marketID int64, similarity float64) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO news_market_matches (article_id, market_id, similarity)
		VALUES ($1, $2, $3)
		ON CONFLICT (article_id, market_id) DO NOTHING
	`, articleID, marketID, similarity)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UnvalidatedMatches returns up to limit unvalidated matches for the article,
// highest similarity first.
func (s *Store) UnvalidatedMatches(ctx context.Context, articleID int64, limit int) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, article_id, market_id, similarity,
		       is_validated, COALESCE(is_relevant, FALSE),
		       COALESCE(relevance_score, 0), COALESCE(confidence, 0),
		       COALESCE(suggested_position, ''), reasoning, validated_at,
		       alert_sent, alert_sent_at
		FROM news_market_matches
		WHERE article_id = $1 AND NOT is_validated
		ORDER BY similarity DESC
		LIMIT $2
	`, articleID, limit)
	if err != nil {
		return nil, fmt.Errorf("query unvalidated matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		err := rows.Scan(
			&m.ID, &m.ArticleID, &m.MarketID, &m.Similarity,
			&m.IsValidated, &m.IsRelevant, &m.RelevanceScore, &m.Confidence,
			&m.SuggestedPosition, &m.Reasoning, &m.ValidatedAt,
			&m.AlertSent, &m.AlertSentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// CountUnvalidatedMatches reports how many matches the article still has
// awaiting validation.
func (s *Store) CountUnvalidatedMatches(ctx context.Context, articleID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM news_market_matches
		WHERE article_id = $1 AND NOT is_validated
	`, articleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unvalidated matches: %w", err)
	}
	return n, nil
}

// SetMatchValidation writes the LLM-derived columns and flips is_validated in
// one atomic update.
func (s *Store) SetMatchValidation(ctx context.Context, matchID int64, isRelevant bool, relevanceScore, confidence float64, position model.Position, reasoning string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE news_market_matches
		SET is_validated = TRUE, is_relevant = $2, relevance_score = $3,
		    confidence = $4, suggested_position = $5, reasoning = $6,
		    validated_at = now()
		WHERE id = $1
	`, matchID, isRelevant, relevanceScore, confidence, string(position), reasoning)
	if err != nil {
		return fmt.Errorf("set match validation: %w", err)
	}
	return nil
}

// MarkAlertSent records a successful alert delivery for the match.
func (s *Store) MarkAlertSent(ctx context.Context, matchID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE news_market_matches
		SET alert_sent = TRUE, alert_sent_at = now()
		WHERE id = $1
	`, matchID)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	return nil
}
