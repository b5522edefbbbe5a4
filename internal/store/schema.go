package store

import (
	"context"
	"fmt"
)

// schemaTemplate is the full DDL. The %d placeholders are the embedding
// dimension, fixed per deployment.
const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS articles (
    id            BIGSERIAL PRIMARY KEY,
    external_id   TEXT        NOT NULL,
    source        TEXT        NOT NULL,
    title         TEXT        NOT NULL,
    content       TEXT        NOT NULL DEFAULT '',
    summary       TEXT        NOT NULL DEFAULT '',
    url           TEXT        NOT NULL DEFAULT '',
    author        TEXT        NOT NULL DEFAULT '',
    published_at  TIMESTAMPTZ NOT NULL,
    tags          TEXT[]      NOT NULL DEFAULT '{}',
    metadata      JSONB       NOT NULL DEFAULT '{}',
    status        TEXT        NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'embedded', 'matched', 'validated', 'failed')),
    embedding     VECTOR(%d),
    error_message TEXT        NOT NULL DEFAULT '',
    fetched_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    embedded_at   TIMESTAMPTZ,
    matched_at    TIMESTAMPTZ,
    validated_at  TIMESTAMPTZ,
    UNIQUE (source, external_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_status_fetched
    ON articles (status, fetched_at);
CREATE INDEX IF NOT EXISTS idx_articles_status_embedded
    ON articles (status, embedded_at);

CREATE TABLE IF NOT EXISTS markets (
    id                   BIGSERIAL PRIMARY KEY,
    platform             TEXT        NOT NULL,
    event_ticker         TEXT        NOT NULL,
    series_ticker        TEXT        NOT NULL DEFAULT '',
    title                TEXT        NOT NULL,
    url                  TEXT        NOT NULL DEFAULT '',
    category             TEXT        NOT NULL DEFAULT '',
    end_date             TIMESTAMPTZ,
    is_active            BOOLEAN     NOT NULL DEFAULT TRUE,
    embedding            VECTOR(%d),
    embedding_updated_at TIMESTAMPTZ,
    last_synced_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (platform, event_ticker)
);

CREATE INDEX IF NOT EXISTS idx_markets_active ON markets (platform, is_active);
CREATE INDEX IF NOT EXISTS idx_markets_embedding
    ON markets USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS contracts (
    id              BIGSERIAL PRIMARY KEY,
    contract_ticker TEXT        NOT NULL UNIQUE,
    market_id       BIGINT      NOT NULL REFERENCES markets (id) ON DELETE CASCADE,
    title           TEXT        NOT NULL,
    yes_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
    no_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
    volume          DOUBLE PRECISION NOT NULL DEFAULT 0,
    liquidity       DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_active       BOOLEAN     NOT NULL DEFAULT TRUE,
    last_synced_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    metadata        JSONB       NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_contracts_market ON contracts (market_id, is_active);

CREATE TABLE IF NOT EXISTS news_market_matches (
    id                 BIGSERIAL PRIMARY KEY,
    article_id         BIGINT      NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
    market_id          BIGINT      NOT NULL REFERENCES markets (id) ON DELETE CASCADE,
    similarity         DOUBLE PRECISION NOT NULL,
    is_validated       BOOLEAN     NOT NULL DEFAULT FALSE,
    is_relevant        BOOLEAN,
    relevance_score    DOUBLE PRECISION,
    confidence         DOUBLE PRECISION,
    suggested_position TEXT
        CHECK (suggested_position IN ('buy', 'sell', 'hold')),
    reasoning          TEXT        NOT NULL DEFAULT '',
    validated_at       TIMESTAMPTZ,
    alert_sent         BOOLEAN     NOT NULL DEFAULT FALSE,
    alert_sent_at      TIMESTAMPTZ,
    UNIQUE (article_id, market_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_article
    ON news_market_matches (article_id, is_validated);
`

// Migrate applies the schema. Statements are idempotent; running Migrate on
// an up-to-date database is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(schemaTemplate, s.dim, s.dim)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("schema migrated", "embedding_dim", s.dim)
	return nil
}
