// Package store provides durable state for the pipeline on PostgreSQL with
// the pgvector extension.
//
// Tables: articles, markets, contracts, news_market_matches. Embedding
// columns use the native vector type with a cosine index. Every article
// status transition is a single atomic UPDATE carrying its timestamp, so
// workers are idempotent re-readers of the status column and no separate
// in-progress flag exists.
package store
