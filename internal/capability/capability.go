// Package capability defines the narrow interfaces the pipeline core depends
// on. Concrete adapters (news feeds, market platforms, LLM and embedding
// providers, alert sinks) live elsewhere and are registered by name at
// program start; the core only ever sees these types.
package capability

import (
	"context"

	"github.com/oddsline/newsflow/internal/model"
)

// NewsSource fetches the latest items from one news feed.
// Item IDs must be stable and unique within the source.
type NewsSource interface {
	Name() string
	FetchLatest(ctx context.Context) ([]model.NewsItem, error)
}

// MarketPlatform exposes a prediction-market platform's universe and order
// entry. ListAll returns either grouped markets or flat contracts; the
// syncer adapts to whichever shape the platform fills in.
type MarketPlatform interface {
	Name() string
	ListAll(ctx context.Context) (model.Listing, error)
	GetContract(ctx context.Context, ticker string) (*model.ContractData, error)
	PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error)
}

// EmbeddingProvider turns a batch of texts into vectors of a fixed,
// per-deployment dimension. The returned slice has the same length as the
// input.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// LLMProvider generates a completion for a prompt. Implementations handle
// their own rate limiting and must not silently truncate.
type LLMProvider interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// AlertSink delivers an alert payload to an operator-facing channel.
type AlertSink interface {
	Name() string
	Send(ctx context.Context, alert model.Alert) error
}
