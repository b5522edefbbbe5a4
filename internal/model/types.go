package model

import "time"

// -----------------------------------------------------------------------------
// Article
// -----------------------------------------------------------------------------

// ArticleStatus tracks an article's position in the processing pipeline.
type ArticleStatus string

const (
	StatusPending   ArticleStatus = "pending"
	StatusEmbedded  ArticleStatus = "embedded"
	StatusMatched   ArticleStatus = "matched"
	StatusValidated ArticleStatus = "validated"
	StatusFailed    ArticleStatus = "failed"
)

// Article is a news item moving through the pipeline.
// Status progresses pending -> embedded -> matched -> validated, or sideways
// to failed. The embedding is non-nil exactly when status >= embedded.
type Article struct {
	ID          int64             // Surrogate primary key
	ExternalID  string            // Source-native ID, unique within Source
	Source      string            // News source name
	Title       string            // Headline
	Content     string            // Full body, may be empty
	Summary     string            // Source-provided summary, may be empty
	URL         string            // Canonical link
	Author      string            // May be empty
	PublishedAt time.Time         // Source publish time (UTC)
	Tags        []string          // Ordered tag list
	Metadata    map[string]string // Opaque source metadata

	Status       ArticleStatus
	Embedding    []float32 // nil until embedded
	ErrorMessage string    // Set when Status = failed

	FetchedAt   time.Time // Row creation time
	EmbeddedAt  *time.Time
	MatchedAt   *time.Time
	ValidatedAt *time.Time
}

// -----------------------------------------------------------------------------
// Market & Contract
// -----------------------------------------------------------------------------

// Market is a prediction market grouping one or more contracts.
// (Platform, EventTicker) is the natural key.
type Market struct {
	ID           int64
	Platform     string // Platform name, namespaces all tickers
	EventTicker  string // Platform-native event identifier
	SeriesTicker string // Optional series grouping
	Title        string // Derived at sync time from the contract group
	URL          string
	Category     string
	EndDate      *time.Time
	IsActive     bool // false iff absent from the platform's last full listing

	Embedding          []float32
	EmbeddingUpdatedAt *time.Time
	LastSyncedAt       time.Time
}

// Contract is a single yes/no outcome with live prices on a market.
// Prices are probabilities in [0, 1]. Platform is inherited from the
// parent market and never stored redundantly.
type Contract struct {
	ID             int64
	ContractTicker string // Unique across platforms
	MarketID       int64
	Title          string
	YesPrice       float64
	NoPrice        float64
	Volume         float64
	Liquidity      float64
	IsActive       bool
	LastSyncedAt   time.Time
	Metadata       map[string]string
}

// -----------------------------------------------------------------------------
// Match
// -----------------------------------------------------------------------------

// Position is the LLM-suggested trading action for a validated match.
type Position string

const (
	PositionBuy  Position = "buy"
	PositionSell Position = "sell"
	PositionHold Position = "hold"
)

// Match links an article to a semantically similar market.
// (ArticleID, MarketID) is unique. The LLM-derived fields are populated
// once IsValidated is true.
type Match struct {
	ID         int64
	ArticleID  int64
	MarketID   int64
	Similarity float64 // Cosine-derived, in [0, 1]

	IsValidated       bool
	IsRelevant        bool
	RelevanceScore    float64
	Confidence        float64
	SuggestedPosition Position
	Reasoning         string
	ValidatedAt       *time.Time

	AlertSent   bool
	AlertSentAt *time.Time
}

// -----------------------------------------------------------------------------
// Capability DTOs
// -----------------------------------------------------------------------------

// NewsItem is a raw item returned by a news source.
type NewsItem struct {
	ID          string
	Source      string
	Title       string
	Content     string
	Summary     string
	URL         string
	Author      string
	PublishedAt time.Time
	Tags        []string
	Metadata    map[string]string
}

// ContractData is a flat contract as listed by a platform, before grouping.
type ContractData struct {
	ContractID string // Platform-native ticker
	Title      string
	YesPrice   float64
	NoPrice    float64
	Volume     float64
	Liquidity  float64
	URL        string
	Category   string
	EndDate    *time.Time
	Metadata   map[string]string // May carry eventTicker, marketTitle, seriesTicker
}

// MarketData is a pre-grouped market as listed by a platform.
type MarketData struct {
	EventTicker  string
	SeriesTicker string
	Title        string
	URL          string
	Category     string
	EndDate      *time.Time
	Contracts    []ContractData
}

// Listing is a platform's complete market universe. Platforms return either
// grouped markets or flat contracts; the syncer adapts to whichever is set.
type Listing struct {
	Markets   []MarketData
	Contracts []ContractData
}

// OrderRequest describes an order to place on a platform.
type OrderRequest struct {
	ContractTicker string
	Side           string // "yes" or "no"
	Quantity       int
	Type           string // "limit" or "market"
	LimitPrice     float64
}

// OrderResult is a platform's acknowledgement of a placed order.
type OrderResult struct {
	OrderID   string
	Status    string
	FilledQty int
	AvgPrice  float64
	Timestamp time.Time
}

// Alert is the payload delivered to alert sinks for a strong match.
type Alert struct {
	NewsTitle     string
	NewsURL       string
	MarketTitle   string
	MarketURL     string
	ContractTitle string
	Position      Position // buy or sell, never hold
	Confidence    float64
	CurrentPrice  float64 // Yes price for buy, no price for sell
	Reasoning     string
	Timestamp     time.Time
}

// -----------------------------------------------------------------------------
// LLM analysis types
// -----------------------------------------------------------------------------

// Insight is the structured reading of an article produced by the LLM.
// Numeric fields are clamped to their stated ranges at the parse boundary.
type Insight struct {
	Entities         []string
	Events           []string
	Predictions      []string
	Sentiment        string // positive, negative, or neutral
	SuggestedActions []string
	RelevanceScore   float64 // [0, 1]
	Summary          string
}

// ContractValidation is the LLM's judgement of one contract against an article.
type ContractValidation struct {
	ContractID        string
	IsRelevant        bool
	RelevanceScore    float64 // [0, 1]
	MatchedEntities   []string
	MatchedEvents     []string
	Reasoning         string
	SuggestedPosition Position
	Confidence        float64 // [0, 1]
	Risks             []string
	Opportunities     []string
}
