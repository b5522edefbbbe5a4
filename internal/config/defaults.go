package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultNewsMinDelay   = Duration(1 * time.Second)
	DefaultNewsMaxDelay   = Duration(60 * time.Second)
	DefaultRetentionDays  = 7
	DefaultSyncMinDelay   = Duration(5 * time.Second)
	DefaultSyncMaxDelay   = Duration(300 * time.Second)
	DefaultWorkerMinDelay = Duration(1 * time.Second)
	DefaultWorkerMaxDelay = Duration(30 * time.Second)

	DefaultKalshiBaseURL = "https://api.elections.kalshi.com/trade-api/v2"
	DefaultKalshiTimeout = Duration(30 * time.Second)

	DefaultEmbedModel     = "gemini-embedding-001"
	DefaultEmbedDimension = 768
	DefaultEmbedTimeout   = Duration(30 * time.Second)

	DefaultLLMModel       = "claude-sonnet-4-20250514"
	DefaultLLMMaxTokens   = 4096
	DefaultLLMTimeout     = Duration(60 * time.Second)
	DefaultLLMMinInterval = Duration(500 * time.Millisecond)
	DefaultLLMMaxRetries  = 3

	DefaultEmbedBatchSize      = 10
	DefaultMatchBatchSize      = 5
	DefaultValidateBatchSize   = 3
	DefaultTopN                = 20
	DefaultMinSimilarity       = 0.3
	DefaultMinConfidence       = 0.7
	DefaultMarketEmbedPerCycle = 200

	DefaultCooldownMinutes = 60
	DefaultWebhookTimeout  = Duration(10 * time.Second)

	DefaultHealthPort = 8080
	DefaultHealthPath = "/health"
)

func (c *Config) applyDefaults() {
	applyDBDefaults(&c.Database)

	// News defaults
	if c.News.MinDelay == 0 {
		c.News.MinDelay = DefaultNewsMinDelay
	}
	if c.News.MaxDelay == 0 {
		c.News.MaxDelay = DefaultNewsMaxDelay
	}
	if c.News.RetentionDays == 0 {
		c.News.RetentionDays = DefaultRetentionDays
	}

	// Platform defaults
	if c.Platforms.MinDelay == 0 {
		c.Platforms.MinDelay = DefaultSyncMinDelay
	}
	if c.Platforms.MaxDelay == 0 {
		c.Platforms.MaxDelay = DefaultSyncMaxDelay
	}
	if c.Platforms.Kalshi.BaseURL == "" {
		c.Platforms.Kalshi.BaseURL = DefaultKalshiBaseURL
	}
	if c.Platforms.Kalshi.Timeout == 0 {
		c.Platforms.Kalshi.Timeout = DefaultKalshiTimeout
	}

	// Embedding defaults
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = DefaultEmbedModel
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = DefaultEmbedDimension
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = DefaultEmbedTimeout
	}

	// LLM defaults
	if c.LLM.Provider == "" {
		c.LLM.Provider = "claude"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultLLMModel
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = DefaultLLMTimeout
	}
	if c.LLM.MinInterval == 0 {
		c.LLM.MinInterval = DefaultLLMMinInterval
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = DefaultLLMMaxRetries
	}

	// Pipeline defaults
	if c.Pipeline.EmbedBatchSize == 0 {
		c.Pipeline.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.Pipeline.MatchBatchSize == 0 {
		c.Pipeline.MatchBatchSize = DefaultMatchBatchSize
	}
	if c.Pipeline.ValidateBatchSize == 0 {
		c.Pipeline.ValidateBatchSize = DefaultValidateBatchSize
	}
	if c.Pipeline.TopN == 0 {
		c.Pipeline.TopN = DefaultTopN
	}
	if c.Pipeline.MinSimilarity == 0 {
		c.Pipeline.MinSimilarity = DefaultMinSimilarity
	}
	if c.Pipeline.MinConfidence == 0 {
		c.Pipeline.MinConfidence = DefaultMinConfidence
	}
	if c.Pipeline.WorkerMinDelay == 0 {
		c.Pipeline.WorkerMinDelay = DefaultWorkerMinDelay
	}
	if c.Pipeline.WorkerMaxDelay == 0 {
		c.Pipeline.WorkerMaxDelay = DefaultWorkerMaxDelay
	}
	if c.Pipeline.MarketEmbedPerCycle == 0 {
		c.Pipeline.MarketEmbedPerCycle = DefaultMarketEmbedPerCycle
	}

	// Alert defaults
	if len(c.Alerts.Sinks) == 0 {
		c.Alerts.Sinks = []string{"log"}
	}
	if c.Alerts.MinConfidence == 0 {
		c.Alerts.MinConfidence = DefaultMinConfidence
	}
	if c.Alerts.CooldownMinutes == 0 {
		c.Alerts.CooldownMinutes = DefaultCooldownMinutes
	}
	if c.Alerts.WebhookTimeout == 0 {
		c.Alerts.WebhookTimeout = DefaultWebhookTimeout
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
