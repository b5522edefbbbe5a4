// Package config loads and validates newsflow configuration.
//
// Configuration is a YAML file with ${VAR} environment expansion. Defaults
// are applied after parsing; validation fails fast at startup with an
// aggregated error listing every offending setting.
package config

// Config is the root configuration for a newsflow instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Database  DBConfig        `yaml:"database"`
	News      NewsConfig      `yaml:"news"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Trading   TradingConfig   `yaml:"trading"`
	Health    HealthConfig    `yaml:"health"`
}

// InstanceConfig identifies this pipeline instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DBConfig holds PostgreSQL connection settings. The database must have the
// pgvector extension available.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// NewsConfig configures news ingestion.
type NewsConfig struct {
	Sources       []NewsSourceConfig `yaml:"sources"`
	MinDelay      Duration           `yaml:"min_delay"`
	MaxDelay      Duration           `yaml:"max_delay"`
	RetentionDays int                `yaml:"retention_days"`
}

// NewsSourceConfig selects one registered news source adapter.
type NewsSourceConfig struct {
	Name string `yaml:"name"` // Registered adapter name
	URL  string `yaml:"url"`  // Feed endpoint, adapter-specific
}

// PlatformsConfig configures market synchronization.
type PlatformsConfig struct {
	Enabled  []string `yaml:"enabled"` // Registered platform adapter names
	MinDelay Duration `yaml:"min_delay"`
	MaxDelay Duration `yaml:"max_delay"`

	Kalshi KalshiConfig `yaml:"kalshi"`
}

// KalshiConfig holds Kalshi REST API settings.
type KalshiConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider  string   `yaml:"provider"` // Registered provider name
	APIKey    string   `yaml:"api_key"`
	Model     string   `yaml:"model"`
	Dimension int      `yaml:"dimension"`
	Timeout   Duration `yaml:"timeout"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider    string   `yaml:"provider"` // Registered provider name
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	MaxTokens   int      `yaml:"max_tokens"`
	Timeout     Duration `yaml:"timeout"`
	MinInterval Duration `yaml:"min_interval"` // Minimum delay between requests
	MaxRetries  int      `yaml:"max_retries"`
}

// PipelineConfig tunes the three pipeline workers.
type PipelineConfig struct {
	EmbedBatchSize      int      `yaml:"embed_batch_size"`
	MatchBatchSize      int      `yaml:"match_batch_size"`
	ValidateBatchSize   int      `yaml:"validate_batch_size"`
	TopN                int      `yaml:"top_n"`
	MinSimilarity       float64  `yaml:"min_similarity"`
	MinConfidence       float64  `yaml:"min_confidence"`
	WorkerMinDelay      Duration `yaml:"worker_min_delay"`
	WorkerMaxDelay      Duration `yaml:"worker_max_delay"`
	MarketEmbedPerCycle int      `yaml:"market_embed_per_cycle"`
}

// AlertsConfig configures alert delivery.
type AlertsConfig struct {
	Sinks           []string `yaml:"sinks"` // Registered sink names
	MinConfidence   float64  `yaml:"min_confidence"`
	CooldownMinutes int      `yaml:"cooldown_minutes"`
	WebhookURL      string   `yaml:"webhook_url"`
	WebhookTimeout  Duration `yaml:"webhook_timeout"`
}

// TradingConfig controls order placement for validated matches.
type TradingConfig struct {
	Enabled bool `yaml:"enabled"`
	DryRun  bool `yaml:"dry_run"`
}

// HealthConfig configures the health endpoint.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
