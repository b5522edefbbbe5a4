package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
// Every problem is reported; the caller gets one aggregated error.
func (c *Config) Validate() error {
	var errs []error

	if c.Instance.ID == "" {
		errs = append(errs, errors.New("instance.id is required"))
	}

	errs = append(errs, c.Database.validate("database")...)

	if len(c.News.Sources) == 0 {
		errs = append(errs, errors.New("news.sources must list at least one source"))
	}
	for i, src := range c.News.Sources {
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("news.sources[%d].name is required", i))
		}
	}
	if c.News.RetentionDays < 1 {
		errs = append(errs, errors.New("news.retention_days must be >= 1"))
	}

	if len(c.Platforms.Enabled) == 0 {
		errs = append(errs, errors.New("platforms.enabled must list at least one platform"))
	}

	if c.Embedding.APIKey == "" {
		errs = append(errs, errors.New("embedding.api_key is required"))
	}
	if c.Embedding.Dimension < 1 {
		errs = append(errs, errors.New("embedding.dimension must be >= 1"))
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries must be >= 0"))
	}

	if c.Pipeline.EmbedBatchSize < 1 {
		errs = append(errs, errors.New("pipeline.embed_batch_size must be >= 1"))
	}
	if c.Pipeline.MatchBatchSize < 1 {
		errs = append(errs, errors.New("pipeline.match_batch_size must be >= 1"))
	}
	if c.Pipeline.ValidateBatchSize < 1 {
		errs = append(errs, errors.New("pipeline.validate_batch_size must be >= 1"))
	}
	if c.Pipeline.TopN < 1 {
		errs = append(errs, errors.New("pipeline.top_n must be >= 1"))
	}
	if c.Pipeline.MinSimilarity < 0 || c.Pipeline.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("pipeline.min_similarity must be in [0, 1], got %v", c.Pipeline.MinSimilarity))
	}
	if c.Pipeline.MinConfidence < 0 || c.Pipeline.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("pipeline.min_confidence must be in [0, 1], got %v", c.Pipeline.MinConfidence))
	}

	if c.Alerts.MinConfidence < 0 || c.Alerts.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("alerts.min_confidence must be in [0, 1], got %v", c.Alerts.MinConfidence))
	}
	if c.Alerts.CooldownMinutes < 0 {
		errs = append(errs, errors.New("alerts.cooldown_minutes must be >= 0"))
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		errs = append(errs, fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port))
	}

	return errors.Join(errs...)
}

func (db *DBConfig) validate(prefix string) []error {
	var errs []error
	if db.Host == "" {
		errs = append(errs, fmt.Errorf("%s.host is required", prefix))
	}
	if db.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	}
	if db.User == "" {
		errs = append(errs, fmt.Errorf("%s.user is required", prefix))
	}
	if db.Password == "" {
		errs = append(errs, fmt.Errorf("%s.password is required", prefix))
	}
	if db.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("%s.max_conns must be >= 1", prefix))
	}
	if db.MinConns < 0 {
		errs = append(errs, fmt.Errorf("%s.min_conns must be >= 0", prefix))
	}
	if db.MinConns > db.MaxConns {
		errs = append(errs, fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns))
	}
	return errs
}
