// Package llm provides LLM completion providers for insight extraction and
// match validation.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// ClaudeConfig configures the Claude provider.
type ClaudeConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	MinInterval time.Duration // Minimum spacing between requests
	MaxRetries  int           // Retries on rate-limit responses
}

// Claude implements completion over the Anthropic Messages API. Requests are
// spaced by a rate limiter; 429s are retried with a growing wait.
type Claude struct {
	cfg     ClaudeConfig
	client  anthropic.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClaude creates a Claude provider.
func NewClaude(cfg ClaudeConfig, logger *slog.Logger) (*Claude, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &Claude{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:  logger.With("provider", "claude"),
	}, nil
}

// Complete sends one prompt and returns the concatenated text blocks of the
// reply. Rate-limit responses are retried up to MaxRetries times.
func (c *Claude) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		resp, err := c.client.Messages.New(reqCtx, params)
		cancel()

		if err != nil {
			lastErr = err
			if !isRateLimited(err) || attempt == c.cfg.MaxRetries {
				return "", fmt.Errorf("claude completion: %w", err)
			}
			wait := retryWait(attempt)
			c.logger.Warn("rate limited, retrying",
				"attempt", attempt+1,
				"wait", wait,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		var b strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if b.Len() == 0 {
			return "", fmt.Errorf("claude completion: empty reply")
		}
		return b.String(), nil
	}

	return "", fmt.Errorf("claude completion: %w", lastErr)
}

// isRateLimited matches the SDK's 429 error message.
func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}

// retryWait grows the wait between rate-limit retries.
func retryWait(attempt int) time.Duration {
	wait := 5 * time.Second << attempt
	if wait > time.Minute {
		wait = time.Minute
	}
	return wait
}
