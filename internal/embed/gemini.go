// Package embed provides embedding providers backing semantic matching.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini embedding provider.
type GeminiConfig struct {
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// Gemini implements embedding over the Gemini API. Every vector it returns
// has exactly the configured dimension; a mismatch is an error, never
// silently truncated.
type Gemini struct {
	cfg    GeminiConfig
	client *genai.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini embedding provider.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Gemini{
		cfg:    cfg,
		client: client,
		logger: logger.With("provider", "gemini"),
	}, nil
}

// Dimension returns the configured output dimensionality.
func (g *Gemini) Dimension() int { return g.cfg.Dimension }

// Embed returns one vector per input text, in order. Empty texts produce
// empty vectors without an API call.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		if text == "" {
			vectors[i] = []float32{}
			continue
		}

		vec, err := g.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

func (g *Gemini) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	outputDim := int32(g.cfg.Dimension)
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := g.client.Models.EmbedContent(reqCtx, g.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, config)
	if err != nil {
		return nil, err
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vec := result.Embeddings[0].Values
	if len(vec) != g.cfg.Dimension {
		return nil, fmt.Errorf("embedding dimension %d, expected %d", len(vec), g.cfg.Dimension)
	}
	return vec, nil
}
