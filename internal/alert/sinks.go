package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsline/newsflow/internal/model"
)

// LogSink writes alerts to the structured log. Always available; the default
// sink when nothing else is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, a model.Alert) error {
	s.logger.Info("TRADING ALERT",
		"news_title", a.NewsTitle,
		"news_url", a.NewsURL,
		"market", a.MarketTitle,
		"market_url", a.MarketURL,
		"contract", a.ContractTitle,
		"position", a.Position,
		"confidence", a.Confidence,
		"current_price", a.CurrentPrice,
		"reasoning", a.Reasoning,
	)
	return nil
}

// WebhookSink POSTs alerts as JSON to a configured URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a WebhookSink posting to url.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// webhookPayload is the wire shape posted to the webhook endpoint.
type webhookPayload struct {
	NewsTitle     string    `json:"newsTitle"`
	NewsURL       string    `json:"newsUrl"`
	MarketTitle   string    `json:"marketTitle"`
	MarketURL     string    `json:"marketUrl"`
	ContractTitle string    `json:"contractTitle"`
	Position      string    `json:"position"`
	Confidence    float64   `json:"confidence"`
	CurrentPrice  float64   `json:"currentPrice"`
	Reasoning     string    `json:"reasoning"`
	Timestamp     time.Time `json:"timestamp"`
}

func (s *WebhookSink) Send(ctx context.Context, a model.Alert) error {
	payload := webhookPayload{
		NewsTitle:     a.NewsTitle,
		NewsURL:       a.NewsURL,
		MarketTitle:   a.MarketTitle,
		MarketURL:     a.MarketURL,
		ContractTitle: a.ContractTitle,
		Position:      string(a.Position),
		Confidence:    a.Confidence,
		CurrentPrice:  a.CurrentPrice,
		Reasoning:     a.Reasoning,
		Timestamp:     a.Timestamp,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
