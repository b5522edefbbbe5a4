// Package feed implements a news source over a JSON feed endpoint.
//
// The endpoint returns either a bare array of items or an object with an
// "items" array. Item IDs fall back to the URL, then to a hash of the title,
// so every item carries a stable dedup key.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsline/newsflow/internal/model"
)

// Source fetches the latest items from one JSON feed.
type Source struct {
	name   string
	url    string
	client *http.Client
	logger *slog.Logger
}

// New creates a feed source. The name becomes the article source and must be
// stable across restarts; changing it re-ingests the feed's history.
func New(name, url string, timeout time.Duration, logger *slog.Logger) *Source {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("source", name),
	}
}

func (s *Source) Name() string { return s.name }

// feedItem is one item as the feed serves it. Unknown fields are ignored.
type feedItem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Summary     string            `json:"summary"`
	URL         string            `json:"url"`
	Author      string            `json:"author"`
	PublishedAt string            `json:"publishedAt"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
}

// feedEnvelope is the object form of a feed reply.
type feedEnvelope struct {
	Items []feedItem `json:"items"`
}

// FetchLatest pulls the feed and converts its items. Items with no title are
// dropped; everything else is normalized and passed through.
func (s *Source) FetchLatest(ctx context.Context) ([]model.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	raws, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.NewsItem, 0, len(raws))
	for _, raw := range raws {
		if raw.Title == "" {
			continue
		}
		items = append(items, s.toNewsItem(raw))
	}

	s.logger.Debug("feed fetched", "items", len(items))
	return items, nil
}

// parseFeed accepts both a bare array and an {"items": [...]} envelope.
func parseFeed(body []byte) ([]feedItem, error) {
	var items []feedItem
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var envelope feedEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

func (s *Source) toNewsItem(raw feedItem) model.NewsItem {
	id := raw.ID
	if id == "" {
		id = raw.URL
	}
	if id == "" {
		sum := sha256.Sum256([]byte(raw.Title))
		id = hex.EncodeToString(sum[:16])
	}

	var publishedAt time.Time
	if raw.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.PublishedAt); err == nil {
			publishedAt = t.UTC()
		}
	}

	return model.NewsItem{
		ID:          id,
		Source:      s.name,
		Title:       raw.Title,
		Content:     raw.Content,
		Summary:     raw.Summary,
		URL:         raw.URL,
		Author:      raw.Author,
		PublishedAt: publishedAt,
		Tags:        raw.Tags,
		Metadata:    raw.Metadata,
	}
}
