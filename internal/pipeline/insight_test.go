package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/oddsline/newsflow/internal/model"
)

// fakeLLM replies with canned strings in order, or a fixed error.
type fakeLLM struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no canned reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func TestParseArticleInsight(t *testing.T) {
	llm := &fakeLLM{replies: []string{`Here is my analysis:
{
  "entities": ["Federal Reserve", "Jerome Powell"],
  "events": ["rate cut announced"],
  "predictions": ["further cuts in Q2"],
  "sentiment": "POSITIVE",
  "suggestedActions": ["watch FOMC minutes"],
  "relevanceScore": 1.7,
  "summary": "Fed cuts rates."
}`}}

	insight := parseArticleInsight(context.Background(), llm, model.Article{
		ID:    1,
		Title: "Fed cuts rates by 25bps",
	})

	if len(insight.Entities) != 2 {
		t.Errorf("Entities = %v, want 2", insight.Entities)
	}
	if insight.Sentiment != "positive" {
		t.Errorf("Sentiment = %q, want %q (normalized)", insight.Sentiment, "positive")
	}
	if insight.RelevanceScore != 1 {
		t.Errorf("RelevanceScore = %v, want clamped to 1", insight.RelevanceScore)
	}
	if insight.Summary != "Fed cuts rates." {
		t.Errorf("Summary = %q", insight.Summary)
	}
}

func TestParseArticleInsightFallsBackOnError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("api down")}

	insight := parseArticleInsight(context.Background(), llm, model.Article{
		Title:   "Markets surge on strong earnings",
		Summary: "Stocks rally as tech earnings beat estimates",
	})

	if insight.Sentiment != "positive" {
		t.Errorf("Sentiment = %q, want keyword fallback %q", insight.Sentiment, "positive")
	}
	if insight.Entities == nil || insight.Events == nil {
		t.Error("fallback insight must have empty, non-nil lists")
	}
	if insight.RelevanceScore != 0 {
		t.Errorf("RelevanceScore = %v, want 0", insight.RelevanceScore)
	}
}

func TestParseArticleInsightFallsBackOnGarbage(t *testing.T) {
	llm := &fakeLLM{replies: []string{"I cannot analyze this article."}}

	insight := parseArticleInsight(context.Background(), llm, model.Article{
		Title: "Company reports record losses amid crisis",
	})

	if insight.Sentiment != "negative" {
		t.Errorf("Sentiment = %q, want keyword fallback %q", insight.Sentiment, "negative")
	}
	if insight.Summary == "" {
		t.Error("fallback summary should carry the title")
	}
}

func TestParseArticleInsightBadSentimentUsesKeywords(t *testing.T) {
	llm := &fakeLLM{replies: []string{`{"entities":[],"events":[],"predictions":[],"sentiment":"bullish","suggestedActions":[],"relevanceScore":0.5,"summary":"x"}`}}

	insight := parseArticleInsight(context.Background(), llm, model.Article{
		Title: "Stocks fall and crash fears weigh on the decline",
	})

	if insight.Sentiment != "negative" {
		t.Errorf("Sentiment = %q, want keyword-derived %q", insight.Sentiment, "negative")
	}
}

func TestKeywordSentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"positive", "Markets surge and rally on strong growth", "positive"},
		{"negative", "Stocks crash as losses mount and fears grow", "negative"},
		{"neutral", "The committee met on Tuesday", "neutral"},
		{"tie", "gains offset by losses", "neutral"},
		{"whole words only", "the downtown upswing", "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keywordSentiment(tt.text); got != tt.want {
				t.Errorf("keywordSentiment(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
