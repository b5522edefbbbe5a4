package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/model"
)

const insightSystemPrompt = `You are a financial news analyst. Respond with a single JSON object and nothing else.`

const insightPromptTemplate = `Analyze this news article for prediction-market trading signals.

Title: %s

%s

Return a JSON object with exactly these fields:
{
  "entities": ["named people, organizations, places"],
  "events": ["concrete events described or predicted"],
  "predictions": ["explicit or implied predictions"],
  "sentiment": "positive" | "negative" | "neutral",
  "suggestedActions": ["actionable takeaways"],
  "relevanceScore": 0.0,
  "summary": "one-sentence summary"
}`

// positiveWords and negativeWords back the keyword sentiment heuristic used
// when the LLM reply cannot be parsed.
var positiveWords = []string{
	"gain", "gains", "rise", "rises", "surge", "rally", "growth", "boost",
	"win", "wins", "approve", "approved", "cut", "beat", "beats", "record",
	"strong", "success", "up",
}

var negativeWords = []string{
	"loss", "losses", "fall", "falls", "drop", "drops", "crash", "decline",
	"lose", "loses", "reject", "rejected", "hike", "miss", "misses", "weak",
	"failure", "down", "fear", "crisis",
}

// rawInsight mirrors the JSON shape the LLM is asked for.
type rawInsight struct {
	Entities         []string `json:"entities"`
	Events           []string `json:"events"`
	Predictions      []string `json:"predictions"`
	Sentiment        string   `json:"sentiment"`
	SuggestedActions []string `json:"suggestedActions"`
	RelevanceScore   float64  `json:"relevanceScore"`
	Summary          string   `json:"summary"`
}

// parseArticleInsight asks the LLM for a structured reading of the article.
// Parse failures fall back to a keyword sentiment heuristic with empty
// structured lists; the pipeline never stalls on a malformed reply.
func parseArticleInsight(ctx context.Context, llm capability.LLMProvider, a model.Article) model.Insight {
	body := a.Summary
	if body == "" {
		body = a.Content
		if len(body) > 2000 {
			body = body[:2000]
		}
	}

	prompt := fmt.Sprintf(insightPromptTemplate, a.Title, body)
	reply, err := llm.Complete(ctx, prompt, insightSystemPrompt)
	if err != nil {
		return fallbackInsight(a)
	}

	obj := extractJSONObject(reply)
	if obj == "" {
		return fallbackInsight(a)
	}

	var raw rawInsight
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return fallbackInsight(a)
	}

	sentiment := strings.ToLower(strings.TrimSpace(raw.Sentiment))
	switch sentiment {
	case "positive", "negative", "neutral":
	default:
		sentiment = keywordSentiment(a.Title + " " + body)
	}

	return model.Insight{
		Entities:         orEmptyList(raw.Entities),
		Events:           orEmptyList(raw.Events),
		Predictions:      orEmptyList(raw.Predictions),
		Sentiment:        sentiment,
		SuggestedActions: orEmptyList(raw.SuggestedActions),
		RelevanceScore:   clamp01(raw.RelevanceScore),
		Summary:          raw.Summary,
	}
}

// fallbackInsight is the keyword-only reading used when the LLM reply is
// unusable.
func fallbackInsight(a model.Article) model.Insight {
	text := a.Title + " " + a.Summary
	return model.Insight{
		Entities:         []string{},
		Events:           []string{},
		Predictions:      []string{},
		Sentiment:        keywordSentiment(text),
		SuggestedActions: []string{},
		RelevanceScore:   0,
		Summary:          a.Title,
	}
}

// keywordSentiment counts positive and negative word hits.
func keywordSentiment(text string) string {
	lower := strings.ToLower(text)

	var pos, neg int
	for _, w := range positiveWords {
		pos += countWord(lower, w)
	}
	for _, w := range negativeWords {
		neg += countWord(lower, w)
	}

	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// countWord counts whole-word occurrences of w in lower-cased text.
func countWord(text, w string) int {
	var n int
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if field == w {
			n++
		}
	}
	return n
}

func orEmptyList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
