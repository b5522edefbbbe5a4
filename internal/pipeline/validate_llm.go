package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oddsline/newsflow/internal/model"
)

const validationSystemPrompt = `You are a prediction-market analyst. Respond with a single JSON array and nothing else.`

// rawValidation mirrors the JSON object the LLM is asked to return per
// contract. Unknown or malformed fields are replaced with conservative
// defaults at this boundary, never propagated raw.
type rawValidation struct {
	ContractID        string   `json:"contractId"`
	IsRelevant        bool     `json:"isRelevant"`
	RelevanceScore    float64  `json:"relevanceScore"`
	MatchedEntities   []string `json:"matchedEntities"`
	MatchedEvents     []string `json:"matchedEvents"`
	Reasoning         string   `json:"reasoning"`
	SuggestedPosition string   `json:"suggestedPosition"`
	Confidence        float64  `json:"confidence"`
	Risks             []string `json:"risks"`
	Opportunities     []string `json:"opportunities"`
}

// validateCandidates scores the candidates against the article, chunking the
// LLM request at validationChunkSize contracts. A failed chunk falls back to
// per-contract validation; a failed contract falls back to keyword matching.
// The returned map is keyed by contract ticker and may be missing entries;
// the caller synthesizes defaults for those.
func (v *Validator) validateCandidates(ctx context.Context, a model.Article, insight model.Insight, candidates []candidate) map[string]model.ContractValidation {
	withContract := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.contract != nil && c.market != nil {
			withContract = append(withContract, c)
		}
	}

	results := make(map[string]model.ContractValidation, len(withContract))

	for start := 0; start < len(withContract); start += validationChunkSize {
		end := min(start+validationChunkSize, len(withContract))
		chunk := withContract[start:end]

		chunkResults, err := v.validateChunk(ctx, a, insight, chunk)
		if err != nil {
			v.logger.Warn("chunk validation failed, validating per contract",
				"article_id", a.ID,
				"chunk_size", len(chunk),
				"error", err,
			)
			for _, c := range chunk {
				results[c.contract.ContractTicker] = v.validateSingle(ctx, a, insight, c)
			}
			continue
		}
		for ticker, val := range chunkResults {
			results[ticker] = val
		}
	}

	return results
}

// validateChunk sends one batched validation request and parses the reply.
func (v *Validator) validateChunk(ctx context.Context, a model.Article, insight model.Insight, chunk []candidate) (map[string]model.ContractValidation, error) {
	prompt := buildValidationPrompt(a, insight, chunk)

	reply, err := v.llm.Complete(ctx, prompt, validationSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("validation request: %w", err)
	}

	arr := extractJSONArray(reply)
	if arr == "" {
		// Not an array: no results; every contract gets a synthesized
		// default from the caller.
		v.logger.Warn("validation reply contained no JSON array", "article_id", a.ID)
		return map[string]model.ContractValidation{}, nil
	}

	var raws []rawValidation
	if err := json.Unmarshal([]byte(arr), &raws); err != nil {
		v.logger.Warn("validation reply array unparseable", "article_id", a.ID, "error", err)
		return map[string]model.ContractValidation{}, nil
	}

	results := make(map[string]model.ContractValidation, len(raws))
	for _, raw := range raws {
		if raw.ContractID == "" {
			continue
		}
		results[raw.ContractID] = normalizeValidation(raw)
	}
	return results, nil
}

// validateSingle validates one contract with its own LLM call, falling back
// to keyword matching when that fails too.
func (v *Validator) validateSingle(ctx context.Context, a model.Article, insight model.Insight, c candidate) model.ContractValidation {
	prompt := buildValidationPrompt(a, insight, []candidate{c})

	reply, err := v.llm.Complete(ctx, prompt, validationSystemPrompt)
	if err != nil {
		v.logger.Warn("per-contract validation failed, using keyword match",
			"contract", c.contract.ContractTicker,
			"error", err,
		)
		return keywordValidation(insight, *c.contract)
	}

	arr := extractJSONArray(reply)
	if arr != "" {
		var raws []rawValidation
		if err := json.Unmarshal([]byte(arr), &raws); err == nil && len(raws) > 0 {
			return normalizeValidation(raws[0])
		}
	}

	// A single object instead of a one-element array is accepted too.
	if obj := extractJSONObject(reply); obj != "" {
		var raw rawValidation
		if err := json.Unmarshal([]byte(obj), &raw); err == nil {
			return normalizeValidation(raw)
		}
	}

	return keywordValidation(insight, *c.contract)
}

// normalizeValidation converts a raw LLM object into a sum-typed validation
// with every field confined to its stated range.
func normalizeValidation(raw rawValidation) model.ContractValidation {
	position := model.Position(strings.ToLower(strings.TrimSpace(raw.SuggestedPosition)))
	switch position {
	case model.PositionBuy, model.PositionSell, model.PositionHold:
	default:
		position = model.PositionHold
	}

	return model.ContractValidation{
		ContractID:        raw.ContractID,
		IsRelevant:        raw.IsRelevant,
		RelevanceScore:    clamp01(raw.RelevanceScore),
		MatchedEntities:   orEmptyList(raw.MatchedEntities),
		MatchedEvents:     orEmptyList(raw.MatchedEvents),
		Reasoning:         raw.Reasoning,
		SuggestedPosition: position,
		Confidence:        clamp01(raw.Confidence),
		Risks:             orEmptyList(raw.Risks),
		Opportunities:     orEmptyList(raw.Opportunities),
	}
}

// keywordValidation is the last-resort scorer: count insight entity names and
// event words of four or more characters appearing in the contract title.
// Confidence stays below the alert threshold; keyword hits flag relevance but
// never trade.
func keywordValidation(insight model.Insight, contract model.Contract) model.ContractValidation {
	title := strings.ToLower(contract.Title)

	var matched []string
	for _, entity := range insight.Entities {
		e := strings.ToLower(strings.TrimSpace(entity))
		if e != "" && strings.Contains(title, e) {
			matched = append(matched, entity)
		}
	}
	for _, event := range insight.Events {
		for _, word := range strings.Fields(strings.ToLower(event)) {
			word = strings.Trim(word, ".,:;!?\"'()")
			if len(word) >= 4 && strings.Contains(title, word) {
				matched = append(matched, word)
			}
		}
	}

	count := len(matched)
	reasoning := "keyword fallback: no matching terms"
	if count > 0 {
		reasoning = fmt.Sprintf("keyword fallback: matched %s", strings.Join(matched, ", "))
	}

	return model.ContractValidation{
		ContractID:        contract.ContractTicker,
		IsRelevant:        count > 0,
		RelevanceScore:    clamp01(0.2 * float64(count)),
		MatchedEntities:   orEmptyList(nil),
		MatchedEvents:     orEmptyList(nil),
		Reasoning:         reasoning,
		SuggestedPosition: model.PositionHold,
		Confidence:        clamp01(0.1 * float64(count)),
		Risks:             orEmptyList(nil),
		Opportunities:     orEmptyList(nil),
	}
}

// buildValidationPrompt packs the article, its insight, and the candidate
// contracts into one request.
func buildValidationPrompt(a model.Article, insight model.Insight, chunk []candidate) string {
	var b strings.Builder

	b.WriteString("News article:\n")
	b.WriteString("Title: " + a.Title + "\n")
	if insight.Summary != "" {
		b.WriteString("Summary: " + insight.Summary + "\n")
	}
	b.WriteString("Sentiment: " + insight.Sentiment + "\n")
	if len(insight.Entities) > 0 {
		b.WriteString("Entities: " + strings.Join(insight.Entities, ", ") + "\n")
	}
	if len(insight.Events) > 0 {
		b.WriteString("Events: " + strings.Join(insight.Events, ", ") + "\n")
	}
	if len(insight.Predictions) > 0 {
		b.WriteString("Predictions: " + strings.Join(insight.Predictions, ", ") + "\n")
	}

	b.WriteString("\nCandidate prediction-market contracts:\n")
	for i, c := range chunk {
		fmt.Fprintf(&b, "%d. contractId: %s\n   market: %s\n   contract: %s\n   yesPrice: %.2f, noPrice: %.2f\n",
			i+1, c.contract.ContractTicker, c.market.Title, c.contract.Title,
			c.contract.YesPrice, c.contract.NoPrice)
	}

	b.WriteString(`
For each contract, judge whether this article is actionable for trading it.
Return a JSON array with one object per contract:
[
  {
    "contractId": "...",
    "isRelevant": true,
    "relevanceScore": 0.0,
    "matchedEntities": [],
    "matchedEvents": [],
    "reasoning": "...",
    "suggestedPosition": "buy" | "sell" | "hold",
    "confidence": 0.0,
    "risks": [],
    "opportunities": []
  }
]`)

	return b.String()
}
