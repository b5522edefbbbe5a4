package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oddsline/newsflow/internal/capability"
	"github.com/oddsline/newsflow/internal/model"
	"github.com/oddsline/newsflow/internal/runner"
)

// validationChunkSize caps contracts per LLM validation request; larger
// candidate sets are chunked and the replies concatenated.
const validationChunkSize = 10

// maxMatchesPerArticle caps how many matches one article feeds the validator.
const maxMatchesPerArticle = 10

// ValidateStore is the persistence surface the validator needs.
type ValidateStore interface {
	ClaimMatchedArticles(ctx context.Context, limit int) ([]model.Article, error)
	UnvalidatedMatches(ctx context.Context, articleID int64, limit int) ([]model.Match, error)
	GetMarketByID(ctx context.Context, id int64) (*model.Market, error)
	TopContractForMarket(ctx context.Context, marketID int64) (*model.Contract, error)
	SetMatchValidation(ctx context.Context, matchID int64, isRelevant bool, relevanceScore, confidence float64, position model.Position, reasoning string) error
	CountUnvalidatedMatches(ctx context.Context, articleID int64) (int, error)
	SetArticleValidated(ctx context.Context, id int64) error
	MarkAlertSent(ctx context.Context, matchID int64) error
}

// AlertDispatcher delivers an alert through the configured sinks, applying
// per-sink thresholds and the cooldown. Returns whether anything was sent.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert model.Alert) (bool, error)
}

// ValidatorConfig tunes the validation worker.
type ValidatorConfig struct {
	BatchSize      int
	MinConfidence  float64 // LLM confidence floor for alerting
	TradingEnabled bool
	DryRun         bool
}

// DefaultValidatorConfig returns sensible defaults.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{BatchSize: 3, MinConfidence: 0.7, DryRun: true}
}

// Validator advances articles matched -> validated: it scores each candidate
// contract with the LLM, writes the validation columns, emits alerts for the
// strongest matches, and optionally places orders.
type Validator struct {
	cfg        ValidatorConfig
	store      ValidateStore
	llm        capability.LLMProvider
	dispatcher AlertDispatcher
	platforms  map[string]capability.MarketPlatform
	logger     *slog.Logger
}

// NewValidator creates a Validator. platforms is keyed by platform name and
// may be nil when trading is disabled.
func NewValidator(cfg ValidatorConfig, st ValidateStore, llm capability.LLMProvider, dispatcher AlertDispatcher, platforms map[string]capability.MarketPlatform, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultValidatorConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	return &Validator{
		cfg:        cfg,
		store:      st,
		llm:        llm,
		dispatcher: dispatcher,
		platforms:  platforms,
		logger:     logger.With("worker", "validation"),
	}
}

// candidate is one match joined with its market and, when one exists, the
// market's single representative contract.
type candidate struct {
	match    model.Match
	market   *model.Market
	contract *model.Contract
}

// RunOnce claims a batch of matched articles and validates their candidate
// matches. Per-article errors are logged and contained.
func (v *Validator) RunOnce(ctx context.Context) runner.Outcome {
	articles, err := v.store.ClaimMatchedArticles(ctx, v.cfg.BatchSize)
	if err != nil {
		return runner.Failed(fmt.Errorf("claim matched articles: %w", err))
	}
	if len(articles) == 0 {
		return runner.Idle()
	}

	start := time.Now()
	var validated int

	for _, a := range articles {
		if err := v.validateArticle(ctx, a); err != nil {
			v.logger.Error("validation failed", "article_id", a.ID, "error", err)
			continue
		}
		validated++
	}

	v.logger.Info("validation batch complete",
		"claimed", len(articles),
		"validated", validated,
		"duration", time.Since(start),
	)

	if validated == 0 {
		return runner.Idle()
	}
	return runner.Worked()
}

// validateArticle scores every unvalidated match of one article and promotes
// the article once none remain.
func (v *Validator) validateArticle(ctx context.Context, a model.Article) error {
	matches, err := v.store.UnvalidatedMatches(ctx, a.ID, maxMatchesPerArticle)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}

	candidates, err := v.loadCandidates(ctx, matches)
	if err != nil {
		return err
	}

	insight := parseArticleInsight(ctx, v.llm, a)

	results := v.validateCandidates(ctx, a, insight, candidates)

	for _, c := range candidates {
		val, ok := v.resultFor(results, c)
		if !ok {
			val = synthesizedValidation(c)
		}

		err := v.store.SetMatchValidation(ctx, c.match.ID, val.IsRelevant,
			val.RelevanceScore, val.Confidence, val.SuggestedPosition, val.Reasoning)
		if err != nil {
			return fmt.Errorf("write validation for match %d: %w", c.match.ID, err)
		}
		v.logger.Debug("match validated",
			"article_id", a.ID,
			"match_id", c.match.ID,
			"relevant", val.IsRelevant,
			"confidence", val.Confidence,
			"position", val.SuggestedPosition,
		)

		v.maybeAlert(ctx, a, c, val)
	}

	remaining, err := v.store.CountUnvalidatedMatches(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("count remaining matches: %w", err)
	}
	if remaining == 0 {
		if err := v.store.SetArticleValidated(ctx, a.ID); err != nil {
			return fmt.Errorf("promote article: %w", err)
		}
		v.logger.Info("article validated", "article_id", a.ID, "matches", len(candidates))
	}
	return nil
}

// loadCandidates joins matches with their markets and one contract each.
func (v *Validator) loadCandidates(ctx context.Context, matches []model.Match) ([]candidate, error) {
	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		market, err := v.store.GetMarketByID(ctx, m.MarketID)
		if err != nil {
			return nil, fmt.Errorf("load market %d: %w", m.MarketID, err)
		}
		if market == nil {
			// Market vanished between matching and validation; synthesize.
			candidates = append(candidates, candidate{match: m})
			continue
		}
		contract, err := v.store.TopContractForMarket(ctx, market.ID)
		if err != nil {
			return nil, fmt.Errorf("load contract for market %d: %w", market.ID, err)
		}
		candidates = append(candidates, candidate{match: m, market: market, contract: contract})
	}
	return candidates, nil
}

func (v *Validator) resultFor(results map[string]model.ContractValidation, c candidate) (model.ContractValidation, bool) {
	if c.contract == nil {
		return model.ContractValidation{}, false
	}
	val, ok := results[c.contract.ContractTicker]
	return val, ok
}

// synthesizedValidation is the conservative default written for a candidate
// the LLM did not (or could not) score.
func synthesizedValidation(c candidate) model.ContractValidation {
	reasoning := "no validation returned by model"
	if c.contract == nil {
		reasoning = "no active contract available for validation"
	}
	return model.ContractValidation{
		IsRelevant:        false,
		RelevanceScore:    0,
		Confidence:        0,
		SuggestedPosition: model.PositionHold,
		Reasoning:         reasoning,
	}
}

// maybeAlert applies the alert gate and, when it passes, dispatches the alert
// and places the order.
func (v *Validator) maybeAlert(ctx context.Context, a model.Article, c candidate, val model.ContractValidation) {
	if !val.IsRelevant || val.Confidence < v.cfg.MinConfidence || val.SuggestedPosition == model.PositionHold {
		return
	}
	if c.market == nil || c.contract == nil {
		return
	}

	price := c.contract.YesPrice
	if val.SuggestedPosition == model.PositionSell {
		price = c.contract.NoPrice
	}

	alert := model.Alert{
		NewsTitle:     a.Title,
		NewsURL:       a.URL,
		MarketTitle:   c.market.Title,
		MarketURL:     c.market.URL,
		ContractTitle: c.contract.Title,
		Position:      val.SuggestedPosition,
		Confidence:    val.Confidence,
		CurrentPrice:  price,
		Reasoning:     val.Reasoning,
		Timestamp:     time.Now().UTC(),
	}

	sent, err := v.dispatcher.Dispatch(ctx, alert)
	if err != nil {
		v.logger.Error("alert dispatch failed", "match_id", c.match.ID, "error", err)
		return
	}
	if !sent {
		return
	}

	if err := v.store.MarkAlertSent(ctx, c.match.ID); err != nil {
		v.logger.Error("failed to record alert", "match_id", c.match.ID, "error", err)
	}
	v.logger.Info("alert sent",
		"article_id", a.ID,
		"market", c.market.Title,
		"position", val.SuggestedPosition,
		"confidence", val.Confidence,
	)

	v.placeOrder(ctx, c, val, price)
}

// placeOrder submits (or simulates) the order implied by the validation.
func (v *Validator) placeOrder(ctx context.Context, c candidate, val model.ContractValidation, price float64) {
	quantity := 10 * int(val.Confidence*5)
	if quantity <= 0 {
		return
	}

	side := "yes"
	if val.SuggestedPosition == model.PositionSell {
		side = "no"
	}

	req := model.OrderRequest{
		ContractTicker: c.contract.ContractTicker,
		Side:           side,
		Quantity:       quantity,
		Type:           "limit",
		LimitPrice:     price,
	}

	if !v.cfg.TradingEnabled || v.cfg.DryRun {
		v.logger.Info("position created (dry run)",
			"order_id", uuid.NewString(),
			"contract", req.ContractTicker,
			"side", req.Side,
			"quantity", req.Quantity,
			"limit_price", req.LimitPrice,
		)
		return
	}

	platform, ok := v.platforms[c.market.Platform]
	if !ok {
		v.logger.Error("no platform adapter for order", "platform", c.market.Platform)
		return
	}

	result, err := platform.PlaceOrder(ctx, req)
	if err != nil {
		v.logger.Error("order placement failed",
			"contract", req.ContractTicker,
			"error", err,
		)
		return
	}
	v.logger.Info("order placed",
		"order_id", result.OrderID,
		"status", result.Status,
		"filled", result.FilledQty,
		"avg_price", result.AvgPrice,
	)
}
