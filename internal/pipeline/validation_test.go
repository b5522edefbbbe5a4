package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/oddsline/newsflow/internal/model"
)

type recordedValidation struct {
	isRelevant     bool
	relevanceScore float64
	confidence     float64
	position       model.Position
	reasoning      string
}

type fakeValidateStore struct {
	matched   []model.Article
	matches   map[int64][]model.Match   // articleID -> matches
	markets   map[int64]*model.Market   // marketID -> market
	contracts map[int64]*model.Contract // marketID -> top contract

	validations map[int64]recordedValidation // matchID -> written validation
	alertsSent  []int64
	promoted    []int64
}

func newFakeValidateStore() *fakeValidateStore {
	return &fakeValidateStore{
		matches:     make(map[int64][]model.Match),
		markets:     make(map[int64]*model.Market),
		contracts:   make(map[int64]*model.Contract),
		validations: make(map[int64]recordedValidation),
	}
}

func (f *fakeValidateStore) ClaimMatchedArticles(ctx context.Context, limit int) ([]model.Article, error) {
	if len(f.matched) > limit {
		return f.matched[:limit], nil
	}
	return f.matched, nil
}

func (f *fakeValidateStore) UnvalidatedMatches(ctx context.Context, articleID int64, limit int) ([]model.Match, error) {
	var out []model.Match
	for _, m := range f.matches[articleID] {
		if _, done := f.validations[m.ID]; !done {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeValidateStore) GetMarketByID(ctx context.Context, id int64) (*model.Market, error) {
	return f.markets[id], nil
}

func (f *fakeValidateStore) TopContractForMarket(ctx context.Context, marketID int64) (*model.Contract, error) {
	return f.contracts[marketID], nil
}

func (f *fakeValidateStore) SetMatchValidation(ctx context.Context, matchID int64, isRelevant bool, relevanceScore, confidence float64, position model.Position, reasoning string) error {
	f.validations[matchID] = recordedValidation{
		isRelevant:     isRelevant,
		relevanceScore: relevanceScore,
		confidence:     confidence,
		position:       position,
		reasoning:      reasoning,
	}
	return nil
}

func (f *fakeValidateStore) CountUnvalidatedMatches(ctx context.Context, articleID int64) (int, error) {
	n := 0
	for _, m := range f.matches[articleID] {
		if _, done := f.validations[m.ID]; !done {
			n++
		}
	}
	return n, nil
}

func (f *fakeValidateStore) SetArticleValidated(ctx context.Context, id int64) error {
	f.promoted = append(f.promoted, id)
	return nil
}

func (f *fakeValidateStore) MarkAlertSent(ctx context.Context, matchID int64) error {
	f.alertsSent = append(f.alertsSent, matchID)
	return nil
}

type fakeDispatcher struct {
	alerts []model.Alert
	sent   bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, alert model.Alert) (bool, error) {
	f.alerts = append(f.alerts, alert)
	return f.sent, nil
}

// seedCandidate wires one article, match, market, and contract into the store.
func seedCandidate(st *fakeValidateStore, ticker string) {
	st.matched = []model.Article{{ID: 1, Title: "Fed announces surprise rate cut", URL: "https://news.example/fed"}}
	st.matches[1] = []model.Match{{ID: 100, ArticleID: 1, MarketID: 10, Similarity: 0.85}}
	st.markets[10] = &model.Market{
		ID:          10,
		Platform:    "kalshi",
		EventTicker: "KXFED-26MAR",
		Title:       "Fed rate decision in March",
		URL:         "https://kalshi.com/markets/KXFED-26MAR",
	}
	st.contracts[10] = &model.Contract{
		ID:             20,
		ContractTicker: ticker,
		MarketID:       10,
		Title:          "Fed cuts by 25bps",
		YesPrice:       0.35,
		NoPrice:        0.65,
		IsActive:       true,
	}
}

const insightReply = `{"entities":["Federal Reserve"],"events":["rate cut"],"predictions":[],"sentiment":"positive","suggestedActions":[],"relevanceScore":0.9,"summary":"Fed cuts rates."}`

func validationReply(ticker string) string {
	return `Based on my analysis:
[{"contractId":"` + ticker + `","isRelevant":true,"relevanceScore":0.9,"matchedEntities":["Federal Reserve"],"matchedEvents":["rate cut"],"reasoning":"Direct impact","suggestedPosition":"buy","confidence":0.85,"risks":[],"opportunities":[]}]
Let me know if you need anything else.`
}

func TestValidatorFullFlow(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	llm := &fakeLLM{replies: []string{insightReply, validationReply("KXFED-26MAR-C25")}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	outcome := v.RunOnce(context.Background())

	if outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}
	if !outcome.Worked {
		t.Error("expected Worked outcome")
	}

	val, ok := st.validations[100]
	if !ok {
		t.Fatal("match validation not written")
	}
	if !val.isRelevant || val.position != model.PositionBuy || val.confidence != 0.85 {
		t.Errorf("validation = %+v", val)
	}

	if len(dispatcher.alerts) != 1 {
		t.Fatalf("dispatched %d alerts, want 1", len(dispatcher.alerts))
	}
	alert := dispatcher.alerts[0]
	if alert.CurrentPrice != 0.35 {
		t.Errorf("alert price = %v, want yes price 0.35 for buy", alert.CurrentPrice)
	}
	if alert.Position != model.PositionBuy {
		t.Errorf("alert position = %v", alert.Position)
	}

	if len(st.alertsSent) != 1 || st.alertsSent[0] != 100 {
		t.Errorf("alertsSent = %v, want [100]", st.alertsSent)
	}
	if len(st.promoted) != 1 || st.promoted[0] != 1 {
		t.Errorf("promoted = %v, want [1]", st.promoted)
	}
}

func TestValidatorSellAlertUsesNoPrice(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	reply := strings.Replace(validationReply("KXFED-26MAR-C25"), `"suggestedPosition":"buy"`, `"suggestedPosition":"sell"`, 1)
	llm := &fakeLLM{replies: []string{insightReply, reply}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	if outcome := v.RunOnce(context.Background()); outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}

	if len(dispatcher.alerts) != 1 {
		t.Fatalf("dispatched %d alerts, want 1", len(dispatcher.alerts))
	}
	if got := dispatcher.alerts[0].CurrentPrice; got != 0.65 {
		t.Errorf("alert price = %v, want no price 0.65 for sell", got)
	}
}

func TestValidatorSynthesizesWhenModelOmitsContract(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	// The model returns an array, but for some other contract id, so the
	// candidate gets the synthesized default.
	llm := &fakeLLM{replies: []string{insightReply, validationReply("SOMETHING-ELSE")}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	if outcome := v.RunOnce(context.Background()); outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}

	val, ok := st.validations[100]
	if !ok {
		t.Fatal("match validation not written")
	}
	if val.isRelevant || val.position != model.PositionHold {
		t.Errorf("validation = %+v, want synthesized hold", val)
	}
	if val.reasoning != "no validation returned by model" {
		t.Errorf("reasoning = %q", val.reasoning)
	}
	if len(dispatcher.alerts) != 0 {
		t.Errorf("dispatched %d alerts, want none", len(dispatcher.alerts))
	}
	if len(st.promoted) != 1 {
		t.Errorf("promoted = %v, article should still complete", st.promoted)
	}
}

func TestValidatorNoContractGetsSynthesized(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	delete(st.contracts, 10)
	llm := &fakeLLM{replies: []string{insightReply}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	if outcome := v.RunOnce(context.Background()); outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}

	val := st.validations[100]
	if val.reasoning != "no active contract available for validation" {
		t.Errorf("reasoning = %q", val.reasoning)
	}
	if len(dispatcher.alerts) != 0 {
		t.Error("no alert expected without a contract")
	}
}

func TestValidatorVanishedMarketGetsSynthesized(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	delete(st.markets, 10)
	llm := &fakeLLM{replies: []string{insightReply}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	if outcome := v.RunOnce(context.Background()); outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}

	val, ok := st.validations[100]
	if !ok {
		t.Fatal("vanished market's match must still be written")
	}
	if val.position != model.PositionHold {
		t.Errorf("position = %v, want hold", val.position)
	}
	if len(st.promoted) != 1 {
		t.Error("article should still be promoted")
	}
}

func TestValidatorHoldDoesNotAlert(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	reply := strings.Replace(validationReply("KXFED-26MAR-C25"), `"suggestedPosition":"buy"`, `"suggestedPosition":"hold"`, 1)
	llm := &fakeLLM{replies: []string{insightReply, reply}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	v.RunOnce(context.Background())

	if len(dispatcher.alerts) != 0 {
		t.Errorf("dispatched %d alerts, want none for hold", len(dispatcher.alerts))
	}
}

func TestValidatorLowConfidenceDoesNotAlert(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	reply := strings.Replace(validationReply("KXFED-26MAR-C25"), `"confidence":0.85`, `"confidence":0.5`, 1)
	llm := &fakeLLM{replies: []string{insightReply, reply}}
	dispatcher := &fakeDispatcher{sent: true}

	v := NewValidator(ValidatorConfig{MinConfidence: 0.7}, st, llm, dispatcher, nil, nil)
	v.RunOnce(context.Background())

	if len(dispatcher.alerts) != 0 {
		t.Errorf("dispatched %d alerts, want none below confidence floor", len(dispatcher.alerts))
	}
}

func TestValidatorUnsentAlertNotRecorded(t *testing.T) {
	st := newFakeValidateStore()
	seedCandidate(st, "KXFED-26MAR-C25")
	llm := &fakeLLM{replies: []string{insightReply, validationReply("KXFED-26MAR-C25")}}
	dispatcher := &fakeDispatcher{sent: false} // suppressed downstream

	v := NewValidator(ValidatorConfig{}, st, llm, dispatcher, nil, nil)
	v.RunOnce(context.Background())

	if len(st.alertsSent) != 0 {
		t.Errorf("alertsSent = %v, want none when dispatch suppressed", st.alertsSent)
	}
}

func TestValidatorNoArticlesIsIdle(t *testing.T) {
	v := NewValidator(ValidatorConfig{}, newFakeValidateStore(), &fakeLLM{}, &fakeDispatcher{}, nil, nil)
	outcome := v.RunOnce(context.Background())

	if outcome.Err != nil || outcome.Worked {
		t.Errorf("outcome = %+v, want idle", outcome)
	}
}
