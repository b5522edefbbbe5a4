package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/oddsline/newsflow/internal/model"
)

type fakeEmbedStore struct {
	pending []model.Article
	markets []model.Market

	embedded       map[int64][]float32
	failed         map[int64]string
	marketEmbedded map[int64][]float32
	claimErr       error
}

func newFakeEmbedStore() *fakeEmbedStore {
	return &fakeEmbedStore{
		embedded:       make(map[int64][]float32),
		failed:         make(map[int64]string),
		marketEmbedded: make(map[int64][]float32),
	}
}

func (f *fakeEmbedStore) ClaimPendingArticles(ctx context.Context, limit int) ([]model.Article, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeEmbedStore) SetArticleEmbedded(ctx context.Context, id int64, embedding []float32) error {
	f.embedded[id] = embedding
	return nil
}

func (f *fakeEmbedStore) SetArticleFailed(ctx context.Context, id int64, msg string) error {
	f.failed[id] = msg
	return nil
}

func (f *fakeEmbedStore) FailArticles(ctx context.Context, ids []int64, msg string) error {
	for _, id := range ids {
		f.failed[id] = msg
	}
	return nil
}

func (f *fakeEmbedStore) MarketsMissingEmbedding(ctx context.Context, limit int) ([]model.Market, error) {
	if len(f.markets) > limit {
		return f.markets[:limit], nil
	}
	return f.markets, nil
}

func (f *fakeEmbedStore) SetMarketEmbedding(ctx context.Context, id int64, embedding []float32) error {
	f.marketEmbedded[id] = embedding
	return nil
}

// fakeProvider returns canned vectors or a fixed error.
type fakeProvider struct {
	dim     int
	vectors [][]float32 // cycled per call batch; nil means one unit vector per text
	err     error
	calls   int
}

func (p *fakeProvider) Dimension() int { return p.dim }

func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.vectors != nil {
		return p.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestEmbedderEmbedsPendingArticles(t *testing.T) {
	st := newFakeEmbedStore()
	st.pending = []model.Article{
		{ID: 1, Title: "First article"},
		{ID: 2, Title: "Second article"},
	}

	e := NewEmbedder(st, &fakeProvider{dim: 3}, 10, nil)
	outcome := e.RunOnce(context.Background())

	if outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}
	if !outcome.Worked {
		t.Error("expected Worked outcome")
	}
	if len(st.embedded) != 2 {
		t.Errorf("embedded %d articles, want 2", len(st.embedded))
	}
}

func TestEmbedderProviderFailureFailsBatch(t *testing.T) {
	st := newFakeEmbedStore()
	st.pending = []model.Article{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	e := NewEmbedder(st, &fakeProvider{err: errors.New("quota exceeded")}, 10, nil)
	outcome := e.RunOnce(context.Background())

	if outcome.Err == nil {
		t.Fatal("expected error outcome")
	}
	if len(st.failed) != 2 {
		t.Errorf("failed %d articles, want 2", len(st.failed))
	}
	if st.failed[1] != "quota exceeded" {
		t.Errorf("failure message = %q, want provider error", st.failed[1])
	}
}

func TestEmbedderEmptyVectorFailsArticle(t *testing.T) {
	st := newFakeEmbedStore()
	st.pending = []model.Article{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	provider := &fakeProvider{vectors: [][]float32{{}, {1, 0, 0}}}
	e := NewEmbedder(st, provider, 10, nil)
	outcome := e.RunOnce(context.Background())

	if outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}
	if st.failed[1] != "empty embedding returned" {
		t.Errorf("article 1 failure = %q, want empty-embedding message", st.failed[1])
	}
	if _, ok := st.embedded[2]; !ok {
		t.Error("article 2 should still be embedded")
	}
}

func TestEmbedderSweepsMarketsWhenIdle(t *testing.T) {
	st := newFakeEmbedStore()
	st.markets = []model.Market{
		{ID: 10, Title: "Fed decision"},
		{ID: 11, Title: "Election winner"},
	}

	e := NewEmbedder(st, &fakeProvider{}, 10, nil)
	outcome := e.RunOnce(context.Background())

	if outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}
	if !outcome.Worked {
		t.Error("expected Worked outcome from market sweep")
	}
	if len(st.marketEmbedded) != 2 {
		t.Errorf("embedded %d markets, want 2", len(st.marketEmbedded))
	}
}

func TestEmbedderNoWorkIsIdle(t *testing.T) {
	e := NewEmbedder(newFakeEmbedStore(), &fakeProvider{}, 10, nil)
	outcome := e.RunOnce(context.Background())

	if outcome.Err != nil || outcome.Worked {
		t.Errorf("outcome = %+v, want idle", outcome)
	}
}

func TestEmbedMarketsBatchesProviderCalls(t *testing.T) {
	st := newFakeEmbedStore()
	provider := &fakeProvider{}
	e := NewEmbedder(st, provider, 2, nil)

	markets := []model.Market{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}
	n, err := e.EmbedMarkets(context.Background(), markets)
	if err != nil {
		t.Fatalf("EmbedMarkets error: %v", err)
	}
	if n != 5 {
		t.Errorf("embedded = %d, want 5", n)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3 (batch size 2)", provider.calls)
	}
}

func TestArticleEmbedText(t *testing.T) {
	tests := []struct {
		name string
		a    model.Article
		want string
	}{
		{
			name: "title only",
			a:    model.Article{Title: "Headline"},
			want: "Headline",
		},
		{
			name: "summary preferred over content",
			a:    model.Article{Title: "Headline", Summary: "Short summary", Content: "Long body"},
			want: "Headline\n\nShort summary",
		},
		{
			name: "tags appended",
			a:    model.Article{Title: "Headline", Tags: []string{"fed", "rates"}},
			want: "Headline\n\nTags: fed, rates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := articleEmbedText(tt.a); got != tt.want {
				t.Errorf("articleEmbedText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarketEmbedText(t *testing.T) {
	m := model.Market{Title: "Fed cuts rates", Category: "Economics"}
	if got := marketEmbedText(m); got != "Fed cuts rates. Category: Economics" {
		t.Errorf("marketEmbedText() = %q", got)
	}
	m.Category = ""
	if got := marketEmbedText(m); got != "Fed cuts rates" {
		t.Errorf("marketEmbedText() = %q", got)
	}
}
