package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/oddsline/newsflow/internal/model"
)

type fakeSource struct {
	name  string
	items []model.NewsItem
	err   error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FetchLatest(ctx context.Context) ([]model.NewsItem, error) {
	return s.items, s.err
}

type fakeArticleStore struct {
	inserted []model.NewsItem
	seen     map[string]bool
	errFor   map[string]error
}

func newFakeArticleStore() *fakeArticleStore {
	return &fakeArticleStore{
		seen:   make(map[string]bool),
		errFor: make(map[string]error),
	}
}

func (f *fakeArticleStore) InsertArticle(ctx context.Context, item model.NewsItem) (bool, error) {
	if err := f.errFor[item.ID]; err != nil {
		return false, err
	}
	key := item.Source + "/" + item.ID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.inserted = append(f.inserted, item)
	return true, nil
}

func TestIngestorInsertsNewItems(t *testing.T) {
	st := newFakeArticleStore()
	source := &fakeSource{name: "wire", items: []model.NewsItem{
		{ID: "a1", Title: "First"},
		{ID: "a2", Title: "Second"},
	}}

	ing := New(source, st, nil)
	outcome := ing.RunOnce(context.Background())

	if outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}
	if !outcome.Worked {
		t.Error("expected Worked outcome")
	}
	if len(st.inserted) != 2 {
		t.Fatalf("inserted %d items, want 2", len(st.inserted))
	}
	if st.inserted[0].Source != "wire" {
		t.Errorf("Source = %q, want %q (defaulted from source name)", st.inserted[0].Source, "wire")
	}
}

func TestIngestorRefetchIsIdle(t *testing.T) {
	st := newFakeArticleStore()
	source := &fakeSource{name: "wire", items: []model.NewsItem{
		{ID: "a1", Title: "First"},
	}}

	ing := New(source, st, nil)
	if outcome := ing.RunOnce(context.Background()); !outcome.Worked {
		t.Fatal("first run should insert")
	}
	if outcome := ing.RunOnce(context.Background()); outcome.Worked || outcome.Err != nil {
		t.Errorf("second run = %+v, want idle", outcome)
	}
	if len(st.inserted) != 1 {
		t.Errorf("inserted %d items, want 1", len(st.inserted))
	}
}

func TestIngestorSkipsEmptyIDs(t *testing.T) {
	st := newFakeArticleStore()
	source := &fakeSource{name: "wire", items: []model.NewsItem{
		{ID: "", Title: "No id"},
		{ID: "a1", Title: "Has id"},
	}}

	ing := New(source, st, nil)
	if outcome := ing.RunOnce(context.Background()); outcome.Err != nil {
		t.Fatalf("RunOnce error: %v", outcome.Err)
	}
	if len(st.inserted) != 1 || st.inserted[0].ID != "a1" {
		t.Errorf("inserted = %v, want only a1", st.inserted)
	}
}

func TestIngestorKeepsExplicitSource(t *testing.T) {
	st := newFakeArticleStore()
	source := &fakeSource{name: "wire", items: []model.NewsItem{
		{ID: "a1", Source: "upstream", Title: "Tagged"},
	}}

	ing := New(source, st, nil)
	ing.RunOnce(context.Background())

	if len(st.inserted) != 1 || st.inserted[0].Source != "upstream" {
		t.Errorf("inserted = %v, want source preserved", st.inserted)
	}
}

func TestIngestorFetchFailure(t *testing.T) {
	source := &fakeSource{name: "wire", err: errors.New("feed down")}
	ing := New(source, newFakeArticleStore(), nil)

	outcome := ing.RunOnce(context.Background())
	if outcome.Err == nil {
		t.Fatal("expected error outcome")
	}
}

func TestIngestorPerItemErrorContained(t *testing.T) {
	st := newFakeArticleStore()
	st.errFor["a1"] = errors.New("constraint violation")
	source := &fakeSource{name: "wire", items: []model.NewsItem{
		{ID: "a1", Title: "Broken"},
		{ID: "a2", Title: "Fine"},
	}}

	ing := New(source, st, nil)
	outcome := ing.RunOnce(context.Background())

	if outcome.Err != nil {
		t.Fatalf("RunOnce error: %v, want per-item containment", outcome.Err)
	}
	if !outcome.Worked {
		t.Error("expected Worked outcome for the surviving item")
	}
	if len(st.inserted) != 1 || st.inserted[0].ID != "a2" {
		t.Errorf("inserted = %v, want only a2", st.inserted)
	}
}
