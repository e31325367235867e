package search

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/infrastructure/storage"
)

func newTestEngine(t *testing.T, dims int) (*Engine, *storage.PaperStore, *storage.EnrichmentStore) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	papers := storage.NewPaperStore(db)
	enrichments := storage.NewEnrichmentStore(db)
	return NewEngine(papers, enrichments, dims), papers, enrichments
}

func addEmbedded(t *testing.T, papers *storage.PaperStore, enrichments *storage.EnrichmentStore, id string, vector []float64) {
	t.Helper()
	ctx := context.Background()

	paper := domain.Paper{
		ID:          id,
		Title:       "Paper " + id,
		Abstract:    "Abstract " + id,
		URL:         "https://example.org/abs/" + id,
		PublishedAt: time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC),
		Source:      "arxiv",
	}
	if err := papers.Upsert(ctx, paper); err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
	if _, err := enrichments.AddEmbedding(ctx, domain.Embedding{PaperID: id, Vector: vector, Model: "m"}); err != nil {
		t.Fatalf("embed %s: %v", id, err)
	}
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	t.Parallel()

	engine, papers, enrichments := newTestEngine(t, 2)
	addEmbedded(t, papers, enrichments, "a", []float64{1, 0})
	addEmbedded(t, papers, enrichments, "b", []float64{0, 1})
	addEmbedded(t, papers, enrichments, "c", []float64{1, 1})

	results, err := engine.Search(context.Background(), []float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || math.Abs(results[0].Similarity-1) > 1e-9 {
		t.Fatalf("unexpected top hit: %s (%f)", results[0].ID, results[0].Similarity)
	}
	if results[1].ID != "c" || math.Abs(results[1].Similarity-1/math.Sqrt2) > 1e-9 {
		t.Fatalf("unexpected second hit: %s (%f)", results[1].ID, results[1].Similarity)
	}
}

func TestSearchReturnsFewerThanK(t *testing.T) {
	t.Parallel()

	engine, papers, enrichments := newTestEngine(t, 2)
	addEmbedded(t, papers, enrichments, "a", []float64{1, 0})

	results, err := engine.Search(context.Background(), []float64{1, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchSkipsDegenerateVectors(t *testing.T) {
	t.Parallel()

	engine, papers, enrichments := newTestEngine(t, 2)
	addEmbedded(t, papers, enrichments, "a", []float64{0, 0})
	addEmbedded(t, papers, enrichments, "b", []float64{1, 0, 0})
	addEmbedded(t, papers, enrichments, "c", []float64{0, 1})

	results, err := engine.Search(context.Background(), []float64{0, 1}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Fatalf("expected only c, got %+v", results)
	}
}

func TestSearchRejectsBadQueries(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t, 2)
	ctx := context.Background()

	cases := []struct {
		name  string
		query []float64
	}{
		{"empty", nil},
		{"wrong dimensions", []float64{1, 0, 0}},
		{"zero norm", []float64{0, 0}},
	}
	for _, tc := range cases {
		if _, err := engine.Search(ctx, tc.query, 3); !errors.Is(err, domain.ErrInvalidQuery) {
			t.Fatalf("%s: expected invalid query, got %v", tc.name, err)
		}
	}
}

func TestSearchJoinsLatestSummary(t *testing.T) {
	t.Parallel()

	engine, papers, enrichments := newTestEngine(t, 2)
	addEmbedded(t, papers, enrichments, "a", []float64{1, 0})

	ctx := context.Background()
	for _, text := range []string{"first pass", "second pass"} {
		if err := enrichments.AddSummary(ctx, domain.Summary{PaperID: "a", Text: text}); err != nil {
			t.Fatalf("add summary: %v", err)
		}
	}

	results, err := engine.Search(ctx, []float64{1, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Summary == nil {
		t.Fatalf("expected a summarized hit, got %+v", results)
	}
	if results[0].Summary.Text != "second pass" {
		t.Fatalf("expected latest summary, got %q", results[0].Summary.Text)
	}
}

func TestCosineBounds(t *testing.T) {
	t.Parallel()

	score, ok := cosine([]float64{1, 2, 3}, []float64{-3, 1, -2})
	if !ok {
		t.Fatal("expected a score")
	}
	if score < -1 || score > 1 {
		t.Fatalf("score out of range: %f", score)
	}

	if _, ok := cosine([]float64{1}, []float64{1, 2}); ok {
		t.Fatal("length mismatch must not score")
	}
	if _, ok := cosine([]float64{0, 0}, []float64{1, 1}); ok {
		t.Fatal("zero norm must not score")
	}
}
