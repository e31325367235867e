package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"PaperRadar/internal/domain"
)

func TestLatestSummaryWins(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := NewEnrichmentStore(db)
	ctx := context.Background()

	base := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)
	first := domain.Summary{
		PaperID:      "2604.00001",
		Text:         "first pass",
		ESGScore:     40,
		FinanceScore: 55,
		KeyFindings:  []string{"finding one"},
		Keywords:     []string{"esg"},
		CreatedAt:    base,
	}
	second := first
	second.Text = "second pass"
	second.CreatedAt = base.Add(time.Minute)

	if err := store.AddSummary(ctx, first); err != nil {
		t.Fatalf("add first summary: %v", err)
	}
	if err := store.AddSummary(ctx, second); err != nil {
		t.Fatalf("add second summary: %v", err)
	}

	latest, err := store.LatestSummary(ctx, "2604.00001")
	if err != nil {
		t.Fatalf("latest summary: %v", err)
	}
	if latest.Text != "second pass" {
		t.Fatalf("expected latest summary, got %q", latest.Text)
	}
	if len(latest.KeyFindings) != 1 || latest.KeyFindings[0] != "finding one" {
		t.Fatalf("unexpected key findings: %v", latest.KeyFindings)
	}
}

func TestLatestSummaryNotFound(t *testing.T) {
	t.Parallel()

	store := NewEnrichmentStore(openTestDB(t))

	_, err := store.LatestSummary(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddEmbeddingUpdatesBackPointer(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	papers := NewPaperStore(db)
	store := NewEnrichmentStore(db)
	ctx := context.Background()

	published := time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)
	if err := papers.Upsert(ctx, testPaper("2604.00002", published)); err != nil {
		t.Fatalf("upsert paper: %v", err)
	}

	id, err := store.AddEmbedding(ctx, domain.Embedding{
		PaperID: "2604.00002",
		Vector:  []float64{0.25, -0.5, 1},
		Model:   "text-embedding-3-large",
	})
	if err != nil {
		t.Fatalf("add embedding: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero embedding id")
	}

	paper, err := papers.Get(ctx, "2604.00002")
	if err != nil {
		t.Fatalf("get paper: %v", err)
	}
	if paper.EmbeddingID != id {
		t.Fatalf("expected back-pointer %d, got %d", id, paper.EmbeddingID)
	}
}

func TestAllEmbeddingsKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	store := NewEnrichmentStore(openTestDB(t))
	ctx := context.Background()

	for _, paperID := range []string{"p1", "p2", "p3"} {
		_, err := store.AddEmbedding(ctx, domain.Embedding{
			PaperID: paperID,
			Vector:  []float64{1, 0},
			Model:   "m",
		})
		if err != nil {
			t.Fatalf("add embedding %s: %v", paperID, err)
		}
	}

	embeddings, err := store.AllEmbeddings(ctx)
	if err != nil {
		t.Fatalf("all embeddings: %v", err)
	}
	if len(embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(embeddings))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if embeddings[i].PaperID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, embeddings[i].PaperID)
		}
	}
}

func TestEmbeddingVectorRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewEnrichmentStore(openTestDB(t))
	ctx := context.Background()

	want := []float64{0.123456789, -1, 0, 42.5}
	if _, err := store.AddEmbedding(ctx, domain.Embedding{PaperID: "p1", Vector: want, Model: "m"}); err != nil {
		t.Fatalf("add embedding: %v", err)
	}

	got, err := store.LatestEmbedding(ctx, "p1")
	if err != nil {
		t.Fatalf("latest embedding: %v", err)
	}
	if len(got.Vector) != len(want) {
		t.Fatalf("expected %d components, got %d", len(want), len(got.Vector))
	}
	for i := range want {
		if got.Vector[i] != want[i] {
			t.Fatalf("component %d: expected %v, got %v", i, want[i], got.Vector[i])
		}
	}
	if got.Model != "m" {
		t.Fatalf("unexpected model: %s", got.Model)
	}
}

func TestLogQuery(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := NewEnrichmentStore(db)

	if err := store.LogQuery(context.Background(), "climate finance"); err != nil {
		t.Fatalf("log query: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM user_queries").Scan(&count); err != nil {
		t.Fatalf("count queries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 logged query, got %d", count)
	}
}
