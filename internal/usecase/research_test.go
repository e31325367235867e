package usecase

import (
	"context"
	"errors"
	"testing"

	"PaperRadar/internal/domain"
)

type fakeSearcher struct {
	lastVector []float64
	lastK      int
	results    []domain.SearchResult
}

func (f *fakeSearcher) Search(_ context.Context, query []float64, k int) ([]domain.SearchResult, error) {
	f.lastVector = query
	f.lastK = k
	return f.results, nil
}

type fakeBriefWriter struct {
	brief string
	err   error
}

func (f *fakeBriefWriter) ComposeBrief(context.Context, string, []domain.SearchResult) (string, error) {
	return f.brief, f.err
}

type fakeQueryLog struct {
	queries []string
	err     error
}

func (f *fakeQueryLog) LogQuery(_ context.Context, query string) error {
	f.queries = append(f.queries, query)
	return f.err
}

func searchHit(id string, score float64) domain.SearchResult {
	return domain.SearchResult{
		EnrichedPaper: domain.EnrichedPaper{Paper: domain.Paper{ID: id, Title: "Paper " + id}},
		Similarity:    score,
	}
}

func TestResearchSearchEmbedsAndLogsQuery(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []domain.SearchResult{searchHit("a", 0.9)}}
	queries := &fakeQueryLog{}
	research := NewResearch(ResearchDeps{
		Searcher: searcher,
		Embedder: &fakeEmbedder{},
		Queries:  queries,
	})

	results, err := research.Search(context.Background(), "  climate risk  ", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("unexpected results %+v", results)
	}
	if searcher.lastK != 3 || len(searcher.lastVector) != 2 {
		t.Fatalf("searcher received k=%d vector=%v", searcher.lastK, searcher.lastVector)
	}
	if len(queries.queries) != 1 || queries.queries[0] != "climate risk" {
		t.Fatalf("query must be logged trimmed, got %v", queries.queries)
	}
}

func TestResearchSearchRejectsBlankQuery(t *testing.T) {
	t.Parallel()

	research := NewResearch(ResearchDeps{Searcher: &fakeSearcher{}, Embedder: &fakeEmbedder{}})
	if _, err := research.Search(context.Background(), "   ", 3); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected invalid query, got %v", err)
	}
}

func TestResearchSearchToleratesLogFailure(t *testing.T) {
	t.Parallel()

	research := NewResearch(ResearchDeps{
		Searcher: &fakeSearcher{results: []domain.SearchResult{searchHit("a", 0.9)}},
		Embedder: &fakeEmbedder{},
		Queries:  &fakeQueryLog{err: errors.New("disk full")},
	})

	results, err := research.Search(context.Background(), "climate risk", 3)
	if err != nil {
		t.Fatalf("log failure must not fail the search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestResearchBriefComposesOverHits(t *testing.T) {
	t.Parallel()

	research := NewResearch(ResearchDeps{
		Searcher: &fakeSearcher{results: []domain.SearchResult{searchHit("a", 0.9), searchHit("b", 0.5)}},
		Embedder: &fakeEmbedder{},
		Briefs:   &fakeBriefWriter{brief: "Executive summary."},
	})

	brief, err := research.Brief(context.Background(), "green bonds", 5)
	if err != nil {
		t.Fatalf("brief: %v", err)
	}
	if brief.Brief != "Executive summary." || brief.Message != "" {
		t.Fatalf("unexpected brief %+v", brief)
	}
	if len(brief.Papers) != 2 || brief.Query != "green bonds" {
		t.Fatalf("unexpected brief payload %+v", brief)
	}
}

func TestResearchBriefWithoutHits(t *testing.T) {
	t.Parallel()

	research := NewResearch(ResearchDeps{
		Searcher: &fakeSearcher{},
		Embedder: &fakeEmbedder{},
		Briefs:   &fakeBriefWriter{brief: "should not be called"},
	})

	brief, err := research.Brief(context.Background(), "dark matter", 5)
	if err != nil {
		t.Fatalf("brief: %v", err)
	}
	if brief.Message != "No relevant papers found for your query." {
		t.Fatalf("expected the no-results message, got %+v", brief)
	}
	if brief.Brief != "" {
		t.Fatalf("brief text must stay empty without hits, got %q", brief.Brief)
	}
}
