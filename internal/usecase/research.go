package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// ResearchDeps wires retrieval and text capabilities into the
// query-facing workflows.
type ResearchDeps struct {
	Searcher ports.SimilaritySearcher
	Embedder ports.Embedder
	Briefs   ports.BriefWriter
	Queries  ports.QueryLog
	Logger   *slog.Logger
}

// Research answers free-text similarity queries and composes research
// briefs over the results.
type Research struct {
	searcher ports.SimilaritySearcher
	embedder ports.Embedder
	briefs   ports.BriefWriter
	queries  ports.QueryLog
	logger   *slog.Logger
}

// NewResearch constructs the query workflows.
func NewResearch(deps ResearchDeps) *Research {
	return &Research{
		searcher: deps.Searcher,
		embedder: deps.Embedder,
		briefs:   deps.Briefs,
		queries:  deps.Queries,
		logger:   deps.Logger,
	}
}

// Search embeds the query text and runs a similarity search. The query
// is logged for interest tracking; a failing log never fails the search.
func (r *Research) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}

	if r.queries != nil {
		if err := r.queries.LogQuery(ctx, query); err != nil {
			r.warn("query log failed", "error", err)
		}
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return r.searcher.Search(ctx, vector, k)
}

// Brief searches for relevant papers and asks the text capability for an
// executive brief over them.
func (r *Research) Brief(ctx context.Context, query string, k int) (domain.ResearchBrief, error) {
	brief := domain.ResearchBrief{Query: query, Timestamp: time.Now().UTC()}

	results, err := r.Search(ctx, query, k)
	if err != nil {
		return brief, err
	}
	brief.Papers = results

	if len(results) == 0 {
		brief.Message = "No relevant papers found for your query."
		return brief, nil
	}

	if r.briefs == nil {
		return brief, fmt.Errorf("brief writer is not configured")
	}

	text, err := r.briefs.ComposeBrief(ctx, query, results)
	if err != nil {
		return brief, err
	}
	brief.Brief = text

	return brief, nil
}

func (r *Research) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
