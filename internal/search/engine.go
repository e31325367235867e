// Package search implements similarity retrieval over stored embeddings.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

const defaultTopK = 5

// Engine answers top-K queries with a full scan over the embedding
// table. Index-free on purpose: callers only see the Search contract,
// so an ANN structure can replace the scan later.
type Engine struct {
	papers      ports.PaperRepository
	enrichments ports.EnrichmentRepository
	dims        int
}

var _ ports.SimilaritySearcher = (*Engine)(nil)

// NewEngine wires the two repositories. dims, when positive, is the
// expected query-vector length; mismatched queries are rejected.
func NewEngine(papers ports.PaperRepository, enrichments ports.EnrichmentRepository, dims int) *Engine {
	return &Engine{papers: papers, enrichments: enrichments, dims: dims}
}

// Search scores every stored embedding against the query vector and
// returns at most k results ordered by descending cosine similarity.
// Ties keep the insertion order of the scan. Stored vectors with zero
// norm or a different length are skipped, not errors. Each hit is joined
// to its paper and latest summary; a hit whose paper is gone is dropped.
func (e *Engine) Search(ctx context.Context, query []float64, k int) ([]domain.SearchResult, error) {
	if len(query) == 0 {
		return nil, domain.ErrInvalidQuery
	}
	if e.dims > 0 && len(query) != e.dims {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", domain.ErrInvalidQuery, len(query), e.dims)
	}
	if norm(query) == 0 {
		return nil, fmt.Errorf("%w: zero norm", domain.ErrInvalidQuery)
	}

	if k <= 0 {
		k = defaultTopK
	}

	embeddings, err := e.enrichments.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	type hit struct {
		paperID string
		score   float64
	}

	hits := make([]hit, 0, len(embeddings))
	for _, embedding := range embeddings {
		score, ok := cosine(query, embedding.Vector)
		if !ok {
			continue
		}
		hits = append(hits, hit{paperID: embedding.PaperID, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		paper, err := e.papers.Get(ctx, h.paperID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("join paper %s: %w", h.paperID, err)
		}

		result := domain.SearchResult{
			EnrichedPaper: domain.EnrichedPaper{Paper: paper},
			Similarity:    h.score,
		}

		summary, err := e.enrichments.LatestSummary(ctx, h.paperID)
		if err == nil {
			result.Summary = &summary
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("join summary %s: %w", h.paperID, err)
		}

		results = append(results, result)
	}

	return results, nil
}

// cosine returns dot(a,b)/(|a|*|b|). ok is false when the vectors have
// different lengths or either norm is zero.
func cosine(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0, false
	}

	return dot / denominator, true
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
