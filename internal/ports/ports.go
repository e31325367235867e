package ports

import (
	"context"

	"PaperRadar/internal/domain"
)

// PaperFilter narrows List results. Category matches any member of the
// paper's category set by substring; Query matches title or abstract by
// case-sensitive substring.
type PaperFilter struct {
	Limit    int
	Offset   int
	Category string
	Query    string
}

// PaperRepository persists normalized papers keyed by source id.
type PaperRepository interface {
	Upsert(ctx context.Context, paper domain.Paper) error
	Get(ctx context.Context, id string) (domain.Paper, error)
	List(ctx context.Context, filter PaperFilter) ([]domain.Paper, error)
}

// EnrichmentRepository persists generated summaries and embeddings as
// append-only rows with latest-wins read semantics.
type EnrichmentRepository interface {
	AddSummary(ctx context.Context, summary domain.Summary) error
	// AddEmbedding inserts the row and updates the paper's embedding
	// back-pointer in one transaction.
	AddEmbedding(ctx context.Context, embedding domain.Embedding) (int64, error)
	LatestSummary(ctx context.Context, paperID string) (domain.Summary, error)
	LatestEmbedding(ctx context.Context, paperID string) (domain.Embedding, error)
	// AllEmbeddings returns every stored embedding in insertion order.
	AllEmbeddings(ctx context.Context) ([]domain.Embedding, error)
}

// QueryLog records user search queries for interest tracking.
type QueryLog interface {
	LogQuery(ctx context.Context, query string) error
}

// StatusStore persists the scheduler status snapshot across restarts.
type StatusStore interface {
	SaveStatus(ctx context.Context, status domain.SchedulerStatus) error
	LoadStatus(ctx context.Context) (domain.SchedulerStatus, error)
}

// Summarizer turns a paper's metadata into a structured analysis.
type Summarizer interface {
	Summarize(ctx context.Context, paper domain.Paper) (domain.Summary, error)
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// BriefWriter composes a free-text research brief from search hits.
type BriefWriter interface {
	ComposeBrief(ctx context.Context, query string, papers []domain.SearchResult) (string, error)
}

// SimilaritySearcher answers top-K similarity queries over the stored
// embeddings. The scan-based engine satisfies this today; an indexed
// structure can replace it without touching callers.
type SimilaritySearcher interface {
	Search(ctx context.Context, query []float64, k int) ([]domain.SearchResult, error)
}
