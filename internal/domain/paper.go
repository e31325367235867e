package domain

import "time"

// Paper is the normalized metadata for one source document. The ID is
// assigned by the source (e.g. an arXiv identifier) and is stable across
// re-collection; every other field is replaced on upsert.
type Paper struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Abstract    string    `json:"abstract"`
	Authors     []string  `json:"authors"`
	URL         string    `json:"url"`
	PDFURL      string    `json:"pdf_url"`
	PublishedAt time.Time `json:"published_date"`
	Source      string    `json:"source"`
	Categories  []string  `json:"categories"`
	RetrievedAt time.Time `json:"retrieved_date"`

	// EmbeddingID points at the most recent embedding row for this paper.
	// Zero means no embedding has been computed yet.
	EmbeddingID int64 `json:"embedding_id,omitempty"`
}

// Summary is one generated analysis of a paper. Summaries are append-only;
// the row with the latest CreatedAt is the current one.
type Summary struct {
	ID           int64     `json:"id"`
	PaperID      string    `json:"paper_id"`
	Text         string    `json:"summary"`
	ESGScore     float64   `json:"esg_relevance_score"`
	FinanceScore float64   `json:"finance_relevance_score"`
	KeyFindings  []string  `json:"key_findings"`
	Keywords     []string  `json:"keywords"`
	CreatedAt    time.Time `json:"created_date"`
}

// Embedding is one stored vector for a paper. Vectors produced by
// different models are not comparable, so the model id travels with
// the vector.
type Embedding struct {
	ID        int64     `json:"id"`
	PaperID   string    `json:"paper_id"`
	Vector    []float64 `json:"embedding"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_date"`
}

// EnrichedPaper joins a paper with its current summary, if any.
type EnrichedPaper struct {
	Paper
	Summary *Summary `json:"summary,omitempty"`
}

// SearchResult is one similarity hit, joined back to the full paper.
type SearchResult struct {
	EnrichedPaper
	Similarity float64 `json:"similarity"`
}

// CollectionStats reports the outcome of one collection run.
type CollectionStats struct {
	BySource  map[string]int `json:"by_source"`
	Total     int            `json:"total"`
	Errors    int            `json:"errors"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProcessingStats reports the outcome of one enrichment run.
type ProcessingStats struct {
	Summarized int       `json:"summarized"`
	Embedded   int       `json:"embedded"`
	Errors     int       `json:"errors"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResearchBrief is the composed answer to a free-text research query.
type ResearchBrief struct {
	Query     string         `json:"query"`
	Papers    []SearchResult `json:"papers,omitempty"`
	Brief     string         `json:"brief,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SchedulerStatus is the persisted snapshot of the scheduler state.
// A loaded Running=true only records that the process died while the
// scheduler was active; it never restarts the loop by itself.
type SchedulerStatus struct {
	Running         bool             `json:"running"`
	LastCollection  *time.Time       `json:"last_collection"`
	LastProcessing  *time.Time       `json:"last_processing"`
	CollectionStats *CollectionStats `json:"collection_stats"`
	ProcessingStats *ProcessingStats `json:"processing_stats"`
}
