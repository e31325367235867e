package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// EnrichmentStore persists summaries and embeddings as append-only rows.
type EnrichmentStore struct {
	db *sql.DB
}

var _ ports.EnrichmentRepository = (*EnrichmentStore)(nil)
var _ ports.QueryLog = (*EnrichmentStore)(nil)

// NewEnrichmentStore wires a sql.DB implementation.
func NewEnrichmentStore(db *sql.DB) *EnrichmentStore {
	return &EnrichmentStore{db: db}
}

// AddSummary appends a summary row; prior rows for the paper are kept.
func (s *EnrichmentStore) AddSummary(ctx context.Context, summary domain.Summary) error {
	if summary.PaperID == "" {
		return domain.ErrInvalidPaper
	}

	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	findings, err := json.Marshal(summary.KeyFindings)
	if err != nil {
		return fmt.Errorf("marshal key findings: %w", err)
	}
	keywords, err := json.Marshal(summary.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	query, args, err := sq.Insert("summaries").
		Columns("paper_id", "summary", "esg_score", "finance_score", "key_findings_json", "keywords_json", "created_at").
		Values(
			summary.PaperID,
			summary.Text,
			summary.ESGScore,
			summary.FinanceScore,
			string(findings),
			string(keywords),
			summary.CreatedAt.UTC().Format(time.RFC3339Nano),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	return nil
}

// AddEmbedding appends an embedding row and moves the paper's embedding
// back-pointer to it, both inside one transaction.
func (s *EnrichmentStore) AddEmbedding(ctx context.Context, embedding domain.Embedding) (int64, error) {
	if embedding.PaperID == "" {
		return 0, domain.ErrInvalidPaper
	}

	if embedding.CreatedAt.IsZero() {
		embedding.CreatedAt = time.Now().UTC()
	}

	vector, err := json.Marshal(embedding.Vector)
	if err != nil {
		return 0, fmt.Errorf("marshal vector: %w", err)
	}

	query, args, err := sq.Insert("embeddings").
		Columns("paper_id", "vector_json", "model", "created_at").
		Values(
			embedding.PaperID,
			string(vector),
			embedding.Model,
			embedding.CreatedAt.UTC().Format(time.RFC3339Nano),
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert embedding: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE papers SET embedding_id = ? WHERE id = ?", id, embedding.PaperID); err != nil {
		return 0, fmt.Errorf("update back-pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return id, nil
}

// LatestSummary returns the most recently created summary for a paper.
func (s *EnrichmentStore) LatestSummary(ctx context.Context, paperID string) (domain.Summary, error) {
	query, args, err := sq.Select("id", "paper_id", "summary", "esg_score", "finance_score", "key_findings_json", "keywords_json", "created_at").
		From("summaries").
		Where(sq.Eq{"paper_id": paperID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Summary{}, fmt.Errorf("build select: %w", err)
	}

	var (
		summary  domain.Summary
		findings sql.NullString
		keywords sql.NullString
		created  sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.ID,
		&summary.PaperID,
		&summary.Text,
		&summary.ESGScore,
		&summary.FinanceScore,
		&findings,
		&keywords,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Summary{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Summary{}, fmt.Errorf("get summary: %w", err)
	}

	if findings.Valid {
		_ = json.Unmarshal([]byte(findings.String), &summary.KeyFindings)
	}
	if keywords.Valid {
		_ = json.Unmarshal([]byte(keywords.String), &summary.Keywords)
	}
	if created.Valid {
		if t, err := time.Parse(time.RFC3339Nano, created.String); err == nil {
			summary.CreatedAt = t
		}
	}

	return summary, nil
}

// LatestEmbedding returns the most recently created embedding for a paper.
func (s *EnrichmentStore) LatestEmbedding(ctx context.Context, paperID string) (domain.Embedding, error) {
	query, args, err := sq.Select("id", "paper_id", "vector_json", "model", "created_at").
		From("embeddings").
		Where(sq.Eq{"paper_id": paperID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("build select: %w", err)
	}

	embedding, err := scanEmbedding(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Embedding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("get embedding: %w", err)
	}

	return embedding, nil
}

// AllEmbeddings returns every stored embedding in insertion order, which
// is what keeps similarity-search tie-breaking deterministic.
func (s *EnrichmentStore) AllEmbeddings(ctx context.Context) ([]domain.Embedding, error) {
	query, args, err := sq.Select("id", "paper_id", "vector_json", "model", "created_at").
		From("embeddings").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	embeddings := make([]domain.Embedding, 0)
	for rows.Next() {
		embedding, err := scanEmbedding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		embeddings = append(embeddings, embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return embeddings, nil
}

// LogQuery records one user search query.
func (s *EnrichmentStore) LogQuery(ctx context.Context, query string) error {
	stmt, args, err := sq.Insert("user_queries").
		Columns("query", "created_at").
		Values(query, time.Now().UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert query: %w", err)
	}

	return nil
}

func scanEmbedding(row rowScanner) (domain.Embedding, error) {
	var (
		embedding domain.Embedding
		vector    string
		created   sql.NullString
	)

	err := row.Scan(&embedding.ID, &embedding.PaperID, &vector, &embedding.Model, &created)
	if err != nil {
		return domain.Embedding{}, err
	}

	if err := json.Unmarshal([]byte(vector), &embedding.Vector); err != nil {
		return domain.Embedding{}, fmt.Errorf("unmarshal vector: %w", err)
	}
	if created.Valid {
		if t, err := time.Parse(time.RFC3339Nano, created.String); err == nil {
			embedding.CreatedAt = t
		}
	}

	return embedding, nil
}
