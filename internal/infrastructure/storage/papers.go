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

const defaultListLimit = 100

var paperColumns = []string{
	"id", "title", "abstract", "authors_json", "url", "pdf_url",
	"published_at", "source", "categories_json", "retrieved_at", "embedding_id",
}

// PaperStore persists normalized papers into SQLite.
type PaperStore struct {
	db *sql.DB
}

var _ ports.PaperRepository = (*PaperStore)(nil)

// NewPaperStore wires a sql.DB implementation.
func NewPaperStore(db *sql.DB) *PaperStore {
	return &PaperStore{db: db}
}

// Upsert replaces the full row keyed by the paper id. The embedding
// back-pointer is carried over so re-collection does not orphan it.
func (s *PaperStore) Upsert(ctx context.Context, paper domain.Paper) error {
	if paper.ID == "" {
		return domain.ErrInvalidPaper
	}

	if paper.RetrievedAt.IsZero() {
		paper.RetrievedAt = time.Now().UTC()
	}

	authors, err := json.Marshal(paper.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}
	categories, err := json.Marshal(paper.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	query, args, err := sq.Insert("papers").
		Columns(paperColumns[:len(paperColumns)-1]...).
		Values(
			paper.ID,
			paper.Title,
			paper.Abstract,
			string(authors),
			paper.URL,
			paper.PDFURL,
			paper.PublishedAt.UTC().Format(time.RFC3339),
			paper.Source,
			string(categories),
			paper.RetrievedAt.UTC().Format(time.RFC3339),
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			authors_json = excluded.authors_json,
			url = excluded.url,
			pdf_url = excluded.pdf_url,
			published_at = excluded.published_at,
			source = excluded.source,
			categories_json = excluded.categories_json,
			retrieved_at = excluded.retrieved_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}

	return nil
}

// Get returns a single paper by id or domain.ErrNotFound.
func (s *PaperStore) Get(ctx context.Context, id string) (domain.Paper, error) {
	query, args, err := sq.Select(paperColumns...).
		From("papers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Paper{}, fmt.Errorf("build select: %w", err)
	}

	paper, err := scanPaper(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Paper{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Paper{}, fmt.Errorf("get paper: %w", err)
	}

	return paper, nil
}

// List returns papers ordered by published timestamp descending. The
// category and query filters are case-sensitive substring matches, so
// instr() is used instead of LIKE (SQLite LIKE folds ASCII case).
func (s *PaperStore) List(ctx context.Context, filter ports.PaperFilter) ([]domain.Paper, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	builder := sq.Select(paperColumns...).From("papers")

	if filter.Category != "" {
		builder = builder.Where(sq.Expr("instr(categories_json, ?) > 0", filter.Category))
	}
	if filter.Query != "" {
		builder = builder.Where(sq.Expr("(instr(title, ?) > 0 OR instr(abstract, ?) > 0)", filter.Query, filter.Query))
	}

	query, args, err := builder.
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(filter.Offset, 0))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	papers := make([]domain.Paper, 0)
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return papers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (domain.Paper, error) {
	var (
		paper       domain.Paper
		authors     sql.NullString
		categories  sql.NullString
		published   sql.NullString
		retrieved   sql.NullString
		embeddingID sql.NullInt64
	)

	err := row.Scan(
		&paper.ID,
		&paper.Title,
		&paper.Abstract,
		&authors,
		&paper.URL,
		&paper.PDFURL,
		&published,
		&paper.Source,
		&categories,
		&retrieved,
		&embeddingID,
	)
	if err != nil {
		return domain.Paper{}, err
	}

	if authors.Valid {
		_ = json.Unmarshal([]byte(authors.String), &paper.Authors)
	}
	if categories.Valid {
		_ = json.Unmarshal([]byte(categories.String), &paper.Categories)
	}
	if published.Valid {
		if t, err := time.Parse(time.RFC3339, published.String); err == nil {
			paper.PublishedAt = t
		}
	}
	if retrieved.Valid {
		if t, err := time.Parse(time.RFC3339, retrieved.String); err == nil {
			paper.RetrievedAt = t
		}
	}
	if embeddingID.Valid {
		paper.EmbeddingID = embeddingID.Int64
	}

	return paper, nil
}
