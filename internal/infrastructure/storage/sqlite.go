package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens or creates the SQLite database at the given path and ensures
// the schema exists.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT,
			authors_json TEXT,
			url TEXT,
			pdf_url TEXT,
			published_at TEXT,
			source TEXT,
			categories_json TEXT,
			retrieved_at TEXT,
			embedding_id INTEGER
		);

		CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id TEXT NOT NULL,
			summary TEXT,
			esg_score REAL,
			finance_score REAL,
			key_findings_json TEXT,
			keywords_json TEXT,
			created_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_summaries_paper ON summaries(paper_id);

		CREATE TABLE IF NOT EXISTS embeddings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id TEXT NOT NULL,
			vector_json TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_embeddings_paper ON embeddings(paper_id);

		CREATE TABLE IF NOT EXISTS user_queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			created_at TEXT
		);

		CREATE TABLE IF NOT EXISTS scheduler_status (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}
