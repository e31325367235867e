package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// StatusStore persists the scheduler status snapshot as a single JSON
// blob keyed to row 1.
type StatusStore struct {
	db *sql.DB
}

var _ ports.StatusStore = (*StatusStore)(nil)

// NewStatusStore wires a sql.DB implementation.
func NewStatusStore(db *sql.DB) *StatusStore {
	return &StatusStore{db: db}
}

// SaveStatus replaces the whole snapshot atomically.
func (s *StatusStore) SaveStatus(ctx context.Context, status domain.SchedulerStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scheduler_status (id, payload) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}

	return nil
}

// LoadStatus returns the persisted snapshot, or a zero status when none
// has been saved yet.
func (s *StatusStore) LoadStatus(ctx context.Context) (domain.SchedulerStatus, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM scheduler_status WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SchedulerStatus{}, nil
	}
	if err != nil {
		return domain.SchedulerStatus{}, fmt.Errorf("load status: %w", err)
	}

	var status domain.SchedulerStatus
	if err := json.Unmarshal([]byte(payload), &status); err != nil {
		return domain.SchedulerStatus{}, fmt.Errorf("unmarshal status: %w", err)
	}

	return status, nil
}
