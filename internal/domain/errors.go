package domain

import "errors"

// Sentinel errors shared across the storage and use-case layers.
var (
	// ErrNotFound signals a point lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPaper rejects a paper with no source identifier before
	// any write happens.
	ErrInvalidPaper = errors.New("paper has no id")

	// ErrInvalidQuery rejects a search with an empty or wrong-dimension
	// query vector.
	ErrInvalidQuery = errors.New("invalid query vector")

	// ErrJobInProgress is returned when a manual trigger cannot acquire
	// the serialization guard for a job that is already running.
	ErrJobInProgress = errors.New("job already in progress")
)
