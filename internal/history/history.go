// Package history records the outcome of automation runs and serves the
// dashboard's history and stats views.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal outcome of one automation run.
type RunStatus string

// Possible run outcomes.
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunRecord is one completed (or failed) automation run.
type RunRecord struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	Topic     string    `json:"topic"`
	Status    RunStatus `json:"status"`
	VideoFile string    `json:"video_file,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats aggregates run history for the dashboard status view.
type Stats struct {
	TotalRuns  int        `json:"total_runs"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
}

// Store persists run records.
type Store interface {
	// Add appends a run record. The record's ID and CreatedAt are filled
	// in if unset.
	Add(ctx context.Context, record *RunRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]RunRecord, error)

	// Last returns the newest record, or nil if the history is empty.
	Last(ctx context.Context) (*RunRecord, error)

	// Stats aggregates counts over the whole history.
	Stats(ctx context.Context) (Stats, error)

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Close releases the underlying storage.
	Close() error
}
