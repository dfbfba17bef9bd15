package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// RetrievalService owns the lifecycle of document retrieval runs: it
// plans, dispatches the download pool, tracks progress, and keeps
// finished runs queryable for a retention window.
type RetrievalService interface {
	// StartRun begins an asynchronous retrieval run and returns its ID
	StartRun(ctx context.Context, req *models.RunRequest) (string, error)

	// GetRun returns run state by ID
	GetRun(id string) (*models.Run, error)

	// ListRuns returns all known runs, newest first
	ListRuns() []*models.Run

	// CancelRun stops an in-flight run
	CancelRun(id string) error

	// Events returns the run's progress stream. The channel is buffered
	// for the whole run and closed after the terminal event; it has a
	// single consumer.
	Events(id string) (<-chan models.ProgressEvent, error)

	// Shutdown cancels in-flight runs and waits for workers to drain
	Shutdown(ctx context.Context) error
}
