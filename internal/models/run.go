package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// RunStatus tracks a run through its lifecycle
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// TaskFailure records one unsuccessful task for diagnostics. Failures are
// never itemized on the progress stream and never retried; they only
// appear in the run detail.
type TaskFailure struct {
	SourceURL   string `json:"source_url"`
	Destination string `json:"destination"`
	Reason      string `json:"reason"`
}

// Run is one end-to-end discovery+retrieval execution for a single
// company/date-range request.
type Run struct {
	ID          string        `json:"id"`
	Company     string        `json:"company"`
	Symbol      string        `json:"symbol"`
	StartYear   int           `json:"start_year"`
	EndYear     int           `json:"end_year"`
	Status      RunStatus     `json:"status"`
	Total       int           `json:"total"`
	Completed   int           `json:"completed"`
	ArchiveRoot string        `json:"archive_root,omitempty"`
	Failures    []TaskFailure `json:"failures,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// IsTerminal reports whether the run has finished, successfully or not
func (r *Run) IsTerminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// RunRequest is the payload accepted to start or preview a run
type RunRequest struct {
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name" validate:"required"`
	Symbol      string `json:"symbol" validate:"required"`
	StartYear   int    `json:"start_year" validate:"required,min=2000,max=2099"`
	EndYear     int    `json:"end_year" validate:"required,min=2000,max=2099,gtefield=StartYear"`
}

// Validate validates the request using go-playground/validator
func (r *RunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
