package models

import (
	"fmt"
)

// ProgressKind identifies the five wire event shapes emitted during a run
type ProgressKind string

const (
	ProgressKindStatus   ProgressKind = "STATUS"
	ProgressKindTotal    ProgressKind = "TOTAL"
	ProgressKindProgress ProgressKind = "PROGRESS"
	ProgressKindComplete ProgressKind = "COMPLETE"
	ProgressKindError    ProgressKind = "ERROR"
)

// ProgressEvent is one entry in a run's event stream. Only the fields
// relevant to the kind are populated; Wire renders the pipe-delimited
// form consumed verbatim by SSE clients.
type ProgressEvent struct {
	Kind        ProgressKind `json:"kind"`
	Message     string       `json:"message,omitempty"`
	Completed   int          `json:"completed,omitempty"`
	Total       int          `json:"total,omitempty"`
	ETASeconds  int          `json:"eta_seconds,omitempty"`
	ArchiveRoot string       `json:"archive_root,omitempty"`
}

// StatusEvent creates an informational status event
func StatusEvent(message string) ProgressEvent {
	return ProgressEvent{Kind: ProgressKindStatus, Message: message}
}

// TotalEvent announces the task count before dispatch begins
func TotalEvent(total int) ProgressEvent {
	return ProgressEvent{Kind: ProgressKindTotal, Total: total}
}

// ProgressTick reports one completed task with the current ETA
func ProgressTick(completed, total, etaSeconds int) ProgressEvent {
	return ProgressEvent{Kind: ProgressKindProgress, Completed: completed, Total: total, ETASeconds: etaSeconds}
}

// CompleteEvent is the terminal event of a successful run. ArchiveRoot is
// empty when the plan matched nothing.
func CompleteEvent(completed, total int, archiveRoot string) ProgressEvent {
	return ProgressEvent{Kind: ProgressKindComplete, Completed: completed, Total: total, ArchiveRoot: archiveRoot}
}

// ErrorEvent is the terminal event of a failed run
func ErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Kind: ProgressKindError, Message: message}
}

// Wire renders the pipe-delimited wire form:
//
//	STATUS|<message>
//	TOTAL|<n>
//	PROGRESS|<completed>|<total>|<eta_seconds>
//	COMPLETE|<completed>|<total>|<archive_root>
//	ERROR|<message>
func (e ProgressEvent) Wire() string {
	switch e.Kind {
	case ProgressKindStatus:
		return fmt.Sprintf("STATUS|%s", e.Message)
	case ProgressKindTotal:
		return fmt.Sprintf("TOTAL|%d", e.Total)
	case ProgressKindProgress:
		return fmt.Sprintf("PROGRESS|%d|%d|%d", e.Completed, e.Total, e.ETASeconds)
	case ProgressKindComplete:
		return fmt.Sprintf("COMPLETE|%d|%d|%s", e.Completed, e.Total, e.ArchiveRoot)
	case ProgressKindError:
		return fmt.Sprintf("ERROR|%s", e.Message)
	}
	return ""
}

// Terminal reports whether this event ends the stream
func (e ProgressEvent) Terminal() bool {
	return e.Kind == ProgressKindComplete || e.Kind == ProgressKindError
}

// RunSummary is the final accounting of one dispatch phase
type RunSummary struct {
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	ArchiveRoot string `json:"archive_root"`
}
