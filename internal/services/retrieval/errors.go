package retrieval

import "errors"

var (
	// ErrRunNotFound is returned for unknown or expired run IDs
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished is returned when cancelling a run that already
	// reached a terminal state
	ErrRunFinished = errors.New("run already finished")
)
