package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

const ssePingInterval = 15 * time.Second

// SSERunEventsHandler streams a run's progress events to the caller.
// Each frame's data is the pipe-delimited wire line, so EventSource
// consumers read e.data directly.
type SSERunEventsHandler struct {
	retrievalService interfaces.RetrievalService
	logger           arbor.ILogger
}

// NewSSERunEventsHandler creates a new SSE handler for run events
func NewSSERunEventsHandler(retrievalService interfaces.RetrievalService, logger arbor.ILogger) *SSERunEventsHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &SSERunEventsHandler{
		retrievalService: retrievalService,
		logger:           logger,
	}
}

// StreamRunEvents handles GET /api/runs/{id}/events. The stream replays
// everything the run has emitted so far, follows it live, and ends when
// the terminal event has been delivered. Each run's stream has a single
// consumer.
func (h *SSERunEventsHandler) StreamRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	events, err := h.retrievalService.Events(runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Run not found: "+runID)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Flush headers immediately to trigger browser's EventSource.onopen
	flusher.Flush()

	h.logger.Debug().Str("run_id", runID).Msg("SSE client connected to run stream")

	pingTicker := time.NewTicker(ssePingInterval)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Str("run_id", runID).Msg("SSE client disconnected")
			return

		case ev, open := <-events:
			if !open {
				h.logger.Debug().Str("run_id", runID).Msg("Run stream ended")
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", ev.Wire())
			flusher.Flush()
			pingTicker.Reset(ssePingInterval)

		case <-pingTicker.C:
			// Comment-line keepalive; EventSource ignores it
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
