package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/services/status"
)

// StatusHandler serves the engine state over plain HTTP for clients
// that poll instead of holding a WebSocket. The payload is the same
// snapshot the broadcaster pushes.
type StatusHandler struct {
	statusService *status.Service
	logger        arbor.ILogger
}

func NewStatusHandler(statusService *status.Service, logger arbor.ILogger) *StatusHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &StatusHandler{statusService: statusService, logger: logger}
}

// GetStatusHandler handles GET /api/status. The snapshot changes with
// every run transition, so intermediaries must not cache it.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, h.statusService.GetStatus())
}
