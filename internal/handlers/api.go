package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
)

// APIHandler serves the version, health and fallback endpoints
type APIHandler struct {
	logger  arbor.ILogger
	started time.Time
}

func NewAPIHandler() *APIHandler {
	return &APIHandler{
		logger:  common.GetLogger(),
		started: time.Now(),
	}
}

// VersionHandler returns build identification
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"service":    "colligo",
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler answers liveness probes
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// NotFoundHandler answers unmatched /api/ paths with JSON instead of the
// stdlib text page. The payload mirrors the WriteError envelope with the
// offending path attached.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("Unknown API path")
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"status": "error",
		"error":  "no such endpoint",
		"path":   r.URL.Path,
	})
}
