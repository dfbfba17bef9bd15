package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/retrieval"
)

// RunHandler manages retrieval runs over HTTP
type RunHandler struct {
	retrievalService interfaces.RetrievalService
	catalogService   interfaces.CatalogService
	logger           arbor.ILogger
}

// NewRunHandler creates a new run handler with dependencies
func NewRunHandler(retrievalService interfaces.RetrievalService, catalogService interfaces.CatalogService, logger arbor.ILogger) *RunHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &RunHandler{
		retrievalService: retrievalService,
		catalogService:   catalogService,
		logger:           logger,
	}
}

// CreateRunHandler handles POST /api/runs. The run executes in the
// background; the response carries the ID for event streaming.
func (h *RunHandler) CreateRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.RunRequest
	if !DecodeJSONBody(w, r, &req) {
		return
	}

	// Fill the display name from the catalog when the caller sends only
	// a symbol
	if req.CompanyName == "" && req.Symbol != "" {
		if company, err := h.catalogService.GetBySymbol(r.Context(), req.Symbol); err == nil && company != nil {
			req.CompanyName = company.Name
			if req.CompanyID == "" {
				req.CompanyID = company.ID
			}
		}
	}

	runID, err := h.retrievalService.StartRun(r.Context(), &req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteAccepted(w, map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

// ListRunsHandler handles GET /api/runs
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	runs := h.retrievalService.ListRuns()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// GetRunHandler handles GET /api/runs/{id}
func (h *RunHandler) GetRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	run, err := h.retrievalService.GetRun(runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Run not found: "+runID)
		return
	}

	WriteJSON(w, http.StatusOK, run)
}

// CancelRunHandler handles DELETE /api/runs/{id}
func (h *RunHandler) CancelRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	err := h.retrievalService.CancelRun(runID)
	switch {
	case err == nil:
		h.logger.Info().Str("run_id", runID).Msg("Run cancelled via API")
		WriteSuccess(w, "Run cancellation requested")
	case errors.Is(err, retrieval.ErrRunNotFound):
		WriteError(w, http.StatusNotFound, "Run not found: "+runID)
	case errors.Is(err, retrieval.ErrRunFinished):
		WriteError(w, http.StatusConflict, "Run already finished: "+runID)
	default:
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Run cancellation failed")
		WriteError(w, http.StatusInternalServerError, "Cancellation failed")
	}
}
