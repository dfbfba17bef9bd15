package handlers

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// ArchiveHandler serves the ZIP archive of a finished run's documents.
type ArchiveHandler struct {
	retrievalService interfaces.RetrievalService
	archiveService   interfaces.ArchiveService
	logger           arbor.ILogger
}

// NewArchiveHandler creates a new archive download handler
func NewArchiveHandler(retrievalService interfaces.RetrievalService, archiveService interfaces.ArchiveService, logger arbor.ILogger) *ArchiveHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &ArchiveHandler{
		retrievalService: retrievalService,
		archiveService:   archiveService,
		logger:           logger,
	}
}

// DownloadArchiveHandler handles GET /api/runs/{id}/archive. The archive
// is assembled on the fly; nothing is written back to disk.
func (h *ArchiveHandler) DownloadArchiveHandler(w http.ResponseWriter, r *http.Request, runID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	run, err := h.retrievalService.GetRun(runID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Run not found: "+runID)
		return
	}

	if !run.IsTerminal() {
		WriteError(w, http.StatusConflict, "Run still in progress: "+runID)
		return
	}

	if run.ArchiveRoot == "" {
		WriteError(w, http.StatusNotFound, "Run has no documents to archive: "+runID)
		return
	}

	filename := h.archiveService.ArchiveName(run)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.archiveService.WriteArchive(r.Context(), run, w); err != nil {
		// Headers are already out; all we can do is log and cut the stream.
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Archive streaming failed")
		return
	}

	h.logger.Info().Str("run_id", runID).Str("filename", filename).Msg("Archive downloaded")
}
