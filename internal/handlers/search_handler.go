package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// SearchHandler serves company lookups against the catalog
type SearchHandler struct {
	catalogService interfaces.CatalogService
	logger         arbor.ILogger
}

// NewSearchHandler creates a new search handler with dependencies
func NewSearchHandler(catalogService interfaces.CatalogService, logger arbor.ILogger) *SearchHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &SearchHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// SearchCompaniesHandler handles GET /api/search?q=query requests
func (h *SearchHandler) SearchCompaniesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "Missing query parameter: q")
		return
	}

	matches, err := h.catalogService.Search(r.Context(), query)
	if err != nil {
		h.logger.Error().Err(err).Str("query", query).Msg("Catalog search failed")
		WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	if len(matches) == 0 {
		WriteError(w, http.StatusNotFound, "No companies matched the query")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"count":   len(matches),
		"matches": matches,
	})
}
