package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/discovery"
)

// PlanHandler serves dry-run discovery: the page is fetched and planned
// but nothing is downloaded
type PlanHandler struct {
	catalogService   interfaces.CatalogService
	discoveryService interfaces.DiscoveryService
	logger           arbor.ILogger
}

// NewPlanHandler creates a new plan handler with dependencies
func NewPlanHandler(catalogService interfaces.CatalogService, discoveryService interfaces.DiscoveryService, logger arbor.ILogger) *PlanHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &PlanHandler{
		catalogService:   catalogService,
		discoveryService: discoveryService,
		logger:           logger,
	}
}

// PlanPreviewHandler handles GET /api/plan?symbol=&name=&start_year=&end_year=
func (h *PlanHandler) PlanPreviewHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()

	symbol := strings.TrimSpace(q.Get("symbol"))
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Missing query parameter: symbol")
		return
	}

	startYear, err := strconv.Atoi(q.Get("start_year"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid or missing start_year")
		return
	}
	endYear, err := strconv.Atoi(q.Get("end_year"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid or missing end_year")
		return
	}

	company := h.resolveCompany(r, symbol, strings.TrimSpace(q.Get("name")))
	if id := strings.TrimSpace(q.Get("company_id")); id != "" {
		company.ID = id
	}

	req := &models.RunRequest{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Symbol:      symbol,
		StartYear:   startYear,
		EndYear:     endYear,
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	plan, excerpt, err := h.discoveryService.PlanPreview(r.Context(), company, startYear, endYear)
	if err != nil {
		var discErr *discovery.DiscoveryError
		if errors.As(err, &discErr) {
			h.logger.Warn().Err(err).Str("symbol", symbol).Msg("Plan preview fetch failed")
			WriteError(w, http.StatusBadGateway, "Connection failed: "+err.Error())
			return
		}
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Plan preview failed")
		WriteError(w, http.StatusInternalServerError, "Plan preview failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plan":    plan,
		"counts":  plan.CountByCategory(),
		"excerpt": excerpt,
	})
}

// resolveCompany enriches the request from the catalog when the symbol
// is known there; unknown symbols still get a preview, the page fetch
// is the authority
func (h *PlanHandler) resolveCompany(r *http.Request, symbol, name string) *models.Company {
	if known, err := h.catalogService.GetBySymbol(r.Context(), symbol); err == nil && known != nil {
		if name != "" {
			known.Name = name
		}
		return known
	}

	if name == "" {
		name = symbol
	}
	return &models.Company{
		Name:    name,
		NSECode: strings.ToUpper(symbol),
	}
}
