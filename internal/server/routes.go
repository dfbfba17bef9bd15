package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Catalog
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchCompaniesHandler) // GET - company lookup

	// API routes - Discovery preview (no downloads)
	mux.HandleFunc("/api/plan", s.app.PlanHandler.PlanPreviewHandler) // GET - dry-run plan

	// API routes - Retrieval runs
	mux.HandleFunc("/api/runs", s.handleRunsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/runs/", s.handleRunRoutes) // Handles /api/runs/{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - application status
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleRunsRoute routes /api/runs requests (list and create)
func (s *Server) handleRunsRoute(w http.ResponseWriter, r *http.Request) {
	routeResourceCollection(w, r, s.app.RunHandler.ListRunsHandler, s.app.RunHandler.CreateRunHandler)
}

// handleRunRoutes routes /api/runs/{id} requests and subresources
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path[len("/api/runs/"):]
	if path == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	runID := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch sub {
	case "":
		// GET /api/runs/{id}, DELETE /api/runs/{id}
		routeResourceItem(w, r,
			func(w http.ResponseWriter, r *http.Request) { s.app.RunHandler.GetRunHandler(w, r, runID) },
			func(w http.ResponseWriter, r *http.Request) { s.app.RunHandler.CancelRunHandler(w, r, runID) })
	case "events":
		// GET /api/runs/{id}/events - SSE stream
		s.app.SSEHandler.StreamRunEvents(w, r, runID)
	case "archive":
		// GET /api/runs/{id}/archive - ZIP download
		s.app.ArchiveHandler.DownloadArchiveHandler(w, r, runID)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
