package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/colligo/internal/app"
)

// Server owns the HTTP listener and the route table behind it.
type Server struct {
	app    *app.App
	server *http.Server
}

// New wires the routes and builds the listener. WriteTimeout stays at
// zero: run event streams and archive downloads hold the response open
// longer than any fixed deadline would allow.
func New(application *app.App) *Server {
	s := &Server{app: application}

	s.server = &http.Server{
		Addr:        s.listenAddr(),
		Handler:     s.withConditionalMiddleware(s.setupRoutes()),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) listenAddr() string {
	return fmt.Sprintf("%s:%d", s.app.Config.Server.Host, s.app.Config.Server.Port)
}

// Start blocks on ListenAndServe until the listener closes.
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("address", s.listenAddr()).
		Msg("HTTP server starting")

	s.app.Logger.Info().
		Str("url", fmt.Sprintf("http://%s/api/health", s.listenAddr())).
		Msg("API available")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
