// Package api exposes the broker CRM and outreach engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/loadpoint/broker-outreach/internal/auth"
	"github.com/loadpoint/broker-outreach/internal/config"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server. A nil verifier leaves the /api routes
// unauthenticated (local development only).
func NewServer(cfg config.ServerConfig, h *Handlers, verifier *auth.Verifier) *Server {
	return &Server{
		config:  cfg,
		handler: setupRoutes(h, verifier),
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
