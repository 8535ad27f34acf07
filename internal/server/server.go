// Package server implements the HTTP API, middleware, and request handlers for the application.
package server

import (
	"net/http"

	"github.com/woozymasta/srcquery/internal/config"
	"github.com/woozymasta/srcquery/internal/storage"
)

// New creates a new Server instance with the provided storage and configuration.
func New(store *storage.Repository, cfg *config.Config) *Server {
	return &Server{
		storage:    store,
		limiter:    newIPLimiter(cfg.RateLimit.HardLimitCount, cfg.RateLimit.HardLimitWin),
		a2sOptions: cfg.A2S,
		authToken:  cfg.Server.AuthToken,
		trustProxy: cfg.Server.TrustProxy,
	}
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	admin := func(h http.HandlerFunc) http.Handler {
		return s.RateLimitMiddleware(AdminAuthMiddleware(s.authToken, h))
	}

	mux.Handle("GET /api/a2s", admin(s.handleServerQuery))
	mux.Handle("GET /api/servers", admin(s.handleServers))
	mux.Handle("GET /api/server", admin(s.handleGetServer))
	mux.Handle("DELETE /api/server", admin(s.handleDeleteServer))
	mux.Handle("GET /api/snapshots", admin(s.handleSnapshots))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	return s.LoggingMiddleware(mux)
}
