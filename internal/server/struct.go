package server

import (
	"github.com/woozymasta/srcquery/internal/config"
	"github.com/woozymasta/srcquery/internal/storage"
)

// Server holds the dependencies and configuration required to handle HTTP requests.
type Server struct {
	// storage provides access to polled server state and snapshot history.
	storage *storage.Repository

	// limiter applies the hard per-IP rate limit shared by all API routes.
	limiter *ipLimiter

	// authToken is the secret token required to access administrative API endpoints.
	authToken string

	// a2sOptions holds timeouts and buffer sizes for live queries.
	a2sOptions config.A2S

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}
