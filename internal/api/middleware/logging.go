package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/crickettalent/internal/middleware"
)

// RequestIDHeader is echoed on every API response
const RequestIDHeader = middleware.RequestIDHeader

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}
