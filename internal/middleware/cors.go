package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// corsPreflightMaxAge is how long, in seconds, a browser may reuse a
// preflight answer. The dispatcher dashboard polls /fleet and /alerts.
const corsPreflightMaxAge = 300

// NewCORSHandler returns a middleware admitting browser calls from
// allowedOrigins, each a full origin (scheme + host, no trailing slash).
// Only the methods the API routes use are allowed: GET reads, POST for
// creates, transitions and scans, PUT for a single check-in. Requests carry
// a bearer token, so Authorization is an allowed header.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         corsPreflightMaxAge,
	}).Handler
}
