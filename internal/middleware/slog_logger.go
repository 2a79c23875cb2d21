// Package middleware provides HTTP middleware for the shuttle fleet API server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestFields collects caller attributes discovered further down the chain.
// The logger runs outermost, so auth writes into this holder instead of the
// request context, which does not propagate back up.
type requestFields struct {
	tenantID string
	role     string
	subject  string
}

type requestFieldsKey struct{}

func recordPrincipal(ctx context.Context, p Principal) {
	if f, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		f.tenantID = p.Scope.TenantID.String()
		f.role = string(p.Scope.Role)
		f.subject = p.Subject
	}
}

// NewSlogLogger returns a middleware that logs each request as a structured
// JSON line via the provided slog.Logger. It captures method, path, HTTP
// status, bytes written, duration, the request ID set by chi's RequestID
// middleware and, for authenticated requests, the caller's tenant and role.
// 5xx responses log at error level and 4xx at warn.
//
// Wire it after chimiddleware.RequestID and before NewJWTAuth.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			fields := &requestFields{}
			r = r.WithContext(context.WithValue(r.Context(), requestFieldsKey{}, fields))

			// WrapResponseWriter intercepts WriteHeader so we can read the
			// status code after the downstream handler has run.
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = slog.LevelError
			case ww.Status() >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if fields.tenantID != "" {
				attrs = append(attrs, "tenant_id", fields.tenantID, "role", fields.role, "sub", fields.subject)
			}
			log.Log(r.Context(), level, "request", attrs...)
		})
	}
}
