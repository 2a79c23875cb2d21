package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Scope   domain.Scope
}

type principalKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by NewJWTAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ScopeFromContext returns the tenant scope of the authenticated caller.
func ScopeFromContext(ctx context.Context) (domain.Scope, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.Scope, ok
}

// Claims is the token payload. tenant_id and role are required; sub
// identifies the person and is only logged.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// IssueToken signs an HS256 token for scope. ttl <= 0 issues a token without expiry.
func IssueToken(secret []byte, subject string, scope domain.Scope, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		TenantID: scope.TenantID.String(),
		Role:     string(scope.Role),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies an HS256 token and returns its principal.
func ParseToken(secret []byte, token string) (Principal, error) {
	if len(secret) == 0 {
		return Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !parsed.Valid {
		return Principal{}, errors.New("invalid token")
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return Principal{}, fmt.Errorf("tenant_id claim: %w", err)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return Principal{}, fmt.Errorf("role claim: unknown role %q", claims.Role)
	}
	return Principal{
		Subject: claims.Subject,
		Scope:   domain.Scope{TenantID: tenantID, Role: role},
	}, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// NewJWTAuth returns a middleware that requires a valid bearer token and
// stores the caller's Principal in the request context. Requests without one
// are rejected with 401 and never reach the next handler.
func NewJWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			p, err := ParseToken(secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
				return
			}
			recordPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole returns a middleware that lets through only callers holding
// one of roles. Wire it after NewJWTAuth.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := ScopeFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !slices.Contains(roles, scope.Role) {
				writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("role %s may not perform this operation", scope.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes the API error envelope. It mirrors the handler package's
// shape so clients see one format regardless of which layer rejected them.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
