package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lojamovel/backend-loja/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier Verifier
}

// Authenticate attaches the caller's identity to the request context when a
// valid token is present. Requests without a token pass through anonymous.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin enforces an authenticated caller holding the admin role.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !common.HasRole(r.Context(), RoleAdmin) {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	token := extractBearer(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	identity, err := m.Verifier.Verify(token)
	if err != nil {
		return r.Context(), err
	}
	ctx := common.WithUserID(r.Context(), identity.UserID)
	if len(identity.Roles) > 0 {
		ctx = common.WithRoles(ctx, identity.Roles)
	}
	return ctx, nil
}

func extractBearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
