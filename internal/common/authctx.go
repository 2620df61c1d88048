package common

import (
	"context"
	"slices"
)

type ctxKey string

const (
	userIDKey ctxKey = "auth/user-id"
	rolesKey  ctxKey = "auth/roles"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithRoles stores the caller's roles, as asserted by the identity platform.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// HasRole reports whether the context carries the given role.
func HasRole(ctx context.Context, role string) bool {
	v := ctx.Value(rolesKey)
	if v == nil {
		return false
	}
	roles, ok := v.([]string)
	return ok && slices.Contains(roles, role)
}
