// Package audit records who did what in the back-office. Every admin
// mutation leaves a row; the trail is queryable from the admin API.
package audit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/obs"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// Actor kinds.
const (
	ActorUser      = "user"
	ActorSystem    = "system"
	ActorAnonymous = "anonymous"
)

// Store defines the database operations auditing needs.
type Store interface {
	Insert(ctx context.Context, a repo.AuditLog) (repo.AuditLog, error)
	List(ctx context.Context, limit, offset int) ([]repo.AuditLog, error)
}

// Service persists audit entries.
type Service struct {
	Store   Store
	Enabled bool
}

// Record persists one audit entry. action defaults to "METHOD route",
// resourceType to the route segments under /api/v1.
func (s Service) Record(ctx context.Context, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}

	entry := repo.AuditLog{
		ActorKind:    ActorAnonymous,
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		Method:       req.Method,
		Path:         req.URL.Path,
		Status:       int32(statusOr200(status)),
		Metadata:     metadata,
	}
	if raw, ok := common.UserID(req.Context()); ok {
		if userID, err := uuid.Parse(raw); err == nil {
			entry.ActorKind = ActorUser
			entry.ActorUserID = &userID
		}
	}
	if v := strings.TrimSpace(resourceID); v != "" {
		entry.ResourceID = &v
	}
	if v := common.ClientIP(req); v != "" {
		entry.IP = &v
	}
	if v := strings.TrimSpace(req.Header.Get("X-Request-ID")); v != "" {
		entry.RequestID = &v
	}

	_, err := s.Store.Insert(ctx, entry)
	return err
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(method) + " " + route
}

func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	if route == "" || route == "/" {
		return "unknown"
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func statusOr200(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
