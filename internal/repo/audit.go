package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditLog records one back-office action.
type AuditLog struct {
	ID           uuid.UUID  `json:"id"`
	ActorKind    string     `json:"actorKind"`
	ActorUserID  *uuid.UUID `json:"actorUserId,omitempty"`
	Action       string     `json:"action"`
	ResourceType string     `json:"resourceType"`
	ResourceID   *string    `json:"resourceId,omitempty"`
	Method       string     `json:"method"`
	Path         string     `json:"path"`
	Status       int32      `json:"status"`
	IP           *string    `json:"ip,omitempty"`
	RequestID    *string    `json:"requestId,omitempty"`
	Metadata     []byte     `json:"metadata,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// AuditLogs persists the admin audit trail.
type AuditLogs struct {
	DB DB
}

const auditColumns = `id, actor_kind, actor_user_id, action, resource_type, resource_id,
	method, path, status, ip, request_id, metadata, created_at`

func scanAuditLog(row pgx.Row) (AuditLog, error) {
	var a AuditLog
	err := row.Scan(&a.ID, &a.ActorKind, &a.ActorUserID, &a.Action, &a.ResourceType,
		&a.ResourceID, &a.Method, &a.Path, &a.Status, &a.IP, &a.RequestID,
		&a.Metadata, &a.CreatedAt)
	return a, err
}

// Insert stores one audit entry.
func (r AuditLogs) Insert(ctx context.Context, a AuditLog) (AuditLog, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO audit_logs (actor_kind, actor_user_id, action, resource_type,
			resource_id, method, path, status, ip, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+auditColumns,
		a.ActorKind, a.ActorUserID, a.Action, a.ResourceType, a.ResourceID,
		a.Method, a.Path, a.Status, a.IP, a.RequestID, a.Metadata)
	return scanAuditLog(row)
}

// List returns audit entries, newest first.
func (r AuditLogs) List(ctx context.Context, limit, offset int) ([]AuditLog, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
