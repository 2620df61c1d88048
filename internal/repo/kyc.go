package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// KYCDocuments persists identity-verification submissions.
type KYCDocuments struct {
	DB DB
}

const kycColumns = `id, user_id, cpf, doc_type, object_key, status, reason,
	submitted_at, reviewed_at, reviewed_by`

func scanKYC(row pgx.Row) (KYCDocument, error) {
	var d KYCDocument
	err := row.Scan(&d.ID, &d.UserID, &d.CPF, &d.DocType, &d.ObjectKey, &d.Status,
		&d.Reason, &d.SubmittedAt, &d.ReviewedAt, &d.ReviewedBy)
	return d, err
}

// Create inserts a new submission in pending state.
func (r KYCDocuments) Create(ctx context.Context, d KYCDocument) (KYCDocument, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO kyc_documents (user_id, cpf, doc_type, object_key, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+kycColumns,
		d.UserID, d.CPF, d.DocType, d.ObjectKey, d.Status)
	return scanKYC(row)
}

// Get fetches one submission by id.
func (r KYCDocuments) Get(ctx context.Context, id uuid.UUID) (KYCDocument, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+kycColumns+` FROM kyc_documents WHERE id = $1`, id)
	return scanKYC(row)
}

// LatestByUser returns a user's most recent submission.
func (r KYCDocuments) LatestByUser(ctx context.Context, userID uuid.UUID) (KYCDocument, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+kycColumns+` FROM kyc_documents WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT 1`,
		userID)
	return scanKYC(row)
}

// ListByStatus returns submissions awaiting a given state, oldest first.
func (r KYCDocuments) ListByStatus(ctx context.Context, status string, limit, offset int) ([]KYCDocument, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+kycColumns+` FROM kyc_documents WHERE status = $1 ORDER BY submitted_at LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KYCDocument
	for rows.Next() {
		d, err := scanKYC(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListAwaitingReview returns undecided submissions, oldest first.
func (r KYCDocuments) ListAwaitingReview(ctx context.Context, limit, offset int) ([]KYCDocument, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+kycColumns+` FROM kyc_documents
		 WHERE status IN ('pending', 'under_review')
		 ORDER BY submitted_at LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KYCDocument
	for rows.Next() {
		d, err := scanKYC(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetStatus records a state transition, with an optional rejection reason.
func (r KYCDocuments) SetStatus(ctx context.Context, id uuid.UUID, status string, reason *string, reviewedBy *uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE kyc_documents SET status = $2, reason = $3, reviewed_by = $4,
			reviewed_at = CASE WHEN $2 IN ('approved', 'rejected') THEN now() ELSE reviewed_at END
		WHERE id = $1`, id, status, reason, reviewedBy)
	return err
}
