package kyc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/brdoc"
	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/obs"
	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrInvalidCPF is returned when the submitted CPF fails check-digit
	// validation.
	ErrInvalidCPF = errors.New("kyc: invalid cpf")
	// ErrInvalidDocType is returned for unsupported document types.
	ErrInvalidDocType = errors.New("kyc: invalid document type")
	// ErrDocumentTooLarge is returned when the upload exceeds the size cap.
	ErrDocumentTooLarge = errors.New("kyc: document too large")
	// ErrNotFound is returned when no submission exists.
	ErrNotFound = errors.New("kyc: submission not found")
	// ErrAlreadyDecided is returned when a reviewer re-decides a closed case.
	ErrAlreadyDecided = errors.New("kyc: submission already decided")
)

var docTypes = map[string]bool{"rg": true, "cnh": true, "passport": true}

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, d repo.KYCDocument) (repo.KYCDocument, error)
	Get(ctx context.Context, id uuid.UUID) (repo.KYCDocument, error)
	LatestByUser(ctx context.Context, userID uuid.UUID) (repo.KYCDocument, error)
	ListAwaitingReview(ctx context.Context, limit, offset int) ([]repo.KYCDocument, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, reason *string, reviewedBy *uuid.UUID) error
}

// Verifier screens a stored submission before it reaches a human
// reviewer. A production implementation would OCR the document image
// and compare it against the declared CPF.
type Verifier interface {
	Screen(ctx context.Context, doc repo.KYCDocument) (bool, error)
}

// ChecksumVerifier re-runs the CPF check digits over the stored value.
type ChecksumVerifier struct{}

// Screen implements Verifier.
func (ChecksumVerifier) Screen(_ context.Context, doc repo.KYCDocument) (bool, error) {
	return brdoc.ValidCPF(doc.CPF), nil
}

// Service handles identity-verification submissions and their review.
type Service struct {
	Docs     Store
	Storage  Storage
	Verifier Verifier
	Bus      *events.Bus
	MaxBytes int64
	Now      func() time.Time
}

// Submission is one incoming document upload.
type Submission struct {
	UserID      uuid.UUID
	CPF         string
	DocType     string
	ContentType string
	Body        []byte
}

// Submit validates, stores and registers one identity document. The
// submission lands in pending state for a back-office reviewer.
func (s *Service) Submit(ctx context.Context, sub Submission) (repo.KYCDocument, error) {
	result := "error"
	defer func() {
		if obs.KYCSubmissionTotal != nil {
			obs.KYCSubmissionTotal.WithLabelValues(result).Inc()
		}
	}()

	if !brdoc.ValidCPF(sub.CPF) {
		result = "invalid_cpf"
		return repo.KYCDocument{}, ErrInvalidCPF
	}
	docType := strings.ToLower(strings.TrimSpace(sub.DocType))
	if !docTypes[docType] {
		result = "invalid_doc_type"
		return repo.KYCDocument{}, ErrInvalidDocType
	}
	if s.MaxBytes > 0 && int64(len(sub.Body)) > s.MaxBytes {
		result = "too_large"
		return repo.KYCDocument{}, ErrDocumentTooLarge
	}

	key := s.objectKey(sub.UserID, docType)
	if err := s.Storage.Put(ctx, key, sub.ContentType, sub.Body); err != nil {
		return repo.KYCDocument{}, err
	}

	doc, err := s.Docs.Create(ctx, repo.KYCDocument{
		UserID:    sub.UserID,
		CPF:       brdoc.OnlyDigits(sub.CPF),
		DocType:   docType,
		ObjectKey: key,
		Status:    repo.KYCPending,
	})
	if err != nil {
		return repo.KYCDocument{}, err
	}

	// Automated screening that passes moves the document straight to
	// under_review; anything else stays pending for a human to look at.
	if s.Verifier != nil {
		if ok, screenErr := s.Verifier.Screen(ctx, doc); screenErr == nil && ok {
			if setErr := s.Docs.SetStatus(ctx, doc.ID, repo.KYCUnderReview, nil, nil); setErr == nil {
				doc.Status = repo.KYCUnderReview
			}
		}
	}

	if s.Bus != nil {
		_, _ = s.Bus.Emit(ctx, events.TopicKYCSubmitted, doc.ID, map[string]any{
			"userId":  doc.UserID.String(),
			"docType": doc.DocType,
		})
	}
	result = "accepted"
	return doc, nil
}

// StatusForUser returns the caller's most recent submission.
func (s *Service) StatusForUser(ctx context.Context, userID uuid.UUID) (repo.KYCDocument, error) {
	doc, err := s.Docs.LatestByUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.KYCDocument{}, ErrNotFound
	}
	return doc, err
}

// ListPending returns submissions awaiting review, oldest first.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]repo.KYCDocument, error) {
	return s.Docs.ListAwaitingReview(ctx, limit, offset)
}

// Review decides a pending submission. Approved and rejected are final;
// a rejection carries the reviewer's reason back to the customer.
func (s *Service) Review(ctx context.Context, id uuid.UUID, approve bool, reason string, reviewedBy uuid.UUID) (repo.KYCDocument, error) {
	doc, err := s.Docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.KYCDocument{}, ErrNotFound
		}
		return repo.KYCDocument{}, err
	}
	if doc.Status == repo.KYCApproved || doc.Status == repo.KYCRejected {
		return repo.KYCDocument{}, ErrAlreadyDecided
	}

	status := repo.KYCApproved
	var reasonPtr *string
	if !approve {
		status = repo.KYCRejected
		if reason != "" {
			reasonPtr = &reason
		}
	}
	if err := s.Docs.SetStatus(ctx, id, status, reasonPtr, &reviewedBy); err != nil {
		return repo.KYCDocument{}, err
	}
	doc.Status = status
	doc.Reason = reasonPtr
	doc.ReviewedBy = &reviewedBy
	now := s.now()
	doc.ReviewedAt = &now

	if s.Bus != nil {
		payload := map[string]any{
			"userId": doc.UserID.String(),
			"status": status,
		}
		if reasonPtr != nil {
			payload["reason"] = *reasonPtr
		}
		_, _ = s.Bus.Emit(ctx, events.TopicKYCReviewed, doc.ID, payload)
	}
	return doc, nil
}

func (s *Service) objectKey(userID uuid.UUID, docType string) string {
	return fmt.Sprintf("kyc/%s/%s-%d", userID, docType, s.now().UnixNano())
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
