package kyc

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/repo"
)

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) Put(_ context.Context, key, _ string, body []byte) error {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return nil
}

type memDocs struct {
	rows map[uuid.UUID]repo.KYCDocument
}

func (m *memDocs) Create(_ context.Context, d repo.KYCDocument) (repo.KYCDocument, error) {
	d.ID = uuid.New()
	d.SubmittedAt = time.Now()
	m.rows[d.ID] = d
	return d, nil
}

func (m *memDocs) Get(_ context.Context, id uuid.UUID) (repo.KYCDocument, error) {
	d, ok := m.rows[id]
	if !ok {
		return repo.KYCDocument{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memDocs) LatestByUser(_ context.Context, userID uuid.UUID) (repo.KYCDocument, error) {
	var latest repo.KYCDocument
	found := false
	for _, d := range m.rows {
		if d.UserID == userID && (!found || d.SubmittedAt.After(latest.SubmittedAt)) {
			latest = d
			found = true
		}
	}
	if !found {
		return repo.KYCDocument{}, pgx.ErrNoRows
	}
	return latest, nil
}

func (m *memDocs) ListAwaitingReview(_ context.Context, _, _ int) ([]repo.KYCDocument, error) {
	var out []repo.KYCDocument
	for _, d := range m.rows {
		if d.Status == repo.KYCPending || d.Status == repo.KYCUnderReview {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocs) SetStatus(_ context.Context, id uuid.UUID, status string, reason *string, reviewedBy *uuid.UUID) error {
	d := m.rows[id]
	d.Status = status
	d.Reason = reason
	d.ReviewedBy = reviewedBy
	m.rows[id] = d
	return nil
}

type memEventStore struct {
	rows []repo.DomainEvent
}

func (m *memEventStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (repo.DomainEvent, error) {
	ev := repo.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	m.rows = append(m.rows, ev)
	return ev, nil
}

func testKYCService() (*Service, *memStorage, *memDocs, *memEventStore) {
	storage := &memStorage{}
	docs := &memDocs{rows: map[uuid.UUID]repo.KYCDocument{}}
	evs := &memEventStore{}
	svc := &Service{
		Docs:     docs,
		Storage:  storage,
		Bus:      &events.Bus{Store: evs},
		MaxBytes: 1 << 20,
	}
	return svc, storage, docs, evs
}

func TestSubmitStoresDocumentAndEmitsEvent(t *testing.T) {
	svc, storage, _, evs := testKYCService()

	doc, err := svc.Submit(context.Background(), Submission{
		UserID:      uuid.New(),
		CPF:         "111.444.777-35",
		DocType:     "CNH",
		ContentType: "image/jpeg",
		Body:        []byte("front-and-back"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Status != repo.KYCPending {
		t.Fatalf("status = %q", doc.Status)
	}
	if doc.CPF != "11144477735" {
		t.Fatalf("cpf must be stored as digits, got %q", doc.CPF)
	}
	if doc.DocType != "cnh" {
		t.Fatalf("docType = %q", doc.DocType)
	}
	if !bytes.Equal(storage.objects[doc.ObjectKey], []byte("front-and-back")) {
		t.Fatal("document body not stored")
	}
	if len(evs.rows) != 1 || evs.rows[0].Topic != events.TopicKYCSubmitted {
		t.Fatalf("events = %+v", evs.rows)
	}
}

func TestSubmitScreensIntoUnderReview(t *testing.T) {
	svc, _, docs, _ := testKYCService()
	svc.Verifier = ChecksumVerifier{}

	doc, err := svc.Submit(context.Background(), Submission{
		UserID: uuid.New(), CPF: "111.444.777-35", DocType: "rg", Body: []byte("x"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if doc.Status != repo.KYCUnderReview {
		t.Fatalf("status = %q, want %q", doc.Status, repo.KYCUnderReview)
	}
	if docs.rows[doc.ID].Status != repo.KYCUnderReview {
		t.Fatal("screened status not persisted")
	}
	queue, err := svc.ListPending(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue = %d, want 1", len(queue))
	}
}

func TestSubmitRejectsInvalidCPF(t *testing.T) {
	svc, storage, _, _ := testKYCService()
	_, err := svc.Submit(context.Background(), Submission{
		UserID: uuid.New(), CPF: "111.111.111-11", DocType: "rg", Body: []byte("x"),
	})
	if !errors.Is(err, ErrInvalidCPF) {
		t.Fatalf("expected ErrInvalidCPF, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatal("rejected submission must not be stored")
	}
}

func TestSubmitRejectsUnknownDocType(t *testing.T) {
	svc, _, _, _ := testKYCService()
	_, err := svc.Submit(context.Background(), Submission{
		UserID: uuid.New(), CPF: "11144477735", DocType: "selfie", Body: []byte("x"),
	})
	if !errors.Is(err, ErrInvalidDocType) {
		t.Fatalf("expected ErrInvalidDocType, got %v", err)
	}
}

func TestSubmitRejectsOversizedDocument(t *testing.T) {
	svc, _, _, _ := testKYCService()
	svc.MaxBytes = 8
	_, err := svc.Submit(context.Background(), Submission{
		UserID: uuid.New(), CPF: "11144477735", DocType: "rg", Body: bytes.Repeat([]byte("a"), 9),
	})
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}
}

func TestReviewApproveAndRejectAreFinal(t *testing.T) {
	svc, _, docs, evs := testKYCService()
	userID := uuid.New()
	doc, err := svc.Submit(context.Background(), Submission{
		UserID: userID, CPF: "11144477735", DocType: "rg", Body: []byte("x"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewer := uuid.New()
	reviewed, err := svc.Review(context.Background(), doc.ID, false, "blurry photo", reviewer)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != repo.KYCRejected {
		t.Fatalf("status = %q", reviewed.Status)
	}
	if reviewed.Reason == nil || *reviewed.Reason != "blurry photo" {
		t.Fatalf("reason = %v", reviewed.Reason)
	}
	if docs.rows[doc.ID].Status != repo.KYCRejected {
		t.Fatal("decision not persisted")
	}

	if _, err := svc.Review(context.Background(), doc.ID, true, "", reviewer); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	var reviewedEvents int
	for _, ev := range evs.rows {
		if ev.Topic == events.TopicKYCReviewed {
			reviewedEvents++
		}
	}
	if reviewedEvents != 1 {
		t.Fatalf("kyc.reviewed events = %d, want 1", reviewedEvents)
	}
}

func TestStatusForUserReturnsLatest(t *testing.T) {
	svc, _, _, _ := testKYCService()
	userID := uuid.New()
	if _, err := svc.StatusForUser(context.Background(), userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), Submission{
		UserID: userID, CPF: "11144477735", DocType: "rg", Body: []byte("x"),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	doc, err := svc.StatusForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if doc.Status != repo.KYCPending {
		t.Fatalf("status = %q", doc.Status)
	}
}
