package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Payment statuses.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
	PaymentExpired = "EXPIRED"
)

// Payment is one charge attempt against an order.
type Payment struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"orderId"`
	Provider    string     `json:"provider"`
	Status      string     `json:"status"`
	AmountCents int64      `json:"amountCents"`
	IntentToken *string    `json:"intentToken,omitempty"`
	Payload     []byte     `json:"payload,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Payments persists charge attempts.
type Payments struct {
	DB DB
}

// WithTx returns a copy bound to the given transaction.
func (r Payments) WithTx(tx pgx.Tx) Payments {
	return Payments{DB: tx}
}

const paymentColumns = `id, order_id, provider, status, amount_cents, intent_token,
	payload, expires_at, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.Status, &p.AmountCents,
		&p.IntentToken, &p.Payload, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a pending charge.
func (r Payments) Create(ctx context.Context, p Payment) (Payment, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO payments (order_id, provider, status, amount_cents, intent_token, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+paymentColumns,
		p.OrderID, p.Provider, p.Status, p.AmountCents, p.IntentToken, p.Payload, p.ExpiresAt)
	return scanPayment(row)
}

// GetLatestByOrder returns the most recent charge for an order.
func (r Payments) GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, orderID)
	return scanPayment(row)
}

// SetStatus transitions a charge and stores the provider payload.
func (r Payments) SetStatus(ctx context.Context, id uuid.UUID, status string, payload []byte) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payments SET status = $2, payload = coalesce($3, payload), updated_at = now()
		WHERE id = $1`, id, status, payload)
	return err
}
