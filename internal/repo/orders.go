package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Orders persists orders and their frozen lines.
type Orders struct {
	DB DB
}

// WithTx returns a copy bound to the given transaction.
func (r Orders) WithTx(tx pgx.Tx) Orders {
	return Orders{DB: tx}
}

const orderColumns = `id, user_id, status, subtotal_cents, freight_cents, discount_cents,
	total_cents, coupon_code, payment_method, installment_count, installment_amount_cents,
	shipping_address, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.SubtotalCents, &o.FreightCents,
		&o.DiscountCents, &o.TotalCents, &o.CouponCode, &o.PaymentMethod,
		&o.InstallmentCount, &o.InstallmentAmountCents, &o.ShippingAddress, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts an order with its pricing breakdown frozen.
func (r Orders) Create(ctx context.Context, o Order) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, subtotal_cents, freight_cents, discount_cents,
			total_cents, coupon_code, payment_method, installment_count,
			installment_amount_cents, shipping_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+orderColumns,
		o.UserID, o.Status, o.SubtotalCents, o.FreightCents, o.DiscountCents, o.TotalCents,
		o.CouponCode, o.PaymentMethod, o.InstallmentCount, o.InstallmentAmountCents,
		o.ShippingAddress, o.Notes)
	return scanOrder(row)
}

// InsertItem freezes one product line onto an order.
func (r Orders) InsertItem(ctx context.Context, it OrderItem) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, title, qty, unit_price_cents, subtotal_cents)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.OrderID, it.ProductID, it.Title, it.Qty, it.UnitPriceCents, it.SubtotalCents)
	return err
}

// Get fetches one order by id.
func (r Orders) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetForUpdate locks an order row for a status transition.
func (r Orders) GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

// ListByUser returns a user's orders, newest first.
func (r Orders) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListItems returns the frozen lines of an order.
func (r Orders) ListItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, title, qty, unit_price_cents, subtotal_cents
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Qty,
			&it.UnitPriceCents, &it.SubtotalCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SetStatus transitions the order status.
func (r Orders) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// SetPayment stores the chosen payment method and installment plan.
func (r Orders) SetPayment(ctx context.Context, id uuid.UUID, method string, installmentCount *int32, installmentAmountCents *int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_method = $2, installment_count = $3,
			installment_amount_cents = $4, updated_at = now()
		WHERE id = $1`, id, method, installmentCount, installmentAmountCents)
	return err
}
