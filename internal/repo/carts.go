package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Carts persists carts and their items.
type Carts struct {
	DB DB
}

// WithTx returns a copy bound to the given transaction.
func (r Carts) WithTx(tx pgx.Tx) Carts {
	return Carts{DB: tx}
}

// Create opens a new cart, optionally owned by a user.
func (r Carts) Create(ctx context.Context, userID *uuid.UUID) (Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		RETURNING id, user_id, coupon_code, created_at, updated_at`, userID).
		Scan(&c.ID, &c.UserID, &c.CouponCode, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Get fetches a cart by id.
func (r Carts) Get(ctx context.Context, id uuid.UUID) (Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, coupon_code, created_at, updated_at FROM carts WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.CouponCode, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// SetCoupon stores (or clears, with nil) the applied coupon code.
func (r Carts) SetCoupon(ctx context.Context, id uuid.UUID, code *string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE carts SET coupon_code = $2, updated_at = now() WHERE id = $1`, id, code)
	return err
}

// UpsertItem adds a product line or bumps its quantity and frozen subtotal.
func (r Carts) UpsertItem(ctx context.Context, item CartItem) (CartItem, error) {
	var out CartItem
	err := r.DB.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, title, qty, unit_price_cents, subtotal_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			qty = cart_items.qty + EXCLUDED.qty,
			subtotal_cents = (cart_items.qty + EXCLUDED.qty) * cart_items.unit_price_cents
		RETURNING id, cart_id, product_id, title, qty, unit_price_cents, subtotal_cents`,
		item.CartID, item.ProductID, item.Title, item.Qty, item.UnitPriceCents, item.SubtotalCents).
		Scan(&out.ID, &out.CartID, &out.ProductID, &out.Title, &out.Qty, &out.UnitPriceCents, &out.SubtotalCents)
	return out, err
}

// UpdateItemQty sets the quantity of one cart line.
func (r Carts) UpdateItemQty(ctx context.Context, cartID, itemID uuid.UUID, qty int32) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET qty = $3, subtotal_cents = $3 * unit_price_cents
		WHERE cart_id = $1 AND id = $2`, cartID, itemID, qty)
	return err
}

// RemoveItem deletes one cart line.
func (r Carts) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	return err
}

// ListItems returns all lines of a cart.
func (r Carts) ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, cart_id, product_id, title, qty, unit_price_cents, subtotal_cents
		FROM cart_items WHERE cart_id = $1 ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Title, &it.Qty,
			&it.UnitPriceCents, &it.SubtotalCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
