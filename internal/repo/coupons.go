package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Coupons persists coupon rules and their usage records.
type Coupons struct {
	DB DB
}

// WithTx returns a copy bound to the given transaction.
func (r Coupons) WithTx(tx pgx.Tx) Coupons {
	return Coupons{DB: tx}
}

const couponColumns = `id, code, type, percent, amount_cents, valid_from, valid_until,
	max_uses, used_count, min_purchase_cents, active, created_at, updated_at`

func scanCoupon(row pgx.Row) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Type, &c.Percent, &c.AmountCents, &c.ValidFrom,
		&c.ValidUntil, &c.MaxUses, &c.UsedCount, &c.MinPurchaseCents, &c.Active,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// GetByCode fetches a coupon by its normalized code.
func (r Coupons) GetByCode(ctx context.Context, code string) (Coupon, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	return scanCoupon(row)
}

// GetByCodeForUpdate locks the coupon row for settlement.
func (r Coupons) GetByCodeForUpdate(ctx context.Context, code string) (Coupon, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code)
	return scanCoupon(row)
}

// List returns coupons ordered by creation time, newest first.
func (r Coupons) List(ctx context.Context, limit, offset int) ([]Coupon, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a coupon rule and returns the stored row.
func (r Coupons) Create(ctx context.Context, c Coupon) (Coupon, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO coupons (code, type, percent, amount_cents, valid_from, valid_until,
			max_uses, min_purchase_cents, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+couponColumns,
		c.Code, c.Type, c.Percent, c.AmountCents, c.ValidFrom, c.ValidUntil,
		c.MaxUses, c.MinPurchaseCents, c.Active)
	return scanCoupon(row)
}

// Update replaces the mutable fields of a coupon identified by code.
func (r Coupons) Update(ctx context.Context, c Coupon) (Coupon, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE coupons SET type = $2, percent = $3, amount_cents = $4, valid_from = $5,
			valid_until = $6, max_uses = $7, min_purchase_cents = $8, active = $9,
			updated_at = now()
		WHERE code = $1
		RETURNING `+couponColumns,
		c.Code, c.Type, c.Percent, c.AmountCents, c.ValidFrom, c.ValidUntil,
		c.MaxUses, c.MinPurchaseCents, c.Active)
	return scanCoupon(row)
}

// GetUsageByOrder looks up the settlement record for an order, if any.
func (r Coupons) GetUsageByOrder(ctx context.Context, couponID, orderID uuid.UUID) (CouponUsage, error) {
	var u CouponUsage
	err := r.DB.QueryRow(ctx, `
		SELECT id, coupon_id, order_id, user_id, amount_cents, created_at
		FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2`,
		couponID, orderID).
		Scan(&u.ID, &u.CouponID, &u.OrderID, &u.UserID, &u.AmountCents, &u.CreatedAt)
	return u, err
}

// InsertUsage records one settled application of a coupon.
func (r Coupons) InsertUsage(ctx context.Context, couponID, orderID uuid.UUID, userID *uuid.UUID, amountCents int64) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO coupon_usages (coupon_id, order_id, user_id, amount_cents)
		VALUES ($1, $2, $3, $4)`,
		couponID, orderID, userID, amountCents)
	return err
}

// IncrementUsedCount bumps the global usage counter.
func (r Coupons) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1, updated_at = now() WHERE id = $1`, couponID)
	return err
}
