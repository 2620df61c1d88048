package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SalesDay is one day of settled-order aggregates.
type SalesDay struct {
	Day           time.Time `json:"day"`
	Orders        int64     `json:"orders"`
	RevenueCents  int64     `json:"revenueCents"`
	DiscountCents int64     `json:"discountCents"`
	FreightCents  int64     `json:"freightCents"`
}

// TopProduct aggregates how a product sold across settled orders.
type TopProduct struct {
	ProductID    uuid.UUID `json:"productId"`
	Title        string    `json:"title"`
	UnitsSold    int64     `json:"unitsSold"`
	RevenueCents int64     `json:"revenueCents"`
}

// SalesOverview is the dashboard headline row.
type SalesOverview struct {
	Orders          int64 `json:"orders"`
	RevenueCents    int64 `json:"revenueCents"`
	AvgTicketCents  int64 `json:"avgTicketCents"`
	DiscountCents   int64 `json:"discountCents"`
	InstallmentPlan int64 `json:"installmentOrders"`
}

// Analytics runs read-only aggregates over settled orders. Settled means
// paid or further along the lifecycle.
type Analytics struct {
	DB DB
}

const settledStatuses = `('PAID', 'SHIPPED', 'DELIVERED')`

// SalesDaily aggregates settled orders per day, from inclusive, to exclusive.
func (r Analytics) SalesDaily(ctx context.Context, from, to time.Time) ([]SalesDay, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
			count(*),
			coalesce(sum(total_cents), 0),
			coalesce(sum(discount_cents), 0),
			coalesce(sum(freight_cents), 0)
		FROM orders
		WHERE status IN `+settledStatuses+` AND created_at >= $1 AND created_at < $2
		GROUP BY day ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SalesDay
	for rows.Next() {
		var d SalesDay
		if err := rows.Scan(&d.Day, &d.Orders, &d.RevenueCents, &d.DiscountCents, &d.FreightCents); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopProducts ranks products by units sold across settled orders.
func (r Analytics) TopProducts(ctx context.Context, from, to time.Time, limit, offset int) ([]TopProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.product_id, oi.title,
			coalesce(sum(oi.qty), 0),
			coalesce(sum(oi.subtotal_cents), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status IN `+settledStatuses+` AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY oi.product_id, oi.title
		ORDER BY sum(oi.qty) DESC, oi.title
		LIMIT $3 OFFSET $4`, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProduct
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductID, &p.Title, &p.UnitsSold, &p.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Overview returns the headline aggregates for the given window.
func (r Analytics) Overview(ctx context.Context, from, to time.Time) (SalesOverview, error) {
	var o SalesOverview
	err := r.DB.QueryRow(ctx, `
		SELECT count(*),
			coalesce(sum(total_cents), 0),
			coalesce(avg(total_cents), 0)::bigint,
			coalesce(sum(discount_cents), 0),
			count(*) FILTER (WHERE installment_count IS NOT NULL AND installment_count > 1)
		FROM orders
		WHERE status IN `+settledStatuses+` AND created_at >= $1 AND created_at < $2`,
		from, to).
		Scan(&o.Orders, &o.RevenueCents, &o.AvgTicketCents, &o.DiscountCents, &o.InstallmentPlan)
	return o, err
}
