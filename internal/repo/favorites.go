package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Favorite is one wishlist entry joined with its product snapshot.
type Favorite struct {
	ProductID  uuid.UUID `json:"productId"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"priceCents"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Favorites persists the customer wishlist.
type Favorites struct {
	DB DB
}

// Add inserts a wishlist entry; re-adding is a no-op.
func (r Favorites) Add(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO favorites (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID)
	return err
}

// Remove deletes a wishlist entry.
func (r Favorites) Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser returns the wishlist with product snapshots, newest first.
func (r Favorites) ListByUser(ctx context.Context, userID uuid.UUID) ([]Favorite, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT f.product_id, p.slug, p.title, p.price_cents, p.active, f.created_at
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ProductID, &f.Slug, &f.Title, &f.PriceCents, &f.Active, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
