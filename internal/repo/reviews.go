package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Review is one customer rating of a product.
type Review struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	UserID    uuid.UUID `json:"userId"`
	Rating    int32     `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReviewStats aggregates a product's rating.
type ReviewStats struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// Reviews persists product reviews.
type Reviews struct {
	DB DB
}

const reviewColumns = `id, product_id, user_id, rating, comment, created_at, updated_at`

func scanReview(row pgx.Row) (Review, error) {
	var v Review
	err := row.Scan(&v.ID, &v.ProductID, &v.UserID, &v.Rating, &v.Comment, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Upsert creates or replaces the caller's review of a product.
func (r Reviews) Upsert(ctx context.Context, v Review) (Review, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO reviews (product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, user_id) DO UPDATE SET
			rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = now()
		RETURNING `+reviewColumns,
		v.ProductID, v.UserID, v.Rating, v.Comment)
	return scanReview(row)
}

// ListByProduct returns reviews for a product, newest first.
func (r Reviews) ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]Review, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		v, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Stats aggregates the product's rating.
func (r Reviews) Stats(ctx context.Context, productID uuid.UUID) (ReviewStats, error) {
	var s ReviewStats
	err := r.DB.QueryRow(ctx,
		`SELECT count(*), coalesce(avg(rating), 0) FROM reviews WHERE product_id = $1`,
		productID).Scan(&s.Count, &s.Average)
	return s, err
}

// Delete removes the caller's review.
func (r Reviews) Delete(ctx context.Context, userID, reviewID uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM reviews WHERE id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
