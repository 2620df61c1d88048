package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Products reads the catalog.
type Products struct {
	DB DB
}

const productColumns = `id, slug, title, brand, category, description, price_cents,
	stock_qty, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Brand, &p.Category, &p.Description,
		&p.PriceCents, &p.StockQty, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns active products, optionally filtered by category, newest first.
func (r Products) List(ctx context.Context, category string, limit, offset int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active
		AND ($1 = '' OR category = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of active products matching the filter.
func (r Products) Count(ctx context.Context, category string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE active AND ($1 = '' OR category = $1)`, category).Scan(&n)
	return n, err
}

// GetBySlug fetches one product by slug.
func (r Products) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanProduct(row)
}

// GetByID fetches one product by id.
func (r Products) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}
