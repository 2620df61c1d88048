// Package favorites keeps the customer wishlist.
package favorites

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/repo"
)

// ErrProductNotFound is returned when the product does not exist or is inactive.
var ErrProductNotFound = errors.New("favorites: product not found")

// Store persists wishlist entries.
type Store interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repo.Favorite, error)
}

// ProductSource checks products before they enter a wishlist.
type ProductSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (repo.Product, error)
}

// Service orchestrates wishlist operations.
type Service struct {
	Favorites Store
	Products  ProductSource
}

// Add puts a product on the caller's wishlist. Re-adding is a no-op.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}
	if !product.Active {
		return ErrProductNotFound
	}
	return s.Favorites.Add(ctx, userID, productID)
}

// Remove drops a product from the wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	removed, err := s.Favorites.Remove(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrProductNotFound
	}
	return nil
}

// List returns the caller's wishlist, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]repo.Favorite, error) {
	return s.Favorites.ListByUser(ctx, userID)
}
