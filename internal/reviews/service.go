// Package reviews handles product ratings on the storefront.
package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/repo"
)

var (
	// ErrProductNotFound is returned for unknown or inactive products.
	ErrProductNotFound = errors.New("reviews: product not found")
	// ErrInvalidRating is returned when the rating falls outside 1..5.
	ErrInvalidRating = errors.New("reviews: rating out of range")
	// ErrNotFound is returned when the review does not exist.
	ErrNotFound = errors.New("reviews: review not found")
)

// Store persists reviews.
type Store interface {
	Upsert(ctx context.Context, v repo.Review) (repo.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit, offset int) ([]repo.Review, error)
	Stats(ctx context.Context, productID uuid.UUID) (repo.ReviewStats, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID) (bool, error)
}

// ProductSource resolves products by slug.
type ProductSource interface {
	GetBySlug(ctx context.Context, slug string) (repo.Product, error)
}

// Service orchestrates review operations.
type Service struct {
	Reviews  Store
	Products ProductSource
}

// ListResult is a page of reviews plus the product's aggregate rating.
type ListResult struct {
	Reviews []repo.Review    `json:"reviews"`
	Stats   repo.ReviewStats `json:"stats"`
}

// Submit creates or replaces the caller's review. One review per product
// per customer.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, slug string, rating int32, comment string) (repo.Review, error) {
	if rating < 1 || rating > 5 {
		return repo.Review{}, ErrInvalidRating
	}
	product, err := s.product(ctx, slug)
	if err != nil {
		return repo.Review{}, err
	}
	review := repo.Review{ProductID: product.ID, UserID: userID, Rating: rating}
	if c := strings.TrimSpace(comment); c != "" {
		review.Comment = &c
	}
	return s.Reviews.Upsert(ctx, review)
}

// List returns a page of reviews with the aggregate rating.
func (s *Service) List(ctx context.Context, slug string, limit, offset int) (ListResult, error) {
	product, err := s.product(ctx, slug)
	if err != nil {
		return ListResult{}, err
	}
	rows, err := s.Reviews.ListByProduct(ctx, product.ID, limit, offset)
	if err != nil {
		return ListResult{}, err
	}
	stats, err := s.Reviews.Stats(ctx, product.ID)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Reviews: rows, Stats: stats}, nil
}

// Delete removes the caller's review.
func (s *Service) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	deleted, err := s.Reviews.Delete(ctx, userID, reviewID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) product(ctx context.Context, slug string) (repo.Product, error) {
	product, err := s.Products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Product{}, ErrProductNotFound
		}
		return repo.Product{}, err
	}
	if !product.Active {
		return repo.Product{}, ErrProductNotFound
	}
	return product, nil
}
