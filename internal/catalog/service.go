// Package catalog serves the storefront's product listing and detail
// pages, including the installment teaser rendered on every price tag.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// ErrNotFound is returned when a product slug does not exist.
var ErrNotFound = errors.New("catalog: product not found")

// Querier is the catalog's read surface over the products table.
type Querier interface {
	List(ctx context.Context, category string, limit, offset int) ([]repo.Product, error)
	Count(ctx context.Context, category string) (int, error)
	GetBySlug(ctx context.Context, slug string) (repo.Product, error)
}

// SettingsSource supplies the live financing configuration.
type SettingsSource interface {
	Installments(ctx context.Context) (repo.InstallmentSettings, error)
}

// ProductView is a catalog entry decorated with display pricing.
type ProductView struct {
	repo.Product
	PriceFormatted string `json:"priceFormatted"`
	// Teaser is the "Nx de R$ Y" line shown under the price, empty when
	// installments are disabled or the price is below the minimum.
	Teaser string `json:"installmentTeaser,omitempty"`
}

// ProductDetail is the full product page payload.
type ProductDetail struct {
	ProductView
	InstallmentOptions []pricing.Option `json:"installmentOptions,omitempty"`
}

// ListResult carries one page of products plus the unfiltered total.
type ListResult struct {
	Items []ProductView `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// Service composes catalog reads with installment display pricing.
type Service struct {
	Products Querier
	Settings SettingsSource
	Cache    *Cache
}

// ListProducts returns one page of active products, cache-aside on Redis.
func (s *Service) ListProducts(ctx context.Context, category string, page, limit int) (ListResult, error) {
	key := fmt.Sprintf("loja:catalog:list:%s:%d:%d", category, page, limit)
	var cached ListResult
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	products, err := s.Products.List(ctx, category, limit, (page-1)*limit)
	if err != nil {
		return ListResult{}, err
	}
	total, err := s.Products.Count(ctx, category)
	if err != nil {
		return ListResult{}, err
	}
	settings, err := s.settings(ctx)
	if err != nil {
		return ListResult{}, err
	}

	items := make([]ProductView, 0, len(products))
	for _, p := range products {
		items = append(items, s.view(p, settings))
	}
	result := ListResult{Items: items, Total: total, Page: page, Limit: limit}
	_ = s.Cache.SetJSON(ctx, key, result)
	return result, nil
}

// GetDetail returns the product page payload with the full installment grid.
func (s *Service) GetDetail(ctx context.Context, slug string) (ProductDetail, error) {
	key := "loja:catalog:detail:" + slug
	var cached ProductDetail
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	product, err := s.Products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductDetail{}, ErrNotFound
		}
		return ProductDetail{}, err
	}
	if !product.Active {
		return ProductDetail{}, ErrNotFound
	}
	settings, err := s.settings(ctx)
	if err != nil {
		return ProductDetail{}, err
	}

	detail := ProductDetail{ProductView: s.view(product, settings)}
	if settings.Enabled && product.PriceCents >= settings.MinPurchaseCents {
		detail.InstallmentOptions = pricing.Options(
			pricing.FromCents(product.PriceCents),
			int(settings.MaxInstallments),
			settings.MonthlyRatePercent,
		)
	}
	_ = s.Cache.SetJSON(ctx, key, detail)
	return detail, nil
}

func (s *Service) view(p repo.Product, settings repo.InstallmentSettings) ProductView {
	v := ProductView{Product: p, PriceFormatted: pricing.FormatCents(p.PriceCents)}
	if !settings.Enabled || p.PriceCents < settings.MinPurchaseCents || settings.MaxInstallments < 2 {
		return v
	}
	amount, err := pricing.Installment(
		pricing.FromCents(p.PriceCents),
		int(settings.MaxInstallments),
		settings.MonthlyRatePercent,
	)
	if err != nil {
		return v
	}
	v.Teaser = fmt.Sprintf("%dx de %s", settings.MaxInstallments, pricing.FormatBRL(amount))
	return v
}

func (s *Service) settings(ctx context.Context) (repo.InstallmentSettings, error) {
	if s.Settings == nil {
		return repo.InstallmentSettings{}, nil
	}
	return s.Settings.Installments(ctx)
}

// Handler exposes public catalog endpoints.
type Handler struct {
	Service *Service
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 20, 100)
	category := r.URL.Query().Get("category")
	result, err := h.Service.ListProducts(r.Context(), category, page, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.NewPagination(result.Page, result.Limit, result.Total),
	})
}

// ProductDetail handles GET /api/v1/products/{slug}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	detail, err := h.Service.GetDetail(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}
