// Package analytics serves the back-office dashboard aggregates, cached
// in Redis so dashboard polling never hammers the orders tables.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lojamovel/backend-loja/internal/repo"
)

// Querier defines the database access analytics needs.
type Querier interface {
	SalesDaily(ctx context.Context, from, to time.Time) ([]repo.SalesDay, error)
	TopProducts(ctx context.Context, from, to time.Time, limit, offset int) ([]repo.TopProduct, error)
	Overview(ctx context.Context, from, to time.Time) (repo.SalesOverview, error)
}

// Service provides cached access to sales aggregates.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, "loja:an")
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns daily sales between from (inclusive) and to (exclusive).
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]repo.SalesDay, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var rows []repo.SalesDay
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.SalesDaily(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns the best sellers in the window ordered by units sold.
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit, offset int) ([]repo.TopProduct, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("top", from.Format("2006-01-02"), to.Format("2006-01-02"), limit, offset)
	var rows []repo.TopProduct
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.TopProducts(ctx, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// Overview returns the headline dashboard row for the window.
func (s *Service) Overview(ctx context.Context, from, to time.Time) (repo.SalesOverview, error) {
	if s == nil || s.Q == nil {
		return repo.SalesOverview{}, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("overview", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var row repo.SalesOverview
	if s.fromCache(ctx, key, &row) {
		return row, nil
	}
	row, err := s.Q.Overview(ctx, from, to)
	if err != nil {
		return repo.SalesOverview{}, err
	}
	s.store(ctx, key, row)
	return row, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
