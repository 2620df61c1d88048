package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lojamovel/backend-loja/internal/analytics"
	"github.com/lojamovel/backend-loja/internal/repo"
)

type stubQueries struct {
	salesCalls    int
	topCalls      int
	overviewCalls int
}

func (s *stubQueries) SalesDaily(_ context.Context, from, _ time.Time) ([]repo.SalesDay, error) {
	s.salesCalls++
	return []repo.SalesDay{{Day: from, Orders: 2, RevenueCents: 189_000}}, nil
}

func (s *stubQueries) TopProducts(context.Context, time.Time, time.Time, int, int) ([]repo.TopProduct, error) {
	s.topCalls++
	return []repo.TopProduct{{ProductID: uuid.New(), Title: "Smart TV 50", UnitsSold: 7, RevenueCents: 350_000}}, nil
}

func (s *stubQueries) Overview(context.Context, time.Time, time.Time) (repo.SalesOverview, error) {
	s.overviewCalls++
	return repo.SalesOverview{Orders: 2, RevenueCents: 189_000, AvgTicketCents: 94_500}, nil
}

func testService(t *testing.T) (*analytics.Service, *stubQueries) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	queries := &stubQueries{}
	return &analytics.Service{Q: queries, R: rdb, TTL: time.Minute, DefaultRange: 30}, queries
}

func testWindow() (time.Time, time.Time) {
	to := time.Now().Truncate(24 * time.Hour)
	return to.AddDate(0, 0, -7), to
}

func TestSalesRangeCached(t *testing.T) {
	svc, queries := testService(t)
	from, to := testWindow()
	first, err := svc.SalesRange(context.Background(), from, to)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(first) != 1 || first[0].RevenueCents != 189_000 {
		t.Fatalf("rows = %+v", first)
	}
	if _, err := svc.SalesRange(context.Background(), from, to); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.salesCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.salesCalls)
	}
}

func TestTopProductsCached(t *testing.T) {
	svc, queries := testService(t)
	from, to := testWindow()
	rows, err := svc.TopProducts(context.Background(), from, to, 10, 0)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if len(rows) != 1 || rows[0].UnitsSold != 7 {
		t.Fatalf("rows = %+v", rows)
	}
	if _, err := svc.TopProducts(context.Background(), from, to, 10, 0); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.topCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.topCalls)
	}
	// A different page misses the cache.
	if _, err := svc.TopProducts(context.Background(), from, to, 10, 10); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if queries.topCalls != 2 {
		t.Fatalf("expected 2 DB calls, got %d", queries.topCalls)
	}
}

func TestOverviewCached(t *testing.T) {
	svc, queries := testService(t)
	from, to := testWindow()
	row, err := svc.Overview(context.Background(), from, to)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if row.AvgTicketCents != 94_500 {
		t.Fatalf("row = %+v", row)
	}
	if _, err := svc.Overview(context.Background(), from, to); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.overviewCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.overviewCalls)
	}
}
