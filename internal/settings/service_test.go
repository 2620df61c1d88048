package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/lojamovel/backend-loja/internal/repo"
)

type fakeStore struct {
	row    *repo.InstallmentSettings
	reads  int
	writes int
}

func (f *fakeStore) GetInstallments(context.Context) (repo.InstallmentSettings, error) {
	f.reads++
	if f.row == nil {
		return repo.InstallmentSettings{}, pgx.ErrNoRows
	}
	return *f.row, nil
}

func (f *fakeStore) UpdateInstallments(_ context.Context, s repo.InstallmentSettings) (repo.InstallmentSettings, error) {
	f.writes++
	s.UpdatedAt = time.Now()
	f.row = &s
	return s, nil
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Store:    store,
		Redis:    client,
		CacheTTL: time.Minute,
		Defaults: Defaults{
			MaxInstallments:  24,
			BaseMonthlyRate:  1.99,
			FloorMonthlyRate: 1.25,
			RateStepPercent:  0.05,
			RampThreshold:    10,
			MinPurchaseCents: 10_000,
		},
	}
}

func TestInstallmentsFallsBackToDefaults(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	got, err := svc.Installments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxInstallments != 24 || got.MonthlyRatePercent != 1.99 || !got.Enabled {
		t.Fatalf("defaults = %+v", got)
	}
}

func TestInstallmentsCachesReads(t *testing.T) {
	store := &fakeStore{row: &repo.InstallmentSettings{MaxInstallments: 12, MonthlyRatePercent: 2.5, Enabled: true}}
	svc := newTestService(t, store)

	for i := 0; i < 3; i++ {
		got, err := svc.Installments(context.Background())
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got.MaxInstallments != 12 {
			t.Fatalf("read %d = %+v", i, got)
		}
	}
	if store.reads != 1 {
		t.Fatalf("store read %d times, want 1", store.reads)
	}
}

func TestUpdateRefreshesCache(t *testing.T) {
	store := &fakeStore{row: &repo.InstallmentSettings{MaxInstallments: 12, MonthlyRatePercent: 2.5, Enabled: true}}
	svc := newTestService(t, store)

	if _, err := svc.Installments(context.Background()); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := svc.Update(context.Background(), repo.InstallmentSettings{MaxInstallments: 18, MonthlyRatePercent: 1.8, Enabled: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.Installments(context.Background())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.MaxInstallments != 18 {
		t.Fatalf("stale settings after update: %+v", got)
	}
}

func TestRampMapsSettings(t *testing.T) {
	ramp := Ramp(repo.InstallmentSettings{
		MonthlyRatePercent:   1.99,
		RateFloorPercent:     1.25,
		RateStepPercent:      0.05,
		RateThresholdPercent: 10,
	})
	if ramp.Rate(0) != 1.99 {
		t.Fatalf("base rate = %v", ramp.Rate(0))
	}
	if ramp.Rate(100) != 1.25 {
		t.Fatalf("floored rate = %v", ramp.Rate(100))
	}
}
