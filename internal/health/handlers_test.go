package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lojamovel/backend-loja/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rec := httptest.NewRecorder()
	handler.Live(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestReadyReflectsDependencies(t *testing.T) {
	health.SetReady(true)
	t.Cleanup(func() { health.SetReady(true) })

	handler := health.Handler{Checker: stubChecker{}}
	rec := httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	handler = health.Handler{Checker: stubChecker{dbErr: errors.New("connection refused")}}
	rec = httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")
}

func TestReadinessGateDuringShutdown(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(true)
	rec := httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	health.SetReady(false)
	rec = httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
