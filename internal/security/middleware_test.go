package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			_, _ = io.Copy(io.Discard, r.Body)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersMiddleware(t *testing.T) {
	h := Headers{Enable: true}
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("nosniff header missing")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("frame options header missing")
	}
	// HSTS only applies on TLS requests.
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("unexpected HSTS on plain request")
	}
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	h := Headers{Enable: false}
	rec := httptest.NewRecorder()
	h.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "" {
		t.Fatalf("headers must be off when disabled")
	}
}

func TestBodyLimitAllowsSmallBody(t *testing.T) {
	b := BodyLimit{Max: 64}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ok":true}`))
	b.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBodyLimitRejectsOversizedBody(t *testing.T) {
	b := BodyLimit{Max: 8}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 9)))
	b.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	b := BodyLimit{Max: 8}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 20)))
	req.ContentLength = 20
	b.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}
