package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lojamovel/backend-loja/internal/obs"
)

// HTTPRecorder records admin mutations after they have been handled.
type HTTPRecorder struct {
	Service Service
	Logger  zerolog.Logger
}

// Config customises how the audit entry is produced for a route.
type Config struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
}

// Middleware returns a chi-compatible middleware that records audit
// entries. Recording failures are logged, never surfaced to the client.
func (r HTTPRecorder) Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}
			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)

			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			err := r.Service.Record(req.Context(), cfg.Action, cfg.ResourceType,
				resourceID, req, recorder.Status(), nil)
			if err != nil {
				r.Logger.Error().Err(err).Str("path", req.URL.Path).Msg("audit record failed")
			}
		})
	}
}
