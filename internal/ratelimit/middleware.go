// Package ratelimit throttles abusive clients in front of the public API.
package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/lojamovel/backend-loja/internal/common"
)

// NewRedisLimiter builds a limiter backed by the shared Redis client.
func NewRedisLimiter(rdb *redis.Client, rate limiter.Rate) (*limiter.Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "loja:rl",
	})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// Middleware enforces a request budget per key. The authenticated user id
// is preferred over the client IP so one NAT does not throttle a building.
type Middleware struct {
	Limiter *limiter.Limiter
	Logger  zerolog.Logger
}

// Handle wraps next with rate limiting. Limiter backend failures let the
// request through: availability over strictness.
func (m Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := m.Limiter.Get(r.Context(), m.key(r))
		if err != nil {
			m.Logger.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))
		if ctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) key(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok {
		return "u:" + userID
	}
	return "ip:" + common.ClientIP(r)
}
