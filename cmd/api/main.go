package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/lojamovel/backend-loja/db"
	"github.com/lojamovel/backend-loja/internal/analytics"
	"github.com/lojamovel/backend-loja/internal/audit"
	"github.com/lojamovel/backend-loja/internal/auth"
	"github.com/lojamovel/backend-loja/internal/cart"
	"github.com/lojamovel/backend-loja/internal/catalog"
	"github.com/lojamovel/backend-loja/internal/checkout"
	"github.com/lojamovel/backend-loja/internal/common"
	"github.com/lojamovel/backend-loja/internal/config"
	"github.com/lojamovel/backend-loja/internal/coupon"
	"github.com/lojamovel/backend-loja/internal/credit"
	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/favorites"
	"github.com/lojamovel/backend-loja/internal/freight"
	"github.com/lojamovel/backend-loja/internal/health"
	"github.com/lojamovel/backend-loja/internal/kyc"
	"github.com/lojamovel/backend-loja/internal/notify"
	"github.com/lojamovel/backend-loja/internal/obs"
	"github.com/lojamovel/backend-loja/internal/order"
	"github.com/lojamovel/backend-loja/internal/payment"
	"github.com/lojamovel/backend-loja/internal/pricing"
	"github.com/lojamovel/backend-loja/internal/ratelimit"
	"github.com/lojamovel/backend-loja/internal/repo"
	"github.com/lojamovel/backend-loja/internal/reviews"
	"github.com/lojamovel/backend-loja/internal/security"
	"github.com/lojamovel/backend-loja/internal/settings"
	"github.com/lojamovel/backend-loja/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "loja")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "loja-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "loja-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{
		Store:     repo.Events{DB: pool},
		Notifiers: []events.Notifier{notify.TaskNotifier{Client: taskClient}},
	}

	settingsSvc := &settings.Service{
		Store:    repo.Settings{DB: pool},
		Redis:    redisClient,
		CacheTTL: cfg.CacheTTL,
		Defaults: settings.Defaults{
			MaxInstallments:  cfg.MaxInstallments,
			BaseMonthlyRate:  cfg.BaseMonthlyRate,
			FloorMonthlyRate: cfg.FloorMonthlyRate,
			RateStepPercent:  cfg.RateStepPerPoint,
			RampThreshold:    cfg.DownPaymentRampFrom,
			MinPurchaseCents: cfg.MinFinancedCents,
		},
	}
	settingsHandler := &settings.Handler{Svc: settingsSvc}

	catalogSvc := &catalog.Service{
		Products: repo.Products{DB: pool},
		Settings: settingsSvc,
		Cache:    catalog.NewCache(redisClient, cfg.CacheTTL),
	}
	catalogHandler := &catalog.Handler{Service: catalogSvc}

	couponSvc := &coupon.Service{Q: repo.Coupons{DB: pool}}
	couponHandler := &coupon.Handler{Coupons: repo.Coupons{DB: pool}, Svc: couponSvc}

	freightProvider := freight.TableProvider{
		FlatCents:          cfg.FreightFlatCents,
		FreeAboveCents:     envInt64("FREIGHT_FREE_ABOVE_CENTS", 0),
		RemoteSurchargePct: envInt64("FREIGHT_REMOTE_SURCHARGE_PCT", 20),
	}

	cartSvc := &cart.Service{
		Carts:    repo.Carts{DB: pool},
		Products: repo.Products{DB: pool},
		Coupons:  couponSvc,
		Freight:  freightProvider,
		Settings: settingsSvc,
	}
	cartHandler := &cart.Handler{Svc: cartSvc}

	checkoutSvc := &checkout.Service{
		Runner:   checkout.PgRunner{Tx: repo.PoolRunner{Pool: pool}},
		Freight:  freightProvider,
		Settings: settingsSvc,
		Bus:      bus,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	orderSvc := &order.Service{Orders: repo.Orders{DB: pool}, Bus: bus}
	orderHandler := &order.Handler{Svc: orderSvc}
	orderAdmin := &order.AdminHandler{Svc: orderSvc}

	providers := map[string]payment.Provider{
		"pix":  payment.Pix{APIKey: cfg.PixAPIKey},
		"card": payment.CardGateway{Key: cfg.CardGatewayKey, Secret: cfg.CardGatewaySecret},
	}
	paymentSvc := &payment.Service{
		Orders:    repo.Orders{DB: pool},
		Payments:  repo.Payments{DB: pool},
		Providers: providers,
		IntentTTL: cfg.PaymentIntentTTL,
	}
	paymentHandler := &payment.Handler{Svc: paymentSvc}
	paymentWebhook := payment.Webhook{
		Providers: providers,
		Runner:    payment.PgSettleRunner{Tx: repo.PoolRunner{Pool: pool}},
		Replay:    redisClient,
		ReplayTTL: cfg.WebhookReplayTTL,
		Bus:       bus,
	}

	creditHandler := &credit.Handler{
		Sim: &credit.Simulator{
			Approver: credit.FixedPercentApprover{Percent: cfg.ApprovalPercent},
			Ramp: pricing.RateRamp{
				BasePercent:      cfg.BaseMonthlyRate,
				FloorPercent:     cfg.FloorMonthlyRate,
				StepPercent:      cfg.RateStepPerPoint,
				ThresholdPercent: cfg.DownPaymentRampFrom,
			},
		},
		MaxInstallments: cfg.MaxInstallments,
	}

	userSvc := &user.Service{
		Profiles:  repo.Customers{DB: pool},
		Addresses: repo.Addresses{DB: pool},
	}
	userHandler := &user.Handler{Svc: userSvc}

	favoritesSvc := &favorites.Service{
		Favorites: repo.Favorites{DB: pool},
		Products:  repo.Products{DB: pool},
	}
	favoritesHandler := &favorites.Handler{Svc: favoritesSvc}

	reviewsSvc := &reviews.Service{
		Reviews:  repo.Reviews{DB: pool},
		Products: repo.Products{DB: pool},
	}
	reviewsHandler := &reviews.Handler{Svc: reviewsSvc}

	kycStorage, err := kyc.NewS3Storage(ctx, cfg.KYCBucket, cfg.KYCRegion, cfg.S3Endpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise document storage")
	}
	kycSvc := &kyc.Service{
		Docs:     repo.KYCDocuments{DB: pool},
		Storage:  kycStorage,
		Verifier: kyc.ChecksumVerifier{},
		Bus:      bus,
		MaxBytes: cfg.KYCMaxBytes,
	}
	kycHandler := &kyc.Handler{Svc: kycSvc}
	kycAdmin := &kyc.AdminHandler{Svc: kycSvc}

	analyticsSvc := &analytics.Service{
		Q:            repo.Analytics{DB: pool},
		R:            redisClient,
		TTL:          cfg.CacheTTL,
		DefaultRange: envInt("ANALYTICS_DEFAULT_RANGE_DAYS", 30),
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}

	auditSvc := audit.Service{
		Store:   repo.AuditLogs{DB: pool},
		Enabled: envBool("AUDIT_ENABLED", true),
	}
	auditRecorder := audit.HTTPRecorder{Service: auditSvc, Logger: logger}
	auditHandler := audit.Handler{Store: repo.AuditLogs{DB: pool}}

	authMiddleware := auth.Middleware{Verifier: auth.Verifier{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    envOrDefault("JWT_ISSUER", ""),
		Audience:  envOrDefault("JWT_AUDIENCE", ""),
		ClockSkew: 30 * time.Second,
	}}

	rateLimiter, err := buildRateLimiter(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	rateLimit := ratelimit.Middleware{Limiter: rateLimiter, Logger: logger}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{
		Enable:                envBool("SECURE_HEADERS", true),
		EnableHSTS:            envBool("SECURE_HSTS", cfg.AppEnv == "production"),
		HSTSMaxAge:            envInt("SECURE_HSTS_MAX_AGE", 31536000),
		HSTSIncludeSubdomains: true,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(rateLimit.Handle)
	r.Use(authMiddleware.Authenticate)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		pprofUser := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pprofPass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), pprofUser, pprofPass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probe{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	bodyLimit := security.BodyLimit{Max: envInt64("MAX_BODY_BYTES", 1<<20)}
	uploadLimit := security.BodyLimit{Max: cfg.KYCMaxBytes + (64 << 10)}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(bodyLimit.Middleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{slug}", catalogHandler.ProductDetail)
		v.Get("/products/{slug}/reviews", reviewsHandler.List)
		v.With(authMiddleware.RequireAuth).Put("/products/{slug}/reviews", reviewsHandler.Submit)
		v.With(authMiddleware.RequireAuth).Delete("/reviews/{reviewId}", reviewsHandler.Delete)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{cartId}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{cartId}/items", cartHandler.AddItem)
				g.Patch("/{cartId}/items/{itemId}", cartHandler.UpdateItem)
				g.Delete("/{cartId}/items/{itemId}", cartHandler.RemoveItem)
				g.Post("/{cartId}/coupon", cartHandler.ApplyCoupon)
				g.Delete("/{cartId}/coupon", cartHandler.RemoveCoupon)
			})
		})

		v.Post("/coupons/preview", couponHandler.Preview)
		v.Post("/credit/simulate", creditHandler.Simulate)

		v.With(idem.Middleware, authMiddleware.RequireAuth).Post("/checkout", checkoutHandler.PlaceOrder)

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)
			g.Get("/orders", orderHandler.ListMine)
			g.Get("/orders/{orderId}", orderHandler.GetMine)
			g.Post("/orders/{orderId}/cancel", orderHandler.CancelMine)
		})

		v.Route("/payments", func(p chi.Router) {
			p.With(authMiddleware.RequireAuth, idem.Middleware).Post("/charge", paymentHandler.CreateCharge)
			p.With(authMiddleware.RequireAuth).Get("/{orderId}/status", paymentHandler.Status)
		})
		v.Post("/webhooks/payment/{provider}", paymentWebhook.Handle)

		v.Route("/me", func(m chi.Router) {
			m.Use(authMiddleware.RequireAuth)
			m.Get("/", userHandler.Me)
			m.Put("/", userHandler.UpsertMe)
			m.Get("/addresses", userHandler.ListAddresses)
			m.Post("/addresses", userHandler.CreateAddress)
			m.Post("/addresses/{addressId}/default", userHandler.SetDefaultAddress)
			m.Delete("/addresses/{addressId}", userHandler.DeleteAddress)
			m.Get("/favorites", favoritesHandler.List)
			m.Post("/favorites/{productId}", favoritesHandler.Add)
			m.Delete("/favorites/{productId}", favoritesHandler.Remove)
		})

		v.Route("/kyc", func(k chi.Router) {
			k.Use(authMiddleware.RequireAuth)
			k.With(uploadLimit.Middleware).Post("/documents", kycHandler.Submit)
			k.Get("/status", kycHandler.Status)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)
			admin.Use(auditRecorder.Middleware(audit.Config{}))

			admin.Post("/coupons", couponHandler.Create)
			admin.Put("/coupons/{code}", couponHandler.Update)
			admin.Get("/coupons", couponHandler.List)
			admin.Post("/coupons/preview", couponHandler.Preview)

			admin.Patch("/orders/{orderId}/status", orderAdmin.SetStatus)

			admin.Get("/settings/installments", settingsHandler.Get)
			admin.Put("/settings/installments", settingsHandler.Update)

			admin.Get("/kyc/pending", kycAdmin.ListPending)
			admin.Post("/kyc/{docId}/review", kycAdmin.Review)

			admin.Get("/analytics/sales", analyticsHandler.Sales)
			admin.Get("/analytics/top-products", analyticsHandler.TopProducts)
			admin.Get("/analytics/overview", analyticsHandler.Overview)

			admin.Get("/audit-logs", auditHandler.List)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer drainCancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	health.SetReady(true)
	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func buildRateLimiter(rdb *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(envOrDefault("RATE_LIMIT", "120-M"))
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisLimiter(rdb, rate)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
