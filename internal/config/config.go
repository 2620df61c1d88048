package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	// Payment provider credentials.
	PixAPIKey         string
	CardGatewayKey    string
	CardGatewaySecret string
	PaymentIntentTTL  time.Duration
	WebhookReplayTTL  time.Duration

	// KYC document storage.
	KYCBucket   string
	KYCRegion   string
	S3Endpoint  string
	KYCMaxBytes int64

	// Financing defaults; the live values come from the settings table
	// and these only seed an empty database.
	MaxInstallments     int
	BaseMonthlyRate     float64
	FloorMonthlyRate    float64
	RateStepPerPoint    float64
	DownPaymentRampFrom float64
	MinFinancedCents    int64
	ApprovalPercent     float64

	FreightFlatCents int64
	IdempotencyTTL   time.Duration
	CacheTTL         time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		PixAPIKey:         k.String("PIX_API_KEY"),
		CardGatewayKey:    k.String("CARD_GATEWAY_KEY"),
		CardGatewaySecret: k.String("CARD_GATEWAY_SECRET"),
		PaymentIntentTTL:  parseDuration(k.String("PAYMENT_INTENT_TTL"), "30m"),
		WebhookReplayTTL:  parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),

		KYCBucket:   k.String("KYC_BUCKET"),
		KYCRegion:   valueOrDefault(k.String("KYC_REGION"), "sa-east-1"),
		S3Endpoint:  k.String("S3_ENDPOINT"),
		KYCMaxBytes: parseInt64(k.String("KYC_MAX_BYTES"), 5<<20),

		MaxInstallments:     parseInt(k.String("MAX_INSTALLMENTS"), 24),
		BaseMonthlyRate:     parseFloat(k.String("BASE_MONTHLY_RATE"), 1.99),
		FloorMonthlyRate:    parseFloat(k.String("FLOOR_MONTHLY_RATE"), 1.25),
		RateStepPerPoint:    parseFloat(k.String("RATE_STEP_PER_POINT"), 0.05),
		DownPaymentRampFrom: parseFloat(k.String("DOWN_PAYMENT_RAMP_FROM"), 10),
		MinFinancedCents:    parseInt64(k.String("MIN_FINANCED_CENTS"), 10_000),
		ApprovalPercent:     parseFloat(k.String("APPROVAL_PERCENT"), 90),

		FreightFlatCents: parseInt64(k.String("FREIGHT_FLAT_CENTS"), 5_000),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CacheTTL:         parseDuration(k.String("CACHE_TTL"), "5m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
