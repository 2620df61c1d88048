package main

import (
	"context"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lojamovel/backend-loja/internal/config"
	"github.com/lojamovel/backend-loja/internal/notify"
	"github.com/lojamovel/backend-loja/internal/obs"
	"github.com/lojamovel/backend-loja/internal/repo"
	"github.com/lojamovel/backend-loja/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	directory := &user.Service{
		Profiles:  repo.Customers{DB: pool},
		Addresses: repo.Addresses{DB: pool},
	}

	worker := &notify.EmailWorker{
		Sender:    buildSender(logger),
		Directory: directory,
		Logger:    logger,
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	srv := asynq.NewServer(asynqOpt, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 5),
		Queues: map[string]int{
			notify.QueueNotifications: 1,
		},
		Logger: asynqZerolog{logger},
	})

	logger.Info().Msg("worker starting")
	if err := srv.Run(worker.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

// buildSender delivers over SMTP when configured and logs otherwise.
func buildSender(logger zerolog.Logger) notify.Sender {
	addr := envOrDefault("SMTP_ADDR", "")
	if addr == "" {
		return notify.LogSender{Logger: logger}
	}
	from := envOrDefault("SMTP_FROM", "no-reply@lojamovel.com.br")
	var auth smtp.Auth
	if u := envOrDefault("SMTP_USER", ""); u != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", u, envOrDefault("SMTP_PASS", ""), host)
	}
	return notify.SMTPSender{Addr: addr, From: from, Auth: auth}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "loja-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

// asynqZerolog adapts zerolog to the asynq logging interface.
type asynqZerolog struct {
	l zerolog.Logger
}

func (a asynqZerolog) Debug(args ...any) { a.l.Debug().Msgf("%v", args) }
func (a asynqZerolog) Info(args ...any)  { a.l.Info().Msgf("%v", args) }
func (a asynqZerolog) Warn(args ...any)  { a.l.Warn().Msgf("%v", args) }
func (a asynqZerolog) Error(args ...any) { a.l.Error().Msgf("%v", args) }
func (a asynqZerolog) Fatal(args ...any) { a.l.Fatal().Msgf("%v", args) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
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
