// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

// Command api is the entry point for the Gatehouse HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Build the credential codec, revocation registry, and session store.
//  7. Wire repositories, services, guards, and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lehoanghuy/gatehouse/internal/api"
	"github.com/lehoanghuy/gatehouse/internal/iam/auth"
	"github.com/lehoanghuy/gatehouse/internal/iam/guard"
	"github.com/lehoanghuy/gatehouse/internal/iam/revocation"
	"github.com/lehoanghuy/gatehouse/internal/iam/session"
	"github.com/lehoanghuy/gatehouse/internal/platform/config"
	"github.com/lehoanghuy/gatehouse/internal/platform/constants"
	"github.com/lehoanghuy/gatehouse/internal/platform/migration"
	pgstore "github.com/lehoanghuy/gatehouse/internal/platform/postgres"
	redisstore "github.com/lehoanghuy/gatehouse/internal/platform/redis"
	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "gatehouse"))
	slog.SetDefault(log)

	log.Info("[Gatehouse] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "gatehouse"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("auth_mode", cfg.AuthMode),
		slog.String("session_backend", cfg.SessionBackend),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Credential Infrastructure ──────────────────────────────────────
	codec, err := sec.NewCodec([]byte(cfg.JWTSecret), constants.AuthIssuer)
	must(log, err, "initialize token codec")

	// Redis-backed so revocations survive restarts and reach all replicas.
	registry := revocation.NewRedisRegistry(rdb)

	// Background lifecycle context for janitors and the rate limiter.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	var sessionStore session.Store
	switch cfg.SessionBackend {
	case "redis":
		sessionStore = session.NewRedisStore(rdb)
	default:
		postgresSessions := session.NewPostgresStore(pool)
		sessionStore = postgresSessions
		// Redis prunes by TTL on its own; Postgres needs a janitor. Reads
		// filter on expiry either way, so this is purely space reclamation.
		go sessionJanitor(appCtx, postgresSessions, log)
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	accessRepository := auth.NewAccessRepository(pool)
	authService := auth.NewService(userRepository, accessRepository, sessionStore, registry, codec)
	authHandler := auth.NewHandler(authService)

	// Guard selection is a deployment decision: signed bearer tokens or
	// opaque server-side sessions.
	var authenticated auth.Middleware
	switch cfg.AuthMode {
	case "session":
		authenticated = guard.SessionRequired(sessionStore, userRepository)
	default:
		authenticated = guard.TokenRequired(codec, registry, userRepository)
	}

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
	}

	server := api.NewServer(appCtx, cfg, log, authenticated, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// sessionJanitor periodically deletes expired session rows.
func sessionJanitor(ctx context.Context, store *session.PostgresStore, log *slog.Logger) {
	ticker := time.NewTicker(session.DefaultTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := store.DeleteExpired(ctx); err != nil {
				log.Warn("session_janitor_sweep_failed", slog.Any("error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
