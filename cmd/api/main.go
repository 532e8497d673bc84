// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Plumeria HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Seed the role catalog (idempotent).
//  7. Wire domain services and HTTP handlers.
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

	"github.com/taibuivan/plumeria/internal/api"
	"github.com/taibuivan/plumeria/internal/blog/post"
	"github.com/taibuivan/plumeria/internal/platform/config"
	"github.com/taibuivan/plumeria/internal/platform/constants"
	"github.com/taibuivan/plumeria/internal/platform/mail"
	"github.com/taibuivan/plumeria/internal/platform/migration"
	pgstore "github.com/taibuivan/plumeria/internal/platform/postgres"
	redisstore "github.com/taibuivan/plumeria/internal/platform/redis"
	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/account"
	"github.com/taibuivan/plumeria/internal/users/auth"
	"github.com/taibuivan/plumeria/internal/users/role"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "plumeria"))
	slog.SetDefault(log)

	log.Info("[Plumeria] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "plumeria"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
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

	// ── 6. Token Codec & Role Catalog ─────────────────────────────────────
	codec, err := sec.NewCodec(cfg.TokenSecret, constants.AuthIssuer)
	must(log, err, "initialize token codec")

	catalog := role.NewCatalog(role.NewPostgresRepository(pool), log)
	must(log, catalog.Seed(startupCtx), "seed role catalog")

	// ── 7. Mail Boundary ──────────────────────────────────────────────────
	var mailer mail.Mailer
	if cfg.MailSuppress {
		mailer = mail.NewLogMailer(log)
	} else {
		mailer = mail.NewSMTPMailer(mail.Config{
			Server:        cfg.MailServer,
			Port:          cfg.MailPort,
			Username:      cfg.MailUsername,
			Password:      cfg.MailPassword,
			Sender:        cfg.MailSender,
			SubjectPrefix: cfg.MailSubjectPrefix,
		}, log)
	}

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	accountRepository := account.NewPostgresRepository(pool)
	accountService := account.NewService(
		accountRepository, catalog, codec, mailer, log,
		cfg.AdminEmail, cfg.ConfirmTokenTTL, cfg.ResetTokenTTL,
	)
	accountHandler := account.NewHandler(accountService, catalog)

	sessionRepository := auth.NewSessionRepository(rdb)
	authService := auth.NewService(accountService, sessionRepository, codec, log)
	authHandler := auth.NewHandler(authService, accountService)

	postRepository := post.NewPostgresRepository(pool)
	postService := post.NewService(postRepository, log)
	postHandler := post.NewHandler(postService, accountService, cfg.FeedPerPage)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
		Post:      postHandler,
	}

	// The server context outlives startup: it scopes the rate limiter's
	// cleanup goroutine to the process lifetime.
	server := api.NewServer(context.Background(), cfg, log, codec, accountService, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
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
