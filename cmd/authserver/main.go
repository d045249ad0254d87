// Command authserver runs the SafeRelief authentication service. Configuration
// comes from the environment (a local .env file is loaded when present).
// PostgreSQL and Redis are optional: without DATABASE_URL the server keeps all
// state in memory, and without REDIS_ADDR rate limiting and CSRF tokens are
// process-local. Both fallbacks are for development only.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/unrolled/secure"

	authcore "github.com/saferelief/authcore"
	"github.com/saferelief/authcore/csrf"
	"github.com/saferelief/authcore/httpapi"
	"github.com/saferelief/authcore/ratelimit"
	"github.com/saferelief/authcore/store/memory"
	"github.com/saferelief/authcore/store/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := authcore.Config{}
	cfg.Token.AccessSecret = []byte(os.Getenv("JWT_ACCESS_SECRET"))
	cfg.Token.RefreshSecret = []byte(os.Getenv("JWT_REFRESH_SECRET"))
	cfg.RateLimit.Limit = 100
	cfg.RateLimit.Window = time.Hour
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RATE_LIMIT: %w", err)
		}
		cfg.RateLimit.Limit = limit
	}

	builder := authcore.New().WithConfig(cfg).WithLogger(logger)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		builder.WithUserStore(postgres.NewUserStore(pool))
		builder.WithAuditStore(postgres.NewAuditStore(pool))
		logger.Info("using postgres persistence")
	} else {
		builder.WithUserStore(memory.NewUserStore())
		builder.WithAuditStore(memory.NewAuditStore(0))
		logger.Warn("DATABASE_URL not set, using in-memory persistence")
	}

	var csrfStore csrf.TokenStore
	var memLimiter *ratelimit.Memory
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		builder.WithRateLimiter(ratelimit.NewRedis(client, cfg.RateLimit.Limit, cfg.RateLimit.Window, ""))
		csrfStore = csrf.NewRedisStore(client, "")
		logger.Info("using redis for rate limiting and csrf tokens")
	} else {
		memLimiter = ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		builder.WithRateLimiter(memLimiter)
		csrfStore = csrf.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, rate limiting and csrf tokens are process-local")
	}

	svc, err := builder.Build()
	if err != nil {
		return err
	}
	defer svc.Close()

	guard := csrf.NewGuard(csrfStore, 0, "/auth/refresh")
	go guard.Run(ctx, 0)
	if memLimiter != nil {
		go memLimiter.Run(ctx, 0)
	}

	router := httpapi.NewRouter(svc, httpapi.Options{
		Logger: logger,
		Guard:  guard,
	})

	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		IsDevelopment:         os.Getenv("ENV") == "development",
	})

	addr := ":" + envOr("PORT", "8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           sec.Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	if dropped := svc.AuditDropped(); dropped > 0 {
		logger.Warn("audit events dropped during run", slog.Uint64("count", dropped))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
