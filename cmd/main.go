package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/courtside/courtside/internal/adapters/broadcast"
	"github.com/courtside/courtside/internal/adapters/eventstore"
	"github.com/courtside/courtside/internal/adapters/http/api"
	app "github.com/courtside/courtside/internal/app"
	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 0 // WebSocket feeds stay open indefinitely
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build event store", logger.Error(err))
		return
	}
	defer cleanup()

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithTolerance(time.Duration(cfg.ToleranceSeconds)*time.Second),
		app.WithLockTimeout(time.Duration(cfg.LockTimeoutMS)*time.Millisecond),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSubscriberBuffer(cfg.SubscriberBuffer),
		app.WithOutboxBuffer(cfg.OutboxBuffer),
		app.WithBlockedPolicy(broadcast.BlockedPolicy(cfg.BlockedPolicy)),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	router := api.NewRouter(svc, svc, api.RouterConfig{
		CORSAllowOrigins:  cfg.CORSAllowOrigins,
		RateLimitEnabled:  cfg.RateLimitEnabled,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   time.Duration(cfg.RateLimitWindowS) * time.Second,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildStore constructs the configured event log backend. The returned
// cleanup closes the backing client and is safe to call once.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (eventstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, func() {}, err
		}
		log.Info(ctx, "using redis event store", logger.String("addr", cfg.RedisAddr))
		return eventstore.NewRedisStore(client, cfg.RedisKeyPrefix),
			func() { _ = client.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, func() {}, err
		}
		store := eventstore.NewPostgresStore(pool)
		if err := store.InitSchema(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		log.Info(ctx, "using postgres event store")
		return store, pool.Close, nil

	default:
		log.Info(ctx, "using in-memory event store")
		return eventstore.NewMemoryStore(), func() {}, nil
	}
}
