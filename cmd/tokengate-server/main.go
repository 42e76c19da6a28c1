// Command tokengate-server exposes the token engine over HTTP: registration, login, a
// profile route for any valid token and an admin route gated on the admin role.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/audit/kafkasink"
	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/config"
	"github.com/MrEthical07/tokengate/internal/httpapi"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers = append(closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	repo, err := openRepository(ctx, cfg, rdb, &closers)
	if err != nil {
		return err
	}

	builder := tokengate.New().
		WithConfig(cfg.EngineConfig()).
		WithRepository(repo).
		WithLogger(logger)
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkasink.New(kafkasink.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaAuditTopic,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("audit sink: %w", err)
		}
		closers = append(closers, sink)
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	// The engine drains its audit queue into the sink, so it closes before the sink.
	closers = append(closers, closerFunc(engine.Close))

	report := engine.SecurityReport()
	logger.Info("engine ready",
		"production", report.ProductionMode,
		"token_ttl", report.TokenTTL,
		"login_throttle", report.LoginThrottleActive,
		"audit", report.AuditEnabled,
		"store", cfg.StoreBackend,
	)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Engine:         engine,
			Logger:         logger,
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, rdb *redis.Client, closers *[]io.Closer) (credential.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis store requires REDIS_ADDR")
		}
		return credential.NewRedisRepository(rdb), nil
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		*closers = append(*closers, db)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := credential.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return credential.NewMemoryRepository(), nil
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
