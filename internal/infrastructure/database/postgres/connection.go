package postgres

import (
	"context"
	"customer-service/internal/config"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns          int32 = 10
	defaultMaxConnIdleTime         = 5 * time.Minute
	defaultHealthCheckPeriod       = time.Minute
	defaultPingTimeout             = 5 * time.Second
	defaultConnectAttempts         = 1
	connectRetryDelay              = time.Second
)

// NewConnectionPool opens the pgx pool backing the customer store and blocks
// until the database answers a ping or the configured attempts run out.
func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	logger = logger.With("component", "ConnectionPool")

	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is empty in configuration")
	}

	poolConfig, err := configurePool(cfg)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Opening PostgreSQL connection pool",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("db", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := awaitDatabase(ctx, pool, newPingPolicy(cfg), logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "PostgreSQL connection pool ready")
	return pool, nil
}

// configurePool parses the URL and applies the pool limits, using the package
// defaults for unset values.
func configurePool(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}

	poolConfig.MaxConns = positiveOr(cfg.MaxConns, defaultMaxConns)
	poolConfig.MaxConnIdleTime = positiveOr(cfg.MaxConnIdleTime, defaultMaxConnIdleTime)
	poolConfig.HealthCheckPeriod = positiveOr(cfg.HealthCheckPeriod, defaultHealthCheckPeriod)

	return poolConfig, nil
}

func positiveOr[T int | int32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

type pinger interface {
	Ping(ctx context.Context) error
}

type pingPolicy struct {
	attempts int
	timeout  time.Duration
	delay    time.Duration
}

func newPingPolicy(cfg config.DatabaseConfig) pingPolicy {
	return pingPolicy{
		attempts: positiveOr(cfg.ConnectAttempts, defaultConnectAttempts),
		timeout:  positiveOr(cfg.PingTimeout, defaultPingTimeout),
		delay:    connectRetryDelay,
	}
}

func awaitDatabase(ctx context.Context, db pinger, policy pingPolicy, logger *slog.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= policy.attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, policy.timeout)
		lastErr = db.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			logger.DebugContext(ctx, "Database answered ping", slog.Int("attempt", attempt))
			return nil
		}

		logger.WarnContext(ctx, "Database ping failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.attempts),
			slog.Any("error", lastErr),
		)
		if attempt == policy.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database on connect: %w", ctx.Err())
		case <-time.After(policy.delay):
		}
	}

	logger.ErrorContext(ctx, "Giving up on database connection", slog.Any("error", lastErr))
	return fmt.Errorf("failed to ping database on connect after %d attempts: %w", policy.attempts, lastErr)
}
