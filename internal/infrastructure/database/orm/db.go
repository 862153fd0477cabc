package orm

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"customer-service/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const (
	defaultMaxOpenConns = 10
	defaultIdleTime     = 5 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// NewDB opens a bun handle over the pgx database/sql driver.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*bun.DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	logger = logger.With("component", "BunDB")

	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is empty in configuration")
	}

	sqldb, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}
	applyPoolLimits(sqldb, cfg)

	db := bun.NewDB(sqldb, pgdialect.New())

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to ping database through bun", slog.Any("error", err))
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database on connect: %w", err)
	}

	logger.InfoContext(ctx, "Bun database handle ready")
	return db, nil
}

func applyPoolLimits(sqldb *sql.DB, cfg config.DatabaseConfig) {
	maxConns := int(cfg.MaxConns)
	if maxConns <= 0 {
		maxConns = defaultMaxOpenConns
	}
	idle := cfg.MaxConnIdleTime
	if idle <= 0 {
		idle = defaultIdleTime
	}
	sqldb.SetMaxOpenConns(maxConns)
	sqldb.SetConnMaxIdleTime(idle)
}
