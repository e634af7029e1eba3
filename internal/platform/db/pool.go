package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolOptions sizes the warehouse connection pool.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
	// ConnectTimeout bounds the initial ping only; queries issued later
	// carry no deadline of their own.
	ConnectTimeout time.Duration
}

// NewPool connects to the warehouse and verifies the connection with a ping.
// A failure here is fatal for the caller: the dashboard cannot start
// without its tables.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions, logger zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	logger.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("connected to warehouse")

	return pool, nil
}
