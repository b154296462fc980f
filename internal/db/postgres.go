// Package db connects to the Postgres instance backing the postgres state
// store.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var Pool *pgxpool.Pool

var (
	newPool  = pgxpool.New
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

func InitPostgres(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := newPool(ctx, url)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pingPool(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("connect to Postgres: %w", err)
	}
	Pool = pool
	log.Info().Msg("connected to Postgres")
	return nil
}
