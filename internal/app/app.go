// Package app assembles the aggregator from configuration. Every binary
// shares it so they all see the same state and sources.
package app

import (
	"context"
	"fmt"
	"time"

	"oracle-aggregator/internal/aggregator"
	"oracle-aggregator/internal/cache"
	"oracle-aggregator/internal/config"
	"oracle-aggregator/internal/db"
	"oracle-aggregator/internal/source"
	"oracle-aggregator/internal/state"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

var (
	initRedisFunc    = cache.InitRedis
	initPostgresFunc = db.InitPostgres
	openPebbleFunc   = state.OpenPebbleStore
	nowFunc          = time.Now
)

type App struct {
	Aggregator *aggregator.Aggregator
	Sources    *source.Registry
	Store      state.Store
	Settings   *config.Settings
}

// Build loads the settings file, opens the configured store and initializes
// the aggregator if the store has never been initialized.
func Build(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (*App, error) {
	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	sources, err := source.BuildRegistry(tracer, settings.Sources, uint64(nowFunc().Unix()))
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}

	store, err := OpenStore(ctx, cfg, tracer)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(tracer, store, sources, aggregator.SystemClock{})
	if err := Bootstrap(ctx, agg, settings); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{Aggregator: agg, Sources: sources, Store: store, Settings: settings}, nil
}

// OpenStore returns the state backend named by STORE_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (state.Store, error) {
	ttl := time.Duration(cfg.StoreTTLSecs) * time.Second

	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		return state.NewMemoryStore(ttl), nil

	case config.BackendRedis:
		if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
			return nil, err
		}
		return state.NewRedisStore(cache.Client, ttl), nil

	case config.BackendPostgres:
		if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		store := state.NewPostgresStore(db.Pool, tracer, ttl)
		if err := store.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return store, nil

	case config.BackendPebble:
		store, err := openPebbleFunc(cfg.PebblePath, nil, ttl)
		if err != nil {
			return nil, fmt.Errorf("open pebble at %s: %w", cfg.PebblePath, err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Bootstrap initializes agg from settings unless it already is.
func Bootstrap(ctx context.Context, agg *aggregator.Aggregator, settings *config.Settings) error {
	init, err := agg.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if init {
		log.Info().Msg("aggregator already initialized, settings file assets ignored")
		return nil
	}

	sc, err := settings.Config()
	if err != nil {
		return err
	}
	if err := agg.Initialize(ctx, settings.Admin, sc); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	err := a.Store.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
	return err
}
