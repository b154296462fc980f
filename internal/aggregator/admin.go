package aggregator

import (
	"context"
	"errors"
	"fmt"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/state"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errEmptyAdmin = errors.New("admin address is required")

func requireAdmin(ctx context.Context, txn *state.Txn, caller string) error {
	init, err := txn.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if !init {
		return domain.ErrNotInitialized
	}
	admin, err := txn.Admin(ctx)
	if err != nil {
		return err
	}
	if caller == "" || caller != admin {
		return domain.ErrUnauthorized
	}
	return nil
}

// Initialize stores the one-time settings. It can only succeed once.
func (a *Aggregator) Initialize(ctx context.Context, admin string, cfg domain.SettingsConfig) error {
	ctx, span := a.tracer.Start(ctx, "aggregator.initialize")
	defer span.End()

	err := a.run(ctx, func(txn *state.Txn) error {
		init, err := txn.IsInitialized(ctx)
		if err != nil {
			return err
		}
		if init {
			return domain.ErrAlreadyInitialized
		}
		if admin == "" {
			return errEmptyAdmin
		}
		if err := a.validateSettings(cfg); err != nil {
			return err
		}

		txn.SetAdmin(admin)
		txn.SetInitialized()
		txn.SetAssets(cfg.Assets)
		txn.SetBase(cfg.Base)
		txn.SetDecimals(cfg.Decimals)
		txn.SetBreakerSettings(cfg.Breaker())
		for i, asset := range cfg.Assets {
			txn.SetAssetConfig(asset, cfg.AssetConfigs[i])
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	log.Info().
		Int("assets", len(cfg.Assets)).
		Str("base", cfg.Base.String()).
		Uint32("decimals", cfg.Decimals).
		Bool("circuit_breaker", cfg.EnableCircuitBreaker).
		Msg("aggregator initialized")
	return nil
}

func (a *Aggregator) validateSettings(cfg domain.SettingsConfig) error {
	if len(cfg.Assets) == 0 || len(cfg.Assets) != len(cfg.AssetConfigs) {
		return domain.ErrInvalidAssets
	}
	if !cfg.Base.Valid() {
		return fmt.Errorf("base %q: %w", cfg.Base, domain.ErrInvalidAssets)
	}
	if cfg.Decimals > domain.MaxDecimals {
		return fmt.Errorf("decimals %d: %w", cfg.Decimals, domain.ErrInvalidOracleConfig)
	}

	seen := make(map[domain.Asset]struct{}, len(cfg.Assets))
	for i, asset := range cfg.Assets {
		if !asset.Valid() {
			return fmt.Errorf("asset %q: %w", asset, domain.ErrInvalidAssets)
		}
		if _, dup := seen[asset]; dup {
			return fmt.Errorf("duplicate asset %s: %w", asset, domain.ErrInvalidAssets)
		}
		seen[asset] = struct{}{}
		if err := a.validateConfig(asset, cfg.AssetConfigs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) validateConfig(asset domain.Asset, cfg domain.OracleConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("asset %s: %w", asset, err)
	}
	if !a.sources.Has(cfg.SourceID) {
		return fmt.Errorf("asset %s: source %q: %w", asset, cfg.SourceID, domain.ErrOracleNotFound)
	}
	return nil
}

// Block stops asset from being priced. The asset need not be registered.
func (a *Aggregator) Block(ctx context.Context, caller string, asset domain.Asset) error {
	return a.setBlocked(ctx, caller, asset, true)
}

func (a *Aggregator) Unblock(ctx context.Context, caller string, asset domain.Asset) error {
	return a.setBlocked(ctx, caller, asset, false)
}

func (a *Aggregator) setBlocked(ctx context.Context, caller string, asset domain.Asset, blocked bool) error {
	ctx, span := a.tracer.Start(ctx, "aggregator.set-blocked",
		trace.WithAttributes(
			attribute.String("asset", asset.String()),
			attribute.Bool("blocked", blocked),
		))
	defer span.End()

	err := a.run(ctx, func(txn *state.Txn) error {
		if err := requireAdmin(ctx, txn, caller); err != nil {
			return err
		}
		txn.SetBlocked(asset, blocked)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Info().Str("asset", asset.String()).Bool("blocked", blocked).Msg("asset block status changed")
	return nil
}

// AddAsset registers asset or replaces its config. New assets are appended
// to the asset list.
func (a *Aggregator) AddAsset(ctx context.Context, caller string, asset domain.Asset, cfg domain.OracleConfig) error {
	ctx, span := a.tracer.Start(ctx, "aggregator.add-asset",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	err := a.run(ctx, func(txn *state.Txn) error {
		if err := requireAdmin(ctx, txn, caller); err != nil {
			return err
		}
		if !asset.Valid() {
			return fmt.Errorf("asset %q: %w", asset, domain.ErrInvalidAssets)
		}
		if err := a.validateConfig(asset, cfg); err != nil {
			return err
		}
		return registry{txn: txn}.Register(ctx, asset, cfg)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Info().Str("asset", asset.String()).Str("source", cfg.SourceID).Msg("asset registered")
	return nil
}
