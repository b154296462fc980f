package aggregator

import (
	"context"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/state"
)

// registry answers asset lookups within one invocation.
type registry struct {
	txn *state.Txn
}

// ConfigFor returns ErrAssetNotFound for assets that were never registered.
func (r registry) ConfigFor(ctx context.Context, asset domain.Asset) (domain.OracleConfig, error) {
	cfg, found, err := r.txn.AssetConfig(ctx, asset)
	if err != nil {
		return domain.OracleConfig{}, err
	}
	if !found {
		return domain.OracleConfig{}, domain.ErrAssetNotFound
	}
	return cfg, nil
}

func (r registry) IsBlocked(ctx context.Context, asset domain.Asset) (bool, error) {
	return r.txn.Blocked(ctx, asset)
}

func (r registry) Assets(ctx context.Context) ([]domain.Asset, error) {
	return r.txn.Assets(ctx)
}

// Register stores cfg for asset, appending the asset to the ordered list
// unless it is already present.
func (r registry) Register(ctx context.Context, asset domain.Asset, cfg domain.OracleConfig) error {
	_, found, err := r.txn.AssetConfig(ctx, asset)
	if err != nil {
		return err
	}
	if !found {
		assets, err := r.txn.Assets(ctx)
		if err != nil {
			return err
		}
		r.txn.SetAssets(append(assets, asset))
	}
	r.txn.SetAssetConfig(asset, cfg)
	return nil
}
