package state

import (
	"context"

	"oracle-aggregator/internal/domain"
)

// Each per-asset concern lives in its own namespace so keys of different
// concerns can never collide.
const (
	nsAssetConfig    = "cfg"
	nsLastFetched    = "last"
	nsBreakerStatus  = "cbstatus"
	nsBreakerTimeout = "cbtimeout"
	nsBlocked        = "blocked"

	keyAdmin    = "instance/admin"
	keyIsInit   = "instance/is_init"
	keyAssets   = "instance/assets"
	keyBase     = "instance/base"
	keyDecimals = "instance/decimals"
	keyBreaker  = "instance/circuit_breaker"
)

func assetKey(ns string, asset domain.Asset) string {
	return ns + "/" + asset.String()
}

func (t *Txn) IsInitialized(ctx context.Context) (bool, error) {
	var v bool
	found, err := t.load(ctx, keyIsInit, &v)
	return found && v, err
}

func (t *Txn) SetInitialized() {
	t.put(keyIsInit, true)
}

func (t *Txn) Admin(ctx context.Context) (string, error) {
	var v string
	_, err := t.load(ctx, keyAdmin, &v)
	return v, err
}

func (t *Txn) SetAdmin(admin string) {
	t.put(keyAdmin, admin)
}

func (t *Txn) Assets(ctx context.Context) ([]domain.Asset, error) {
	var v []domain.Asset
	_, err := t.load(ctx, keyAssets, &v)
	return v, err
}

func (t *Txn) SetAssets(assets []domain.Asset) {
	t.put(keyAssets, assets)
}

func (t *Txn) Base(ctx context.Context) (domain.Asset, error) {
	var v domain.Asset
	_, err := t.load(ctx, keyBase, &v)
	return v, err
}

func (t *Txn) SetBase(base domain.Asset) {
	t.put(keyBase, base)
}

func (t *Txn) Decimals(ctx context.Context) (uint32, error) {
	var v uint32
	_, err := t.load(ctx, keyDecimals, &v)
	return v, err
}

func (t *Txn) SetDecimals(decimals uint32) {
	t.put(keyDecimals, decimals)
}

func (t *Txn) BreakerSettings(ctx context.Context) (domain.BreakerSettings, error) {
	var v domain.BreakerSettings
	_, err := t.load(ctx, keyBreaker, &v)
	return v, err
}

func (t *Txn) SetBreakerSettings(s domain.BreakerSettings) {
	t.put(keyBreaker, s)
}

// AssetConfig reports found=false for unregistered assets.
func (t *Txn) AssetConfig(ctx context.Context, asset domain.Asset) (domain.OracleConfig, bool, error) {
	var v domain.OracleConfig
	found, err := t.load(ctx, assetKey(nsAssetConfig, asset), &v)
	return v, found, err
}

func (t *Txn) SetAssetConfig(asset domain.Asset, cfg domain.OracleConfig) {
	t.put(assetKey(nsAssetConfig, asset), cfg)
}

// Blocked defaults to false.
func (t *Txn) Blocked(ctx context.Context, asset domain.Asset) (bool, error) {
	var v bool
	_, err := t.load(ctx, assetKey(nsBlocked, asset), &v)
	return v, err
}

func (t *Txn) SetBlocked(asset domain.Asset, blocked bool) {
	t.put(assetKey(nsBlocked, asset), blocked)
}

// LastFetchedPrice returns nil when nothing has been recorded.
func (t *Txn) LastFetchedPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	var v domain.PriceData
	found, err := t.load(ctx, assetKey(nsLastFetched, asset), &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

func (t *Txn) SetLastFetchedPrice(asset domain.Asset, price domain.PriceData) {
	t.put(assetKey(nsLastFetched, asset), price)
}

func (t *Txn) BreakerStatus(ctx context.Context, asset domain.Asset) (domain.CircuitBreakerStatus, error) {
	var v domain.CircuitBreakerStatus
	_, err := t.load(ctx, assetKey(nsBreakerStatus, asset), &v)
	return v, err
}

func (t *Txn) SetBreakerStatus(asset domain.Asset, status domain.CircuitBreakerStatus) {
	t.put(assetKey(nsBreakerStatus, asset), status)
}

// BreakerTimeout returns the ledger time the trip expires at, 0 if unset.
func (t *Txn) BreakerTimeout(ctx context.Context, asset domain.Asset) (uint64, error) {
	var v uint64
	_, err := t.load(ctx, assetKey(nsBreakerTimeout, asset), &v)
	return v, err
}

func (t *Txn) SetBreakerTimeout(asset domain.Asset, until uint64) {
	t.put(assetKey(nsBreakerTimeout, asset), until)
}
