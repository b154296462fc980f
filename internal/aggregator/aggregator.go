// Package aggregator resolves asset prices from upstream oracles into a
// single precision, gated by a per-asset circuit breaker and backed by a
// short-lived fallback cache.
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/metrics"
	"oracle-aggregator/internal/source"
	"oracle-aggregator/internal/state"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sources resolves the source IDs named by oracle configs.
type Sources interface {
	Lookup(id string) (source.Source, error)
	Has(id string) bool
}

// Aggregator stages the writes of every operation so that it commits all of
// its state changes or none. Commits only land if nothing the operation read
// has changed since, which keeps processes sharing one store from
// overwriting each other; a conflicting operation is rerun from scratch.
// Live pricing of one asset is serialized in process so concurrent callers
// do not race the same upstream.
type Aggregator struct {
	tracer  trace.Tracer
	store   state.Store
	sources Sources
	clock   Clock
	pricing assetLocks
}

// maxAttempts bounds reruns of an operation that keeps losing commit races.
const maxAttempts = 5

func New(tracer trace.Tracer, store state.Store, sources Sources, clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Aggregator{tracer: tracer, store: store, sources: sources, clock: clock}
}

// settings is the contract-wide configuration, loaded once per invocation.
type settings struct {
	decimals uint32
	base     domain.Asset
	breaker  domain.BreakerSettings
}

func loadSettings(ctx context.Context, txn *state.Txn) (settings, error) {
	init, err := txn.IsInitialized(ctx)
	if err != nil {
		return settings{}, err
	}
	if !init {
		return settings{}, domain.ErrNotInitialized
	}
	var st settings
	if st.decimals, err = txn.Decimals(ctx); err != nil {
		return settings{}, err
	}
	if st.base, err = txn.Base(ctx); err != nil {
		return settings{}, err
	}
	if st.breaker, err = txn.BreakerSettings(ctx); err != nil {
		return settings{}, err
	}
	return st, nil
}

// run executes fn in a fresh transaction. Staged writes are committed only
// if fn succeeds, and fn is rerun when the commit loses a race with another
// writer. fn must reset any results it reports on every call.
func (a *Aggregator) run(ctx context.Context, fn func(txn *state.Txn) error) error {
	for attempt := 1; ; attempt++ {
		txn := state.Begin(a.store)
		if err := fn(txn); err != nil {
			txn.Discard()
			return err
		}
		err := txn.Commit(ctx)
		if !errors.Is(err, state.ErrConflict) || attempt == maxAttempts {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug().Int("attempt", attempt).Msg("state changed during operation, retrying")
	}
}

// resolution is one pass of the pricing pipeline up to the breaker decision.
type resolution struct {
	price  *domain.PriceData
	usable bool
}

// observe normalizes an upstream observation and runs it past the breaker.
// Only live observations may trip or reset the breaker; historical ones are
// checked against it read-only.
func (a *Aggregator) observe(ctx context.Context, txn *state.Txn, st settings, asset domain.Asset, cfg domain.OracleConfig, src source.Source, obs *domain.PriceData, now uint64, live bool) (resolution, error) {
	price := domain.PriceData{
		Price:     decimals.Rescale(obs.Price, cfg.Decimals, st.decimals),
		Timestamp: obs.Timestamp,
	}
	if !st.breaker.Enabled {
		return resolution{price: &price, usable: true}, nil
	}

	var reference *domain.PriceData
	if obs.Timestamp >= uint64(cfg.Resolution) {
		ref, err := src.PriceAt(ctx, asset, obs.Timestamp-uint64(cfg.Resolution))
		switch {
		case errors.Is(err, domain.ErrNotImplemented):
		case err != nil:
			return resolution{}, fmt.Errorf("reference price from %s: %w", cfg.SourceID, err)
		case ref != nil:
			reference = &domain.PriceData{
				Price:     decimals.Rescale(ref.Price, cfg.Decimals, st.decimals),
				Timestamp: ref.Timestamp,
			}
		}
	}

	b := breaker{txn: txn, settings: st.breaker}
	evaluate := b.Evaluate
	if !live {
		evaluate = b.Check
	}
	usable, err := evaluate(ctx, asset, price, reference, now)
	if err != nil {
		return resolution{}, err
	}
	if !usable {
		if live {
			metrics.RecordBreakerTrip(asset.String())
		}
		log.Warn().
			Bool("live", live).
			Str("asset", asset.String()).
			Str("source", cfg.SourceID).
			Str("price", decimals.Format(price.Price, st.decimals)).
			Msg("circuit breaker rejected observation")
	}
	return resolution{price: &price, usable: usable}, nil
}

// prepare runs the checks shared by every pricing operation: blocked first,
// then registration, then the contract settings.
func (a *Aggregator) prepare(ctx context.Context, txn *state.Txn, asset domain.Asset) (cfg domain.OracleConfig, st settings, err error) {
	reg := registry{txn: txn}
	blocked, err := reg.IsBlocked(ctx, asset)
	if err != nil {
		return cfg, st, err
	}
	if blocked {
		return cfg, st, domain.ErrAssetBlocked
	}
	if cfg, err = reg.ConfigFor(ctx, asset); err != nil {
		return cfg, st, err
	}
	st, err = loadSettings(ctx, txn)
	return cfg, st, err
}

func unitPrice(st settings, ts uint64) *domain.PriceData {
	return &domain.PriceData{Price: decimals.Unit(st.decimals), Timestamp: ts}
}

// LastPrice returns the most recent usable price for asset at the
// aggregator's precision. When no live observation is usable it falls back
// to a cached price at most CacheMaxAge seconds old, and to nil after that.
func (a *Aggregator) LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.lastprice",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	defer a.pricing.lock(asset)()

	var result *domain.PriceData
	var outcome string
	err := a.run(ctx, func(txn *state.Txn) error {
		result, outcome = nil, metrics.OutcomeNone
		cfg, st, err := a.prepare(ctx, txn, asset)
		if err != nil {
			return err
		}
		now := a.clock.Now()
		if asset == st.base {
			result, outcome = unitPrice(st, now), metrics.OutcomeLive
			return nil
		}

		src, err := a.sources.Lookup(cfg.SourceID)
		if err != nil {
			return err
		}
		obs, err := src.LastPrice(ctx, asset)
		if err != nil {
			return fmt.Errorf("lastprice from %s: %w", cfg.SourceID, err)
		}

		cache := priceCache{txn: txn}
		if obs != nil {
			res, err := a.observe(ctx, txn, st, asset, cfg, src, obs, now, true)
			if err != nil {
				return err
			}
			if res.usable {
				cache.Record(asset, *res.price)
				result, outcome = res.price, metrics.OutcomeLive
				return nil
			}
		}

		cached, err := cache.LookupIfFresh(ctx, asset, now, CacheMaxAge)
		if err != nil {
			return err
		}
		if cached != nil {
			metrics.RecordCacheAge(asset.String(), cacheAge(cached, now))
			result, outcome = cached, metrics.OutcomeCache
		}
		return nil
	})
	return a.finish(span, "lastprice", asset, outcome, result, err)
}

// Price returns the price of asset at timestamp. The answer is gated by the
// breaker like LastPrice, but a historical read never changes breaker state
// and never touches the cache.
func (a *Aggregator) Price(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.price",
		trace.WithAttributes(
			attribute.String("asset", asset.String()),
			attribute.Int64("timestamp", int64(timestamp)),
		))
	defer span.End()

	var result *domain.PriceData
	var outcome string
	err := a.run(ctx, func(txn *state.Txn) error {
		result, outcome = nil, metrics.OutcomeNone
		cfg, st, err := a.prepare(ctx, txn, asset)
		if err != nil {
			return err
		}
		now := a.clock.Now()
		if timestamp == 0 || timestamp > now {
			return domain.ErrInvalidTimestamp
		}
		if asset == st.base {
			result, outcome = unitPrice(st, timestamp), metrics.OutcomeLive
			return nil
		}

		src, err := a.sources.Lookup(cfg.SourceID)
		if err != nil {
			return err
		}
		obs, err := src.PriceAt(ctx, asset, timestamp)
		if err != nil {
			return fmt.Errorf("price from %s: %w", cfg.SourceID, err)
		}
		if obs == nil {
			return nil
		}

		res, err := a.observe(ctx, txn, st, asset, cfg, src, obs, now, false)
		if err != nil {
			return err
		}
		if res.usable {
			result, outcome = res.price, metrics.OutcomeLive
		}
		return nil
	})
	return a.finish(span, "price", asset, outcome, result, err)
}

// LivePrice is an admin read that never serves the cache. A breaker
// rejection is reported as ErrCircuitBreakerTripped.
func (a *Aggregator) LivePrice(ctx context.Context, caller string, asset domain.Asset) (*domain.PriceData, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.liveprice",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	defer a.pricing.lock(asset)()

	var result *domain.PriceData
	var outcome string
	err := a.run(ctx, func(txn *state.Txn) error {
		result, outcome = nil, metrics.OutcomeNone
		if err := requireAdmin(ctx, txn, caller); err != nil {
			return err
		}
		cfg, st, err := a.prepare(ctx, txn, asset)
		if err != nil {
			return err
		}
		now := a.clock.Now()
		if asset == st.base {
			result, outcome = unitPrice(st, now), metrics.OutcomeLive
			return nil
		}

		src, err := a.sources.Lookup(cfg.SourceID)
		if err != nil {
			return err
		}
		obs, err := src.LastPrice(ctx, asset)
		if err != nil {
			return fmt.Errorf("lastprice from %s: %w", cfg.SourceID, err)
		}
		if obs == nil {
			return nil
		}

		res, err := a.observe(ctx, txn, st, asset, cfg, src, obs, now, true)
		if err != nil {
			return err
		}
		if !res.usable {
			return domain.ErrCircuitBreakerTripped
		}
		priceCache{txn: txn}.Record(asset, *res.price)
		result, outcome = res.price, metrics.OutcomeLive
		return nil
	})
	return a.finish(span, "liveprice", asset, outcome, result, err)
}

func (a *Aggregator) finish(span trace.Span, op string, asset domain.Asset, outcome string, result *domain.PriceData, err error) (*domain.PriceData, error) {
	if err != nil {
		if errors.Is(err, domain.ErrAssetBlocked) {
			outcome = metrics.OutcomeBlocked
		} else {
			outcome = metrics.OutcomeError
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug().Err(err).Str("op", op).Str("asset", asset.String()).Msg("price resolution failed")
		metrics.RecordResolution(op, outcome)
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	metrics.RecordResolution(op, outcome)
	return result, nil
}

func (a *Aggregator) Decimals(ctx context.Context) (uint32, error) {
	var out uint32
	err := a.run(ctx, func(txn *state.Txn) error {
		st, err := loadSettings(ctx, txn)
		out = st.decimals
		return err
	})
	return out, err
}

func (a *Aggregator) Base(ctx context.Context) (domain.Asset, error) {
	var out domain.Asset
	err := a.run(ctx, func(txn *state.Txn) error {
		st, err := loadSettings(ctx, txn)
		out = st.base
		return err
	})
	return out, err
}

// Assets returns the registered assets in registration order.
func (a *Aggregator) Assets(ctx context.Context) ([]domain.Asset, error) {
	var out []domain.Asset
	err := a.run(ctx, func(txn *state.Txn) error {
		if _, err := loadSettings(ctx, txn); err != nil {
			return err
		}
		assets, err := registry{txn: txn}.Assets(ctx)
		out = assets
		return err
	})
	return out, err
}

func (a *Aggregator) IsInitialized(ctx context.Context) (bool, error) {
	var out bool
	err := a.run(ctx, func(txn *state.Txn) error {
		init, err := txn.IsInitialized(ctx)
		out = init
		return err
	})
	return out, err
}

func (a *Aggregator) IsBlocked(ctx context.Context, asset domain.Asset) (bool, error) {
	var out bool
	err := a.run(ctx, func(txn *state.Txn) error {
		blocked, err := registry{txn: txn}.IsBlocked(ctx, asset)
		out = blocked
		return err
	})
	return out, err
}

// AssetConfig returns ErrAssetNotFound for unregistered assets.
func (a *Aggregator) AssetConfig(ctx context.Context, asset domain.Asset) (domain.OracleConfig, error) {
	var out domain.OracleConfig
	err := a.run(ctx, func(txn *state.Txn) error {
		cfg, err := registry{txn: txn}.ConfigFor(ctx, asset)
		out = cfg
		return err
	})
	return out, err
}

// BreakerStatus reports the stored breaker state. It does not expire a trip;
// that only happens when a new observation is evaluated.
func (a *Aggregator) BreakerStatus(ctx context.Context, asset domain.Asset) (domain.BreakerState, error) {
	var out domain.BreakerState
	err := a.run(ctx, func(txn *state.Txn) error {
		s, err := breaker{txn: txn}.State(ctx, asset)
		out = s
		return err
	})
	return out, err
}
