package aggregator

import (
	"context"
	"math/big"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/state"
)

var ppm = big.NewInt(1_000_000)

// Deviation returns |current-reference| in parts-per-million of reference,
// truncated. A zero reference has no defined deviation and returns nil.
func Deviation(current, reference *big.Int) *big.Int {
	if reference.Sign() == 0 {
		return nil
	}
	d := new(big.Int).Sub(current, reference)
	d.Abs(d)
	d.Mul(d, ppm)
	return d.Quo(d, new(big.Int).Abs(reference))
}

// exceeds reports whether current deviates from reference by more than
// threshold ppm. A zero reference always exceeds.
func exceeds(current, reference *big.Int, threshold uint64) bool {
	dev := Deviation(current, reference)
	if dev == nil {
		return true
	}
	return dev.Cmp(new(big.Int).SetUint64(threshold)) > 0
}

// breaker gates observations per asset. Once tripped, an asset stays tripped
// until its timeout passes, whatever later observations look like.
type breaker struct {
	txn      *state.Txn
	settings domain.BreakerSettings
}

// Evaluate reports whether current may be used. reference is the sample one
// resolution earlier at the same precision; nil skips the deviation check
// but still honours an active trip.
func (b breaker) Evaluate(ctx context.Context, asset domain.Asset, current domain.PriceData, reference *domain.PriceData, now uint64) (bool, error) {
	if !b.settings.Enabled {
		return true, nil
	}

	if reference != nil && exceeds(current.Price, reference.Price, b.settings.Threshold) {
		b.txn.SetBreakerStatus(asset, domain.CircuitBreakerStatus{Tripped: true})
		b.txn.SetBreakerTimeout(asset, now+b.settings.Timeout)
		return false, nil
	}

	status, err := b.txn.BreakerStatus(ctx, asset)
	if err != nil || !status.Tripped {
		return err == nil, err
	}
	until, err := b.txn.BreakerTimeout(ctx, asset)
	if err != nil {
		return false, err
	}
	if now >= until {
		b.txn.SetBreakerStatus(asset, domain.CircuitBreakerStatus{Tripped: false})
		return true, nil
	}
	return false, nil
}

// Check is Evaluate without side effects. A deviation rejects current but
// trips nothing, and an expired trip stays stored until a live observation
// clears it.
func (b breaker) Check(ctx context.Context, asset domain.Asset, current domain.PriceData, reference *domain.PriceData, now uint64) (bool, error) {
	if !b.settings.Enabled {
		return true, nil
	}
	if reference != nil && exceeds(current.Price, reference.Price, b.settings.Threshold) {
		return false, nil
	}
	st, err := b.State(ctx, asset)
	if err != nil {
		return false, err
	}
	return !st.Tripped || now >= st.Until, nil
}

func (b breaker) State(ctx context.Context, asset domain.Asset) (domain.BreakerState, error) {
	status, err := b.txn.BreakerStatus(ctx, asset)
	if err != nil {
		return domain.BreakerState{}, err
	}
	until, err := b.txn.BreakerTimeout(ctx, asset)
	if err != nil {
		return domain.BreakerState{}, err
	}
	return domain.BreakerState{Tripped: status.Tripped, Until: until}, nil
}
