package aggregator

import (
	"context"
	"math/big"
	"testing"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceAtTimestamp(t *testing.T) {
	f := newFixture(t)

	p, err := f.agg.Price(context.Background(), f.weth, f.now-600)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "10100000000", p.Price.String())
	assert.Equal(t, f.now-600, p.Timestamp)
	assert.Nil(t, f.lastFetched(t, f.weth), "historical reads are not cached")
}

func TestPriceRejectsInvalidTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, ts := range []uint64{0, f.now + 1} {
		_, err := f.agg.Price(ctx, f.weth, ts)
		require.ErrorIs(t, err, domain.ErrInvalidTimestamp)
		code, _ := domain.AsOracleError(err)
		assert.EqualValues(t, 106, code.Code())
	}

	_, err := f.agg.Price(ctx, f.weth, f.now)
	assert.NoError(t, err)
}

func TestPriceMissingSampleIsNil(t *testing.T) {
	f := newFixture(t)
	f.seedLastPrice(t, f.xlm, 1100000, f.now)

	p, err := f.agg.Price(context.Background(), f.xlm, f.now-299)
	require.NoError(t, err)
	assert.Nil(t, p, "no cache fallback for historical reads")
}

func TestPriceIsBreakerGatedWithoutTripping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 0.10 against 0.12 one resolution earlier is a 16.6% move.
	p, err := f.agg.Price(ctx, f.xlm, f.now-300)
	require.NoError(t, err)
	assert.Nil(t, p)

	status, err := f.agg.BreakerStatus(ctx, f.xlm)
	require.NoError(t, err)
	assert.Equal(t, domain.BreakerState{}, status, "historical reads leave the live breaker alone")

	live, err := f.agg.LastPrice(ctx, f.xlm)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "1100000", live.Price.String())
}

func TestPriceHonoursActiveTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.now

	// 0.13 against 0.11 trips xlm until start+300+7200.
	f.now = start + 300
	f.oracle1.Set(f.xlm, big.NewInt(130000000), f.now)
	_, err := f.agg.LastPrice(ctx, f.xlm)
	require.NoError(t, err)
	tripped, err := f.agg.BreakerStatus(ctx, f.xlm)
	require.NoError(t, err)
	require.True(t, tripped.Tripped)

	// start against start-300 is within threshold, but the trip is active.
	p, err := f.agg.Price(ctx, f.xlm, start)
	require.NoError(t, err)
	assert.Nil(t, p)

	f.now = tripped.Until
	p, err = f.agg.Price(ctx, f.xlm, start)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1100000", p.Price.String())

	after, err := f.agg.BreakerStatus(ctx, f.xlm)
	require.NoError(t, err)
	assert.Equal(t, tripped, after, "only live observations reset the breaker")
}

func TestPriceBaseAsset(t *testing.T) {
	f := newFixture(t)

	p, err := f.agg.Price(context.Background(), f.usdc, f.now-1000)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "10000000", p.Price.String())
	assert.Equal(t, f.now-1000, p.Timestamp)
}

func TestPriceBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.agg.Block(ctx, admin, f.weth))

	_, err := f.agg.Price(ctx, f.weth, f.now)
	assert.ErrorIs(t, err, domain.ErrAssetBlocked)
}

func TestPriceSourceWithoutHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	latestOnly := source.NewStaticSource().WithoutHistory()
	f.sources.Register("latest-only", latestOnly)
	btc := domain.OtherAsset("BTC")
	latestOnly.Set(btc, big.NewInt(970000000000), f.now)

	require.NoError(t, f.agg.AddAsset(ctx, admin, btc, domain.OracleConfig{SourceID: "latest-only", Decimals: 7, Resolution: 60}))

	_, err := f.agg.Price(ctx, btc, f.now)
	require.ErrorIs(t, err, domain.ErrNotImplemented)
	code, _ := domain.AsOracleError(err)
	assert.EqualValues(t, 100, code.Code())

	// LastPrice still works: the missing reference only skips the deviation check.
	p, err := f.agg.LastPrice(ctx, btc)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "970000000000", p.Price.String())
}

func TestLivePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.agg.LivePrice(ctx, "GINTRUDER", f.xlm)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	p, err := f.agg.LivePrice(ctx, admin, f.xlm)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1100000", p.Price.String())
	assert.NotNil(t, f.lastFetched(t, f.xlm))
}

func TestLivePriceTripIsAnErrorAndRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.now
	f.seedLastPrice(t, f.xlm, 1100000, start)

	f.now = start + 300
	f.oracle1.Set(f.xlm, big.NewInt(130000000), f.now)

	_, err := f.agg.LivePrice(ctx, admin, f.xlm)
	require.ErrorIs(t, err, domain.ErrCircuitBreakerTripped)
	code, _ := domain.AsOracleError(err)
	assert.EqualValues(t, 104, code.Code())

	status, err := f.agg.BreakerStatus(ctx, f.xlm)
	require.NoError(t, err)
	assert.False(t, status.Tripped, "a failed invocation leaves no trace")
}
