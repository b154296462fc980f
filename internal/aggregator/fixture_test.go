package aggregator

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/source"
	"oracle-aggregator/internal/state"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// Sept 1st, 2015 00:00:00 UTC
const ledgerStart = uint64(1441065600)

const admin = "GADMIN"

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fixture struct {
	agg     *Aggregator
	store   *state.MemoryStore
	sources *source.Registry
	now     uint64

	oracle1 *source.StaticSource
	oracle2 *source.StaticSource

	xlm  domain.Asset
	usdc domain.Asset
	weth domain.Asset
}

func newBareFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   state.NewMemoryStore(0),
		sources: source.NewRegistry(),
		now:     ledgerStart,
		oracle1: source.NewStaticSource(),
		oracle2: source.NewStaticSource(),
		xlm:     domain.StellarAsset("GBXLMASSET"),
		usdc:    domain.OtherAsset("USDC"),
		weth:    domain.OtherAsset("wETH"),
	}
	f.sources.Register("oracle-1", f.oracle1)
	f.sources.Register("oracle-2", f.oracle2)
	f.agg = New(testTracer, f.store, f.sources, ClockFunc(func() uint64 { return f.now }))
	return f
}

// newFixture mirrors the default deployment: xlm and usdc priced by a
// 9-decimal oracle sampling every 300s, wETH by a 6-decimal oracle sampling
// every 600s, usdc as base, output at 7 decimals.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newBareFixture(t)
	now := f.now

	f.oracle1.Set(f.xlm, big.NewInt(110000000), now)
	f.oracle1.Set(f.xlm, big.NewInt(100000000), now-300)
	f.oracle1.Set(f.xlm, big.NewInt(120000000), now-600)
	f.oracle1.Set(f.usdc, big.NewInt(1000000000), now)
	f.oracle1.Set(f.usdc, big.NewInt(990000000), now-300)
	f.oracle1.Set(f.usdc, big.NewInt(1010000000), now-600)
	f.oracle2.Set(f.weth, big.NewInt(1010000000), now)
	f.oracle2.Set(f.weth, big.NewInt(1010000000), now-600)
	f.oracle2.Set(f.weth, big.NewInt(999000000), now-1200)

	require.NoError(t, f.agg.Initialize(context.Background(), admin, f.defaultSettings()))
	return f
}

func (f *fixture) defaultSettings() domain.SettingsConfig {
	return domain.SettingsConfig{
		Assets: []domain.Asset{f.xlm, f.usdc, f.weth},
		AssetConfigs: []domain.OracleConfig{
			{SourceID: "oracle-1", Decimals: 9, Resolution: 300},
			{SourceID: "oracle-1", Decimals: 9, Resolution: 300},
			{SourceID: "oracle-2", Decimals: 6, Resolution: 600},
		},
		Decimals:                7,
		Base:                    f.usdc,
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 100000,
		CircuitBreakerTimeout:   7200,
	}
}

func (f *fixture) seedLastPrice(t *testing.T, asset domain.Asset, price int64, ts uint64) {
	t.Helper()
	txn := state.Begin(f.store)
	txn.SetLastFetchedPrice(asset, domain.NewPriceData(price, ts))
	require.NoError(t, txn.Commit(context.Background()))
}

func (f *fixture) lastFetched(t *testing.T, asset domain.Asset) *domain.PriceData {
	t.Helper()
	p, err := state.Begin(f.store).LastFetchedPrice(context.Background(), asset)
	require.NoError(t, err)
	return p
}

// fakeSource is a scriptable single-asset oracle.
type fakeSource struct {
	mu      sync.Mutex
	last    *domain.PriceData
	lastErr error
	history map[uint64]*domain.PriceData
	atErr   error
	atCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{history: make(map[uint64]*domain.PriceData)}
}

func (s *fakeSource) setLast(price int64, ts uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.NewPriceData(price, ts)
	s.last = &p
}

func (s *fakeSource) setAt(price int64, ts uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.NewPriceData(price, ts)
	s.history[ts] = &p
}

func (s *fakeSource) LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		return nil, s.lastErr
	}
	if s.last == nil {
		return nil, nil
	}
	c := s.last.Clone()
	return &c, nil
}

func (s *fakeSource) PriceAt(ctx context.Context, asset domain.Asset, ts uint64) (*domain.PriceData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atCalls++
	if s.atErr != nil {
		return nil, s.atErr
	}
	p, ok := s.history[ts]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}
