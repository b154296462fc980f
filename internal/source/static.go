package source

import (
	"context"
	"math/big"
	"sync"

	"oracle-aggregator/internal/domain"
)

// StaticSource serves prices from an in-memory history. It backs tests and
// fixed-price deployments.
type StaticSource struct {
	mu        sync.RWMutex
	history   map[domain.Asset][]domain.PriceData
	noHistory bool
}

func NewStaticSource() *StaticSource {
	return &StaticSource{history: make(map[domain.Asset][]domain.PriceData)}
}

// WithoutHistory makes PriceAt answer ErrNotImplemented, like an oracle that
// only publishes its latest price.
func (s *StaticSource) WithoutHistory() *StaticSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noHistory = true
	return s
}

// Set records a sample. A later sample at the same timestamp replaces the
// earlier one.
func (s *StaticSource) Set(asset domain.Asset, price *big.Int, timestamp uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := domain.PriceData{Price: new(big.Int).Set(price), Timestamp: timestamp}
	samples := s.history[asset]
	for i := range samples {
		if samples[i].Timestamp == timestamp {
			samples[i] = sample
			return
		}
	}
	s.history[asset] = append(samples, sample)
}

// SetPrices records one sample per asset at the same timestamp.
func (s *StaticSource) SetPrices(assets []domain.Asset, prices []*big.Int, timestamp uint64) {
	for i, asset := range assets {
		if i >= len(prices) {
			return
		}
		s.Set(asset, prices[i], timestamp)
	}
}

// LastPrice returns the sample with the newest timestamp.
func (s *StaticSource) LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *domain.PriceData
	for i := range s.history[asset] {
		sample := &s.history[asset][i]
		if newest == nil || sample.Timestamp > newest.Timestamp {
			newest = sample
		}
	}
	if newest == nil {
		return nil, nil
	}
	out := newest.Clone()
	return &out, nil
}

// PriceAt only matches exact timestamps.
func (s *StaticSource) PriceAt(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.noHistory {
		return nil, domain.ErrNotImplemented
	}
	for _, sample := range s.history[asset] {
		if sample.Timestamp == timestamp {
			out := sample.Clone()
			return &out, nil
		}
	}
	return nil, nil
}
