// Package source holds the upstream price oracles the aggregator queries.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"oracle-aggregator/internal/domain"
)

// Source is an upstream oracle. Prices are in the source's native precision.
// A nil PriceData with a nil error means the source has no answer; an error
// means the call itself failed.
type Source interface {
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
	PriceAt(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error)
}

// Registry resolves the source IDs named in oracle configs.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds or replaces the source under id.
func (r *Registry) Register(id string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[id] = src
}

func (r *Registry) Lookup(id string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", id, domain.ErrOracleNotFound)
	}
	return src, nil
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[id]
	return ok
}

// IDs returns the registered source IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
