package state

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps entries in process. A zero ttl disables expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, []byte]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: expirable.NewLRU[string, []byte](0, nil, ttl)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	// Re-adding resets the entry's expiry.
	m.entries.Add(key, v)
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Apply(ctx context.Context, reads []Read, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range reads {
		v, ok := m.entries.Peek(r.Key)
		if !r.matches(v, ok) {
			return ErrConflict
		}
	}
	for _, w := range writes {
		m.entries.Add(w.Key, append([]byte(nil), w.Value...))
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Purge()
	return nil
}
