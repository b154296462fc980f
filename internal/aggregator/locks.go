package aggregator

import (
	"sync"

	"oracle-aggregator/internal/domain"
)

// assetLocks hands out one mutex per asset. Entries are dropped once nobody
// holds or waits on them, so arbitrary request assets do not accumulate.
type assetLocks struct {
	mu    sync.Mutex
	locks map[domain.Asset]*assetLock
}

type assetLock struct {
	sync.Mutex
	refs int
}

// lock blocks until asset is free and returns the matching unlock.
func (l *assetLocks) lock(asset domain.Asset) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[domain.Asset]*assetLock)
	}
	al, ok := l.locks[asset]
	if !ok {
		al = &assetLock{}
		l.locks[asset] = al
	}
	al.refs++
	l.mu.Unlock()

	al.Lock()
	return func() {
		al.Unlock()
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, asset)
		}
		l.mu.Unlock()
	}
}
