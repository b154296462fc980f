package state

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

var ErrStoreClosed = errors.New("store is closed")

// PebbleStore is an embedded on-disk backend. Pebble has no native TTL, so
// every value is prefixed with an 8-byte big-endian unix expiry. Pebble locks
// its directory, so only one process ever writes; mu orders the read-set
// check against commits within it.
type PebbleStore struct {
	mu  sync.Mutex
	db  *pebble.DB
	ttl time.Duration
	now func() time.Time
}

func OpenPebbleStore(path string, opts *pebble.Options, ttl time.Duration) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *PebbleStore) envelope(value []byte) []byte {
	out := make([]byte, 8+len(value))
	var expiry int64
	if s.ttl > 0 {
		expiry = s.now().Add(s.ttl).Unix()
	}
	binary.BigEndian.PutUint64(out, uint64(expiry))
	copy(out[8:], value)
	return out
}

// peek returns the live value of key without refreshing it.
func (s *PebbleStore) peek(key string) ([]byte, bool, error) {
	raw, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	if len(raw) < 8 {
		return nil, false, errors.New("corrupt state entry " + key)
	}
	expiry := int64(binary.BigEndian.Uint64(raw[:8]))
	if expiry != 0 && s.now().Unix() >= expiry {
		return nil, false, nil
	}
	value := make([]byte, len(raw)-8)
	copy(value, raw[8:])
	return value, true, nil
}

func (s *PebbleStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, false, ErrStoreClosed
	}

	value, ok, err := s.peek(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := s.db.Set([]byte(key), s.envelope(value), pebble.NoSync); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *PebbleStore) Apply(ctx context.Context, reads []Read, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrStoreClosed
	}

	for _, r := range reads {
		v, ok, err := s.peek(r.Key)
		if err != nil {
			return err
		}
		if !r.matches(v, ok) {
			return ErrConflict
		}
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, w := range writes {
		if err := batch.Set([]byte(w.Key), s.envelope(w.Value), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
