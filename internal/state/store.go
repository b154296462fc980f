// Package state holds the aggregator's durable state behind a small
// key-value interface. Every backend keeps entries alive for a TTL that is
// refreshed whenever an entry is read or written.
package state

import (
	"bytes"
	"context"
	"errors"
	"time"
)

const (
	// DefaultTTL mirrors the ledger's 31-day persistent bump.
	DefaultTTL = 31 * 24 * time.Hour
)

// ErrConflict is returned by Apply when a key changed after it was read.
var ErrConflict = errors.New("state changed since it was read")

// Write is a single staged assignment.
type Write struct {
	Key   string
	Value []byte
}

// Read is a value observed by a transaction. Found is false when the key was
// absent or expired.
type Read struct {
	Key   string
	Value []byte
	Found bool
}

// matches reports whether the current value of a key is the one observed.
func (r Read) matches(value []byte, found bool) bool {
	if r.Found != found {
		return false
	}
	return !found || bytes.Equal(r.Value, value)
}

// Store is the persistence boundary. Get refreshes the expiry of the entry it
// returns and reports ok=false for missing or expired keys. Apply commits all
// writes or none, and only while every key in reads still holds the observed
// value; otherwise it returns ErrConflict. A zero TTL means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Apply(ctx context.Context, reads []Read, writes []Write) error
	Close() error
}
