package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Txn stages writes over a Store. Reads see staged values first. Nothing
// reaches the store until Commit, so discarding a Txn rolls the operation
// back. Commit fails with ErrConflict if anything the Txn read from the store
// has changed in the meantime.
type Txn struct {
	store   Store
	pending map[string][]byte
	order   []string
	reads   map[string]Read
	err     error
}

func Begin(store Store) *Txn {
	return &Txn{
		store:   store,
		pending: make(map[string][]byte),
		reads:   make(map[string]Read),
	}
}

func (t *Txn) get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.pending[key]; ok {
		return v, true, nil
	}
	if r, ok := t.reads[key]; ok {
		return r.Value, r.Found, nil
	}
	v, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	t.reads[key] = Read{Key: key, Value: v, Found: ok}
	return v, ok, nil
}

func (t *Txn) put(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		if t.err == nil {
			t.err = fmt.Errorf("encode %s: %w", key, err)
		}
		return
	}
	if _, staged := t.pending[key]; !staged {
		t.order = append(t.order, key)
	}
	t.pending[key] = data
}

// load decodes key into dst. found is false when the key is absent.
func (t *Txn) load(ctx context.Context, key string, dst any) (bool, error) {
	data, ok, err := t.get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Pending reports how many keys are staged.
func (t *Txn) Pending() int {
	return len(t.order)
}

func (t *Txn) Commit(ctx context.Context) error {
	if t.err != nil {
		return t.err
	}
	if len(t.order) == 0 {
		return nil
	}
	writes := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		writes = append(writes, Write{Key: k, Value: t.pending[k]})
	}
	reads := make([]Read, 0, len(t.reads))
	for _, r := range t.reads {
		reads = append(reads, r)
	}
	sort.Slice(reads, func(i, j int) bool { return reads[i].Key < reads[j].Key })
	if err := t.store.Apply(ctx, reads, writes); err != nil {
		return fmt.Errorf("commit %d writes: %w", len(writes), err)
	}
	t.Discard()
	return nil
}

func (t *Txn) Discard() {
	t.pending = make(map[string][]byte)
	t.reads = make(map[string]Read)
	t.order = nil
	t.err = nil
}
