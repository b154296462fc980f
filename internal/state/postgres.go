package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS aggregator_state (
    key         TEXT        PRIMARY KEY,
    value       BYTEA       NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_aggregator_state_expires_at
    ON aggregator_state (expires_at);
`

// expiresAt is the expiry for an entry touched now. A zero TTL never
// expires.
const expiresAt = `CASE WHEN $%[1]d::float8 = 0 THEN 'infinity'::timestamptz
                  ELSE now() + make_interval(secs => $%[1]d::float8) END`

var (
	getQuery = fmt.Sprintf(`UPDATE aggregator_state
		 SET expires_at = %s
		 WHERE key = $1 AND expires_at > now()
		 RETURNING value`, fmt.Sprintf(expiresAt, 2))

	upsertQuery = fmt.Sprintf(`INSERT INTO aggregator_state (key, value, expires_at)
		 VALUES ($1, $2, %s)
		 ON CONFLICT (key) DO UPDATE SET
		     value = EXCLUDED.value,
		     expires_at = EXCLUDED.expires_at`, fmt.Sprintf(expiresAt, 3))
)

const (
	lockKeyQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	peekKeyQuery = `SELECT value FROM aggregator_state WHERE key = $1 AND expires_at > now()`
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists entries in a single table with an expiry column.
type PostgresStore struct {
	pool   PgxPool
	tracer trace.Tracer
	ttl    time.Duration
}

func NewPostgresStore(pool PgxPool, tracer trace.Tracer, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, tracer: tracer, ttl: ttl}
}

func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "state-store.run-migrations")
	defer span.End()

	_, err := s.pool.Exec(ctx, createStateTable)
	return err
}

// Get refreshes the expiry and returns the value in one statement.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_, span := s.tracer.Start(ctx, "state-store.get")
	defer span.End()

	var value []byte
	err := s.pool.QueryRow(ctx, getQuery, key, s.ttl.Seconds()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Apply runs in one transaction holding an advisory lock on every key it
// touches. Locks are taken in key order so concurrent writers cannot
// deadlock, and they are released at commit or rollback.
func (s *PostgresStore) Apply(ctx context.Context, reads []Read, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "state-store.apply")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, key := range touchedKeys(reads, writes) {
		if _, err := tx.Exec(ctx, lockKeyQuery, key); err != nil {
			return err
		}
	}
	for _, r := range reads {
		var value []byte
		err := tx.QueryRow(ctx, peekKeyQuery, r.Key).Scan(&value)
		found := err == nil
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if !r.matches(value, found) {
			return ErrConflict
		}
	}
	for _, w := range writes {
		if _, err := tx.Exec(ctx, upsertQuery, w.Key, w.Value, s.ttl.Seconds()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func touchedKeys(reads []Read, writes []Write) []string {
	seen := make(map[string]struct{}, len(reads)+len(writes))
	keys := make([]string, 0, len(reads)+len(writes))
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, r := range reads {
		add(r.Key)
	}
	for _, w := range writes {
		add(w.Key)
	}
	sort.Strings(keys)
	return keys
}

func (s *PostgresStore) Close() error {
	return nil
}
