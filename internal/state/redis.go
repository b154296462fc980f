package state

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "oracle:"

// applyScript checks every read key against its observed value and, only if
// all match, sets every write key. KEYS holds the read keys followed by the
// write keys. ARGV is the read count, the TTL in milliseconds (0 keeps
// entries forever), a found flag and value per read, then the write values.
var applyScript = redis.NewScript(`
local nreads = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
for i = 1, nreads do
  local cur = redis.call('GET', KEYS[i])
  if ARGV[1 + 2 * i] == '1' then
    if cur ~= ARGV[2 + 2 * i] then return 0 end
  elseif cur then
    return 0
  end
end
local off = 2 + 2 * nreads
for i = nreads + 1, #KEYS do
  local v = ARGV[off + i - nreads]
  if ttl > 0 then
    redis.call('SET', KEYS[i], v, 'PX', ttl)
  else
    redis.call('SET', KEYS[i], v)
  end
end
return 1
`)

type RedisClient interface {
	redis.Scripter
	GetEx(ctx context.Context, key string, expiration time.Duration) *redis.StringCmd
}

// RedisStore keeps each entry under its own key with a TTL. Reads use GETEX
// so the expiry is refreshed in the same round trip. Apply runs as a single
// script, so the read-set check and the writes are atomic on the server.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.GetEx(ctx, redisKeyPrefix+key, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Apply(ctx context.Context, reads []Read, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(reads)+len(writes))
	args := make([]any, 0, 2+2*len(reads)+len(writes))
	args = append(args, len(reads), s.ttl.Milliseconds())
	for _, r := range reads {
		keys = append(keys, redisKeyPrefix+r.Key)
		found := "0"
		if r.Found {
			found = "1"
		}
		args = append(args, found, r.Value)
	}
	for _, w := range writes {
		keys = append(keys, redisKeyPrefix+w.Key)
		args = append(args, w.Value)
	}

	applied, err := applyScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return err
	}
	if applied == 0 {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
