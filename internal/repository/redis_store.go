package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements ReservationStore on a Redis server. Record and index
// keys rely on native TTL eviction as the first line of expiry; the capped
// increment runs as a Lua script so the availability check and the counter
// update are one atomic step on the server.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a store backed by the given client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// incrCappedScript rejects the increment when it would push the counter past
// the limit, returning the unchanged count so callers can report how much
// stock actually remains.
var incrCappedScript = redis.NewScript(`
    local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
    local delta = tonumber(ARGV[1])
    local limit = tonumber(ARGV[2])
    if cur + delta > limit then
        return { 0, cur }
    end
    local new = redis.call('INCRBY', KEYS[1], delta)
    if tonumber(ARGV[3]) > 0 then
        redis.call('PEXPIRE', KEYS[1], ARGV[3])
    end
    return { 1, new }
`)

// decrFloorScript clamps the counter at zero and removes it entirely when it
// reaches zero, so an idle bucket leaves nothing behind.
var decrFloorScript = redis.NewScript(`
    local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
    local new = cur - tonumber(ARGV[1])
    if new <= 0 then
        redis.call('DEL', KEYS[1])
        return 0
    end
    redis.call('SET', KEYS[1], new, 'KEEPTTL')
    return new
`)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, storeErr("get", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return storeErr("set", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, storeErr("delete", err)
	}
	return n, nil
}

func (s *RedisStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, storeErr("scan", err)
	}
	return keys, nil
}

func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, storeErr("get counter", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, storeErr("parse counter", err)
	}
	return n, nil
}

func (s *RedisStore) IncrByCapped(ctx context.Context, key string, delta, limit int64, ttl time.Duration) (int64, bool, error) {
	res, err := incrCappedScript.Run(ctx, s.rdb, []string{key}, delta, limit, ttl.Milliseconds()).Result()
	if err != nil {
		return 0, false, storeErr("capped incr", err)
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) != 2 {
		return 0, false, storeErr("capped incr", fmt.Errorf("unexpected script result %#v", res))
	}
	applied := asInt64(arr[0]) == 1
	return asInt64(arr[1]), applied, nil
}

func (s *RedisStore) DecrByFloor(ctx context.Context, key string, delta int64) (int64, error) {
	res, err := decrFloorScript.Run(ctx, s.rdb, []string{key}, delta).Result()
	if err != nil {
		return 0, storeErr("floored decr", err)
	}
	return asInt64(res), nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
