package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// incrScript increments KEYS[1] only when it is unset or holds a non-negative integer.
// Reply: {1, new value} or {0, current value}.
var incrScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and not string.match(v, '^%d+$') then
  return {0, v}
end
return {1, redis.call('INCR', KEYS[1])}
`)

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{addr},
			DialTimeout:  time.Second * 2,
			ReadTimeout:  time.Second * 2,
			WriteTimeout: time.Second * 2,
			PoolSize:     200,
			PoolTimeout:  time.Second * 5,
		}),
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.Ping: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis.Get: key=%s, %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis.Set: key=%s, %w", key, err)
	}
	return nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}).Slice()
	if err != nil {
		return 0, fmt.Errorf("incrScript.Run: key=%s, %w", key, err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("incrScript.Run: key=%s, unexpected reply %v", key, res)
	}

	if ok, _ := res[0].(int64); ok != 1 {
		v, _ := res[1].(string)
		return 0, &NotCounterError{Key: key, Value: v}
	}
	n, ok := res[1].(int64)
	if !ok {
		return 0, fmt.Errorf("incrScript.Run: key=%s, unexpected reply %v", key, res)
	}
	return n, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
