package store

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"

	"github.com/patrickmn/go-cache"
)

var _ Store = (*LocalStore)(nil)

var errIncrOverflow = errors.New("increment would overflow")

// LocalStore keeps values in process memory. Values never expire.
type LocalStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewLocalStore() *LocalStore {
	return &LocalStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *LocalStore) Ping(ctx context.Context) error {
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *LocalStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *LocalStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if v, ok := s.cache.Get(key); ok {
		cur, err := strconv.ParseInt(v.(string), 10, 64)
		if err != nil || cur < 0 {
			return 0, &NotCounterError{Key: key, Value: v.(string)}
		}
		if cur == math.MaxInt64 {
			return 0, errIncrOverflow
		}
		n = cur
	}
	n++
	s.cache.Set(key, strconv.FormatInt(n, 10), cache.NoExpiration)
	return n, nil
}

func (s *LocalStore) Close() error {
	s.cache.Flush()
	return nil
}
