package store

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr())
	t.Cleanup(func() { s.Close() })
	return mr, s
}

func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "visits")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "visits", "41"))
	v, err := s.Get(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, "41", v)

	n, err := s.Incr(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = s.Incr(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, bad := range []string{"abc", "-3", "-1", "1.5", ""} {
		require.NoError(t, s.Set(ctx, "bad", bad))
		_, err = s.Incr(ctx, "bad")
		require.ErrorIs(t, err, ErrNotCounter, "value=%q", bad)

		var nce *NotCounterError
		require.ErrorAs(t, err, &nce)
		assert.Equal(t, bad, nce.Value)

		v, err := s.Get(ctx, "bad")
		require.NoError(t, err)
		assert.Equal(t, bad, v, "Incr must not write a rejected value")
	}
}

func TestLocalStore(t *testing.T) {
	testStoreContract(t, NewLocalStore())
}

func TestRedisStore(t *testing.T) {
	_, s := newRedis(t)
	testStoreContract(t, s)
}

func TestLocalStore_IncrOverflow(t *testing.T) {
	s := NewLocalStore()
	ctx := context.Background()
	maxValue := strconv.FormatInt(math.MaxInt64, 10)
	require.NoError(t, s.Set(ctx, "visits", maxValue))

	_, err := s.Incr(ctx, "visits")
	require.Error(t, err)

	v, err := s.Get(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, maxValue, v)
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, s := newRedis(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "visits", "3"))

	mr.Close()

	assert.Error(t, s.Ping(ctx))
	_, err := s.Get(ctx, "visits")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, s.Set(ctx, "visits", "4"))
}

func TestLocalStore_ConcurrentIncr(t *testing.T) {
	s := NewLocalStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Incr(ctx, "visits")
		}()
	}
	wg.Wait()

	v, err := s.Get(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, "50", v)
}

func TestLocalStore_SetNotLostUnderIncr(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		s := NewLocalStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Incr(ctx, "visits")
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(ctx, "visits", "1000")
		}()
		wg.Wait()

		v, err := s.Get(ctx, "visits")
		require.NoError(t, err)
		n, err := strconv.ParseInt(v, 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1000), "an Incr overwrote a concurrent Set")
		assert.LessOrEqual(t, n, int64(1050))
	}
}

type failingStore struct {
	*LocalStore
	pingErr error
	closed  int
}

func (s *failingStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *failingStore) Close() error {
	s.closed++
	return nil
}

func TestConn_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewConn(NewLocalStore())
	assert.Equal(t, Disconnected, c.State())

	_, err := c.Get(ctx, "visits")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.Set(ctx, "visits", "1"), ErrNotConnected)

	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, Connected, c.State())
	assert.True(t, c.Ready())

	require.NoError(t, c.Set(ctx, "visits", "1"))
	v, err := c.Get(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	assert.Error(t, c.Connect(ctx), "second connect must be rejected")

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, Closed, c.State())
	_, err = c.Incr(ctx, "visits")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConn_ConnectFailureCloses(t *testing.T) {
	ctx := context.Background()
	pingErr := errors.New("dial tcp: connection refused")
	fs := &failingStore{LocalStore: NewLocalStore(), pingErr: pingErr}

	var got []error
	c := NewConn(fs, WithOnError(func(err error) { got = append(got, err) }))

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.Equal(t, []error{pingErr}, got)
	assert.Equal(t, Closed, c.State())
	assert.Equal(t, 1, fs.closed)

	_, err = c.Get(ctx, "visits")
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, fs.closed)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "State(9)", State(9).String())
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveOp(op string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s := NewInstrumented(NewLocalStore(), obs)

	s.Get(ctx, "visits")
	s.Set(ctx, "visits", "1")
	s.Incr(ctx, "visits")
	require.NoError(t, s.Ping(ctx))

	assert.Equal(t, []string{"get", "set", "incr"}, obs.ops)
}
