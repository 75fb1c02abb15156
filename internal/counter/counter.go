package counter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"
	"github.com/tckz/go-redis-visits/internal/store"
)

const DefaultKey = "visits"

type Mode string

const (
	// ModeGetSet reads then writes. Concurrent visits may lose updates.
	ModeGetSet Mode = "getset"
	// ModeIncr uses the store's atomic increment.
	ModeIncr Mode = "incr"
)

var Modes = []Mode{ModeGetSet, ModeIncr}

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !lo.Contains(Modes, m) {
		return "", fmt.Errorf("unknown mode: %s, must be one of %v", s, Modes)
	}
	return m, nil
}

var (
	ErrInvalidState = errors.New("invalid counter state")
	ErrOverflow     = errors.New("counter would overflow")
)

// InvalidStateError reports a stored counter value that is not a non-negative integer.
type InvalidStateError struct {
	Key   string
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: key=%s, value=%q", ErrInvalidState, e.Key, e.Value)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

type Counter struct {
	store store.Store
	key   string
	mode  Mode
}

type Option func(c *Counter)

func WithKey(key string) Option {
	return Option(func(c *Counter) {
		c.key = key
	})
}

func WithMode(m Mode) Option {
	return Option(func(c *Counter) {
		c.mode = m
	})
}

func New(s store.Store, opts ...Option) *Counter {
	c := &Counter{
		store: s,
		key:   DefaultKey,
		mode:  ModeGetSet,
	}
	for _, e := range opts {
		e(c)
	}
	return c
}

func (c *Counter) Key() string {
	return c.key
}

func (c *Counter) Mode() Mode {
	return c.mode
}

// Seed resets the counter to 0, overwriting any existing value.
func (c *Counter) Seed(ctx context.Context) error {
	if err := c.store.Set(ctx, c.key, "0"); err != nil {
		return fmt.Errorf("store.Set: %w", err)
	}
	return nil
}

// Current returns the stored value without changing it. An unset key reads as 0.
func (c *Counter) Current(ctx context.Context) (int64, error) {
	v, err := c.store.Get(ctx, c.key)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store.Get: %w", err)
	}
	return c.parse(v)
}

// Visit increments the counter and returns the value it had before.
func (c *Counter) Visit(ctx context.Context) (int64, error) {
	if c.mode == ModeIncr {
		return c.visitIncr(ctx)
	}
	return c.visitGetSet(ctx)
}

func (c *Counter) visitGetSet(ctx context.Context) (int64, error) {
	prev, err := c.Current(ctx)
	if err != nil {
		return 0, err
	}
	if prev == math.MaxInt64 {
		return 0, fmt.Errorf("%w: key=%s", ErrOverflow, c.key)
	}

	if err := c.store.Set(ctx, c.key, strconv.FormatInt(prev+1, 10)); err != nil {
		return 0, fmt.Errorf("store.Set: %w", err)
	}
	return prev, nil
}

func (c *Counter) visitIncr(ctx context.Context) (int64, error) {
	n, err := c.store.Incr(ctx, c.key)
	if err != nil {
		var nce *store.NotCounterError
		if errors.As(err, &nce) {
			return 0, &InvalidStateError{Key: c.key, Value: nce.Value}
		}
		return 0, fmt.Errorf("store.Incr: %w", err)
	}
	return n - 1, nil
}

func (c *Counter) parse(v string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, &InvalidStateError{Key: c.key, Value: v}
	}
	return n, nil
}
