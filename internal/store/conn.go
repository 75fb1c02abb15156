package store

import (
	"context"
	"fmt"
	"sync"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var _ Store = (*Conn)(nil)

// Conn guards a Store with a one-shot connection lifecycle:
// Disconnected -> Connecting -> Connected -> Closed.
// A failed Connect closes the underlying store; there is no reconnect.
type Conn struct {
	store   Store
	onError func(error)

	mu    sync.RWMutex
	state State
}

type ConnOption func(c *Conn)

// WithOnError registers a callback invoked once when Connect fails.
func WithOnError(f func(error)) ConnOption {
	return ConnOption(func(c *Conn) {
		c.onError = f
	})
}

func NewConn(s Store, opts ...ConnOption) *Conn {
	c := &Conn{
		store:   s,
		onError: func(error) {},
	}
	for _, e := range opts {
		e(c)
	}
	return c
}

func (c *Conn) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Conn) Ready() bool {
	return c.State() == Connected
}

func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("connect: unexpected state %s", st)
	}
	c.state = Connecting
	c.mu.Unlock()

	if err := c.store.Ping(ctx); err != nil {
		c.onError(err)
		c.Close()
		return fmt.Errorf("connect: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Close may have won the race while pinging.
	if c.state != Connecting {
		return ErrNotConnected
	}
	c.state = Connected
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if !c.Ready() {
		return ErrNotConnected
	}
	return c.store.Ping(ctx)
}

func (c *Conn) Get(ctx context.Context, key string) (string, error) {
	if !c.Ready() {
		return "", ErrNotConnected
	}
	return c.store.Get(ctx, key)
}

func (c *Conn) Set(ctx context.Context, key string, value string) error {
	if !c.Ready() {
		return ErrNotConnected
	}
	return c.store.Set(ctx, key, value)
}

func (c *Conn) Incr(ctx context.Context, key string) (int64, error) {
	if !c.Ready() {
		return 0, ErrNotConnected
	}
	return c.store.Incr(ctx, key)
}

// Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	c.state = Closed
	c.mu.Unlock()

	return c.store.Close()
}
