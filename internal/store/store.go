package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("store: key not found")
	ErrNotConnected = errors.New("store: connection is not open")
	ErrNotCounter   = errors.New("store: value is not a non-negative integer")
)

// NotCounterError is returned by Incr when the stored value cannot be counted.
// The value is left as it was.
type NotCounterError struct {
	Key   string
	Value string
}

func (e *NotCounterError) Error() string {
	return fmt.Sprintf("%s: key=%s, value=%q", ErrNotCounter, e.Key, e.Value)
}

func (e *NotCounterError) Unwrap() error {
	return ErrNotCounter
}

// Store is a key-value store holding text values.
type Store interface {
	Ping(ctx context.Context) error
	// Get returns ErrNotFound when key is unset.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	// Incr atomically adds 1 to key and returns the new value. An unset key
	// counts as 0. Anything but a non-negative integer fails with
	// *NotCounterError without writing.
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}
