package store

import (
	"context"
	"time"
)

type Observer interface {
	ObserveOp(op string, d time.Duration, err error)
}

var _ Store = (*Instrumented)(nil)

// Instrumented reports the latency of every data operation to an Observer.
type Instrumented struct {
	Store
	obs Observer
}

func NewInstrumented(s Store, obs Observer) *Instrumented {
	return &Instrumented{Store: s, obs: obs}
}

func (s *Instrumented) Get(ctx context.Context, key string) (string, error) {
	now := time.Now()
	v, err := s.Store.Get(ctx, key)
	s.obs.ObserveOp("get", time.Since(now), err)
	return v, err
}

func (s *Instrumented) Set(ctx context.Context, key string, value string) error {
	now := time.Now()
	err := s.Store.Set(ctx, key, value)
	s.obs.ObserveOp("set", time.Since(now), err)
	return err
}

func (s *Instrumented) Incr(ctx context.Context, key string) (int64, error) {
	now := time.Now()
	n, err := s.Store.Incr(ctx, key)
	s.obs.ObserveOp("incr", time.Since(now), err)
	return n, err
}
