package cachemanager

import (
	"context"
	"time"
)

// ReadThrough loads missing values and keeps them in a Store. Failed loads
// are not stored, so the next Get retries them.
type ReadThrough[V, I any] struct {
	store Store[V]
	load  func(ctx context.Context, input I) (V, error)
}

func NewReadThrough[V, I any](store Store[V], load func(ctx context.Context, input I) (V, error)) *ReadThrough[V, I] {
	return &ReadThrough[V, I]{store: store, load: load}
}

// Get returns the value under key, loading it from input on a miss.
func (r *ReadThrough[V, I]) Get(ctx context.Context, key string, input I, ttl time.Duration) (V, error) {
	if value, ok := r.store.Get(key); ok {
		return value, nil
	}
	value, err := r.load(ctx, input)
	if err != nil {
		return value, err
	}
	r.store.Set(key, value, ttl)
	return value, nil
}

// Flush drops every stored value.
func (r *ReadThrough[V, I]) Flush() {
	r.store.Flush()
}
