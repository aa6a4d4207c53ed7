// Package cachemanager memoizes reference lookups in a go-cache backed store.
package cachemanager

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultCleanupInterval = 30 * time.Minute

// Store holds values by key with per-item expiry.
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Flush()
}

// Memory is the in-process Store. A zero ttl passed to Set means the store
// default.
type Memory[V any] struct {
	items  *gocache.Cache
	logger *slog.Logger
}

// NewMemory creates a store whose items expire after ttl. A zero or negative
// ttl keeps items until Flush.
func NewMemory[V any](name string, ttl, cleanup time.Duration, logger *slog.Logger) *Memory[V] {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory[V]{
		items:  gocache.New(ttl, cleanup),
		logger: logger.With("cache", name),
	}
}

func (m *Memory[V]) Get(key string) (V, bool) {
	var zero V
	raw, found := m.items.Get(key)
	if !found {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		m.logger.Error("cached value has unexpected type", "key", key)
		return zero, false
	}
	m.logger.Debug("cache hit", "key", key)
	return value, true
}

func (m *Memory[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.items.Set(key, value, ttl)
}

func (m *Memory[V]) Flush() {
	m.items.Flush()
}
