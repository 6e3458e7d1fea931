package cache

import (
	"context"
	"sync"
)

// CacheProvider is an interface for a cache backend.
// It stores and retrieves opaque values. Two value shapes share the same
// backend: namespace tokens (plain strings) and serialized validator sets.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns the value stored under the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	// A missing key is reported via the boolean, not via the error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores the given value under the given key,
	// unconditionally overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Purge removes the entry for the given key.
	// It is a utility method that is not used by the cache middleware.
	Purge(ctx context.Context, key string)
}

type MemCache struct {
	mutex *sync.RWMutex
	db    map[string][]byte
}

func NewMemCache() MemCache {
	return MemCache{
		mutex: &sync.RWMutex{},
		db:    make(map[string][]byte),
	}
}

func (m MemCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	value, ok := m.db[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (m MemCache) Put(ctx context.Context, key string, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[key] = value
	return nil
}

func (m MemCache) Purge(ctx context.Context, key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, key)
}
