package data

import (
	"sync"
	"time"
)

type CacheItem[T any] struct {
	Value     *T
	ExpiresAt time.Time
}
type Cache[K comparable, V any] struct {
	items map[K]*CacheItem[V]
	ttl   time.Duration
	now   func() time.Time
	mutex sync.Mutex
}

// NewCache creates a new cache whose entries live for ttl after they are set.
func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return NewCacheWithClock[K, V](ttl, time.Now)
}

// NewCacheWithClock is NewCache with an explicit time source.
func NewCacheWithClock[K comparable, V any](ttl time.Duration, now func() time.Time) *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]*CacheItem[V]),
		ttl:   ttl,
		now:   now,
	}
}

// Get returns the value associated with the key, or nil if it is absent or expired.
func (c *Cache[K, V]) Get(key K) *V {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, found := c.items[key]
	if !found {
		return nil
	}
	if c.now().UTC().After(item.ExpiresAt) {
		delete(c.items, key)
		return nil
	}
	return item.Value
}

// Set sets the value associated with the key and the expiration time.
func (c *Cache[K, V]) Set(key K, value *V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem[V]{
		Value:     value,
		ExpiresAt: c.now().UTC().Add(c.ttl),
	}
}
