package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// lruCacheItem is the internal structure stored in the linked list.
type lruCacheItem[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means the item never expires
}

func (i *lruCacheItem[K, V]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// LRUOption customises an InMemoryLRUCache.
type LRUOption func(*lruOptions)

type lruOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly so tests can move time forward.
func WithClock(now func() time.Time) LRUOption {
	return func(o *lruOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// InMemoryLRUCache is a generic, thread-safe, in-memory cache with a fixed size,
// a per-entry absolute TTL and a Least Recently Used (LRU) eviction policy.
//
// Expired entries are removed lazily when they are next read. When an insert
// takes the cache over maxSize, entries are evicted from the least recently
// used end until it fits; an expired entry counts as used at its last access.
type InMemoryLRUCache[K comparable, V any] struct {
	maxSize int
	now     func() time.Time

	mu    sync.Mutex
	ll    *list.List          // Used to track the order of items (recency).
	cache map[K]*list.Element // Used for fast key lookups.
}

// NewInMemoryLRUCache creates a new size-limited, in-memory LRU cache.
// - maxSize: The maximum number of items to store in the cache. Must be > 0.
func NewInMemoryLRUCache[K comparable, V any](maxSize int, opts ...LRUOption) (*InMemoryLRUCache[K, V], error) {
	if maxSize <= 0 {
		return nil, ErrInvalidSize
	}
	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &InMemoryLRUCache[K, V]{
		maxSize: maxSize,
		now:     o.now,
		ll:      list.New(),
		cache:   make(map[K]*list.Element),
	}, nil
}

// Get retrieves an item. A hit moves the item to the front of the recency list.
// An expired item is removed and reported as absent.
func (c *InMemoryLRUCache[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return zero, false, nil
	}
	item := elem.Value.(*lruCacheItem[K, V])
	if item.expired(c.now()) {
		c.removeElement(elem)
		return zero, false, nil
	}
	c.ll.MoveToFront(elem)
	return item.value, true, nil
}

// GetWithTTL is Get plus the time the entry has left before it expires.
func (c *InMemoryLRUCache[K, V]) GetWithTTL(_ context.Context, key K) (V, time.Duration, bool, error) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return zero, 0, false, nil
	}
	item := elem.Value.(*lruCacheItem[K, V])
	now := c.now()
	if item.expired(now) {
		c.removeElement(elem)
		return zero, 0, false, nil
	}
	c.ll.MoveToFront(elem)
	var remaining time.Duration
	if !item.expiresAt.IsZero() {
		remaining = item.expiresAt.Sub(now)
	}
	return item.value, remaining, true, nil
}

// Set stores value under key. An existing entry is replaced (last writer wins)
// and its TTL restarts.
func (c *InMemoryLRUCache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		item := elem.Value.(*lruCacheItem[K, V])
		item.value = value
		item.expiresAt = expiresAt
		c.ll.MoveToFront(elem)
		return nil
	}

	element := c.ll.PushFront(&lruCacheItem[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.cache[key] = element

	for c.ll.Len() > c.maxSize {
		c.evict()
	}
	return nil
}

// Invalidate removes key from the cache.
func (c *InMemoryLRUCache[K, V]) Invalidate(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Len reports the number of stored entries, including expired ones that have
// not been read since they expired.
func (c *InMemoryLRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// evict removes the least recently used item from the cache.
// This method is unexported and must be called within a locked mutex.
func (c *InMemoryLRUCache[K, V]) evict() {
	if back := c.ll.Back(); back != nil {
		c.removeElement(back)
	}
}

// removeElement must be called within a locked mutex.
func (c *InMemoryLRUCache[K, V]) removeElement(elem *list.Element) {
	item := c.ll.Remove(elem).(*lruCacheItem[K, V])
	delete(c.cache, item.key)
}

// Close is a no-op for the in-memory cache but satisfies the Cache interface.
func (c *InMemoryLRUCache[K, V]) Close() error {
	return nil
}
