// Package cache provides the bounded, TTL-aware key/value caches shared by
// the content service.
package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrInvalidSize is returned when a bounded cache is configured without room.
var ErrInvalidSize = errors.New("maxSize must be greater than 0")

// Cache is a generic interface for a caching layer.
//
// A missing or expired key is reported with ok == false and a nil error. A
// non-nil error means the backend itself failed and the caller should treat
// the lookup as a miss.
type Cache[K comparable, V any] interface {
	// Get retrieves an item from the cache.
	Get(ctx context.Context, key K) (value V, ok bool, err error)
	// Set adds an item that expires after ttl. A ttl <= 0 never expires.
	Set(ctx context.Context, key K, value V, ttl time.Duration) error
	// Invalidate removes an item if present.
	Invalidate(ctx context.Context, key K) error
	io.Closer
}

// TTLReader is implemented by caches that can report how long a hit has left
// to live. A remaining duration of zero means the entry never expires.
type TTLReader[K comparable, V any] interface {
	GetWithTTL(ctx context.Context, key K) (value V, remaining time.Duration, ok bool, err error)
}
