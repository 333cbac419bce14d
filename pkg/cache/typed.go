package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Typed is a view of a shared Cache[string, any] that only yields values of
// type V. Several views can share one backend so that a single capacity bound
// covers every kind of cached value.
type Typed[V any] struct {
	backend Cache[string, any]
	logger  zerolog.Logger
}

// NewTyped creates a typed view over backend. The view does not own the
// backend; closing the view leaves it open.
func NewTyped[V any](backend Cache[string, any], logger zerolog.Logger) *Typed[V] {
	return &Typed[V]{
		backend: backend,
		logger:  logger.With().Str("component", "TypedCache").Logger(),
	}
}

// Get returns the cached value for key. A value of any other type is treated
// as a miss.
func (t *Typed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := t.backend.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	value, ok := raw.(V)
	if !ok {
		t.logger.Warn().Str("key", key).Str("found_type", fmt.Sprintf("%T", raw)).Msg("Cached value has unexpected type, treating as miss.")
		return zero, false, nil
	}
	return value, true, nil
}

// GetWithTTL forwards to the backend when it reports remaining lifetimes.
// Otherwise the remaining duration is zero (unknown).
func (t *Typed[V]) GetWithTTL(ctx context.Context, key string) (V, time.Duration, bool, error) {
	r, ok := t.backend.(TTLReader[string, any])
	if !ok {
		v, found, err := t.Get(ctx, key)
		return v, 0, found, err
	}
	var zero V
	raw, remaining, found, err := r.GetWithTTL(ctx, key)
	if err != nil || !found {
		return zero, 0, false, err
	}
	value, ok := raw.(V)
	if !ok {
		t.logger.Warn().Str("key", key).Str("found_type", fmt.Sprintf("%T", raw)).Msg("Cached value has unexpected type, treating as miss.")
		return zero, 0, false, nil
	}
	return value, remaining, true, nil
}

// Set stores value in the shared backend.
func (t *Typed[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	return t.backend.Set(ctx, key, value, ttl)
}

// Invalidate removes key from the shared backend.
func (t *Typed[V]) Invalidate(ctx context.Context, key string) error {
	return t.backend.Invalidate(ctx, key)
}

// Close is a no-op; the backend's lifecycle is managed by its creator.
func (t *Typed[V]) Close() error {
	return nil
}
