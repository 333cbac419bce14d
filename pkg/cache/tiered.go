package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Tiered chains a process-local cache (L1) in front of a shared one (L2).
// Reads check L1 first; an L2 hit is copied into L1 for at most backfillTTL.
// Writes go to both tiers.
//
// When L2 implements TTLReader the L1 copy never outlives the L2 entry, so the
// tiers together serve a value no longer than the TTL it was written with.
// Otherwise an L1 copy may outlive its L2 entry by up to backfillTTL.
type Tiered[K comparable, V any] struct {
	l1          Cache[K, V]
	l2          Cache[K, V]
	backfillTTL time.Duration
	logger      zerolog.Logger
}

// NewTiered creates a two level cache. Neither tier may be nil and
// backfillTTL must be positive.
func NewTiered[K comparable, V any](l1, l2 Cache[K, V], backfillTTL time.Duration, logger zerolog.Logger) (*Tiered[K, V], error) {
	if l1 == nil || l2 == nil {
		return nil, fmt.Errorf("both cache tiers must be provided")
	}
	if backfillTTL <= 0 {
		return nil, fmt.Errorf("backfill ttl must be positive, got %s", backfillTTL)
	}
	return &Tiered[K, V]{
		l1:          l1,
		l2:          l2,
		backfillTTL: backfillTTL,
		logger:      logger.With().Str("component", "TieredCache").Logger(),
	}, nil
}

// Get looks the key up in L1, then L2.
func (t *Tiered[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	if v, ok, err := t.l1.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}

	v, remaining, ok, err := t.getL2(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	l1TTL := t.backfillTTL
	if remaining > 0 && remaining < l1TTL {
		l1TTL = remaining
	}
	if err := t.l1.Set(ctx, key, v, l1TTL); err != nil {
		t.logger.Warn().Err(err).Str("key", fmt.Sprintf("%v", key)).Msg("Failed to backfill L1 cache.")
	}
	return v, true, nil
}

// getL2 reads L2, with the entry's remaining lifetime when L2 can report it.
func (t *Tiered[K, V]) getL2(ctx context.Context, key K) (V, time.Duration, bool, error) {
	if r, ok := t.l2.(TTLReader[K, V]); ok {
		return r.GetWithTTL(ctx, key)
	}
	v, ok, err := t.l2.Get(ctx, key)
	return v, 0, ok, err
}

// Set writes to both tiers. The L1 entry lives no longer than backfillTTL.
func (t *Tiered[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	l1TTL := ttl
	if ttl <= 0 || t.backfillTTL < ttl {
		l1TTL = t.backfillTTL
	}
	return errors.Join(
		t.l1.Set(ctx, key, value, l1TTL),
		t.l2.Set(ctx, key, value, ttl),
	)
}

// Invalidate removes the key from both tiers.
func (t *Tiered[K, V]) Invalidate(ctx context.Context, key K) error {
	return errors.Join(t.l1.Invalidate(ctx, key), t.l2.Invalidate(ctx, key))
}

// Close closes both tiers.
func (t *Tiered[K, V]) Close() error {
	return errors.Join(t.l1.Close(), t.l2.Close())
}
