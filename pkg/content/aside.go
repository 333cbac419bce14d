package content

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/illmade-knight/go-contentcache/pkg/cache"
)

// loadFunc reads a value from the store. found == false means the value does
// not exist, which is not cached.
type loadFunc[V any] func(ctx context.Context) (value V, found bool, err error)

type flightResult[V any] struct {
	value V
	found bool
}

// aside runs the cache-aside read path shared by every Service operation.
type aside struct {
	group    singleflight.Group
	coalesce bool
	timeout  time.Duration
	logger   zerolog.Logger
}

// readThrough checks c, and on a miss calls load and writes the result back
// with ttl. A failed load leaves the cache untouched. A cache backend error is
// logged and treated as a miss. When misses are coalesced, the shared store
// read keeps the first caller's values but not its cancellation, and is
// bounded by a.timeout instead; each caller still returns when its own
// context ends.
func readThrough[V any](ctx context.Context, a *aside, c cache.Cache[string, V], key string, ttl time.Duration, load loadFunc[V]) (V, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero V
		return zero, false, err
	}
	value, ok, err := c.Get(ctx, key)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed, reading from store.")
	} else if ok {
		a.logger.Debug().Str("key", key).Msg("Cache hit.")
		return value, true, nil
	}
	a.logger.Debug().Str("key", key).Msg("Cache miss.")

	fill := func(ctx context.Context) (flightResult[V], error) {
		v, found, err := load(ctx)
		if err != nil {
			return flightResult[V]{}, err
		}
		if found {
			if err := c.Set(ctx, key, v, ttl); err != nil {
				a.logger.Warn().Err(err).Str("key", key).Msg("Failed to write to cache.")
			}
		}
		return flightResult[V]{value: v, found: found}, nil
	}

	if !a.coalesce {
		res, err := fill(ctx)
		return res.value, res.found, err
	}

	ch := a.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return fill(shared)
	})
	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			var zero V
			return zero, false, r.Err
		}
		res, ok := r.Val.(flightResult[V])
		if !ok {
			var zero V
			return zero, false, fmt.Errorf("unexpected in-flight result %T for key %s", r.Val, key)
		}
		if r.Shared {
			a.logger.Debug().Str("key", key).Msg("Joined in-flight store read.")
		}
		return res.value, res.found, nil
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
