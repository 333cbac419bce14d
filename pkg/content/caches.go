package content

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-contentcache/pkg/cache"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// Caches holds one typed cache per kind of value the Service stores.
type Caches struct {
	PublicationPages cache.Cache[string, types.Page[types.Publication]]
	VacancyPages     cache.Cache[string, types.Page[types.Vacancy]]
	Publications     cache.Cache[string, types.Publication]
	Vacancies        cache.Cache[string, types.Vacancy]
	Categories       cache.Cache[string, []types.Category]
	HotVacancies     cache.Cache[string, []types.Vacancy]
}

func (c Caches) complete() bool {
	return c.PublicationPages != nil && c.VacancyPages != nil && c.Publications != nil &&
		c.Vacancies != nil && c.Categories != nil && c.HotVacancies != nil
}

// NewSharedCaches builds typed views over one process-wide backend, so a
// single capacity bound covers pages, entities and the hot set together.
func NewSharedCaches(backend cache.Cache[string, any], logger zerolog.Logger) Caches {
	return Caches{
		PublicationPages: cache.NewTyped[types.Page[types.Publication]](backend, logger),
		VacancyPages:     cache.NewTyped[types.Page[types.Vacancy]](backend, logger),
		Publications:     cache.NewTyped[types.Publication](backend, logger),
		Vacancies:        cache.NewTyped[types.Vacancy](backend, logger),
		Categories:       cache.NewTyped[[]types.Category](backend, logger),
		HotVacancies:     cache.NewTyped[[]types.Vacancy](backend, logger),
	}
}

// NewRedisCaches builds Redis backed caches sharing one client. Keys are
// namespaced with prefix.
func NewRedisCaches(rdb *redis.Client, prefix string, logger zerolog.Logger) Caches {
	return Caches{
		PublicationPages: cache.NewRedisCacheFromClient[string, types.Page[types.Publication]](rdb, prefix, logger),
		VacancyPages:     cache.NewRedisCacheFromClient[string, types.Page[types.Vacancy]](rdb, prefix, logger),
		Publications:     cache.NewRedisCacheFromClient[string, types.Publication](rdb, prefix, logger),
		Vacancies:        cache.NewRedisCacheFromClient[string, types.Vacancy](rdb, prefix, logger),
		Categories:       cache.NewRedisCacheFromClient[string, []types.Category](rdb, prefix, logger),
		HotVacancies:     cache.NewRedisCacheFromClient[string, []types.Vacancy](rdb, prefix, logger),
	}
}

// NewFirestoreCaches builds Firestore backed caches in one collection.
func NewFirestoreCaches(client *firestore.Client, collection, prefix string, logger zerolog.Logger) (Caches, error) {
	cfg := &cache.FirestoreConfig{CollectionName: collection, KeyPrefix: prefix}
	var (
		out Caches
		err error
	)
	if out.PublicationPages, err = cache.NewFirestoreCache[string, types.Page[types.Publication]](cfg, client, logger); err != nil {
		return Caches{}, err
	}
	if out.VacancyPages, err = cache.NewFirestoreCache[string, types.Page[types.Vacancy]](cfg, client, logger); err != nil {
		return Caches{}, err
	}
	if out.Publications, err = cache.NewFirestoreCache[string, types.Publication](cfg, client, logger); err != nil {
		return Caches{}, err
	}
	if out.Vacancies, err = cache.NewFirestoreCache[string, types.Vacancy](cfg, client, logger); err != nil {
		return Caches{}, err
	}
	if out.Categories, err = cache.NewFirestoreCache[string, []types.Category](cfg, client, logger); err != nil {
		return Caches{}, err
	}
	if out.HotVacancies, err = cache.NewFirestoreCache[string, []types.Vacancy](cfg, client, logger); err != nil {
		return Caches{}, err
	}
	return out, nil
}

// NewTieredCaches puts each local cache in front of its shared counterpart.
func NewTieredCaches(local, shared Caches, backfillTTL time.Duration, logger zerolog.Logger) (Caches, error) {
	var (
		out Caches
		err error
	)
	if out.PublicationPages, err = tier(local.PublicationPages, shared.PublicationPages, backfillTTL, logger); err != nil {
		return Caches{}, err
	}
	if out.VacancyPages, err = tier(local.VacancyPages, shared.VacancyPages, backfillTTL, logger); err != nil {
		return Caches{}, err
	}
	if out.Publications, err = tier(local.Publications, shared.Publications, backfillTTL, logger); err != nil {
		return Caches{}, err
	}
	if out.Vacancies, err = tier(local.Vacancies, shared.Vacancies, backfillTTL, logger); err != nil {
		return Caches{}, err
	}
	if out.Categories, err = tier(local.Categories, shared.Categories, backfillTTL, logger); err != nil {
		return Caches{}, err
	}
	if out.HotVacancies, err = tier(local.HotVacancies, shared.HotVacancies, backfillTTL, logger); err != nil {
		return Caches{}, err
	}
	return out, nil
}

func tier[V any](l1, l2 cache.Cache[string, V], backfillTTL time.Duration, logger zerolog.Logger) (cache.Cache[string, V], error) {
	return cache.NewTiered[string, V](l1, l2, backfillTTL, logger)
}
