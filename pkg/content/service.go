// Package content serves paginated publication and vacancy listings, single
// entities and the hot vacancy set from a store, through a TTL-bounded cache.
//
// Writes made by the authoring system are not pushed into the cache: a cached
// page or entity is served until its TTL elapses or it is evicted for space.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-contentcache/pkg/store"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

const categoriesKey = "categories"

// Service is the listing engine and entity fetcher. It is safe for concurrent use.
type Service struct {
	cfg    Config
	store  store.Store
	caches Caches
	aside  *aside
	hot    *HotSet
	logger zerolog.Logger
}

// NewService validates cfg and wires the service to its store and caches.
func NewService(cfg Config, st store.Store, caches Caches, logger zerolog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content config: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if !caches.complete() {
		return nil, fmt.Errorf("every cache must be provided")
	}

	logger = logger.With().Str("component", "ContentService").Logger()
	a := &aside{coalesce: cfg.CoalesceMisses, timeout: cfg.StoreTimeout, logger: logger}

	return &Service{
		cfg:    cfg,
		store:  st,
		caches: caches,
		aside:  a,
		hot:    newHotSet(cfg, st, caches.HotVacancies, a, logger),
		logger: logger,
	}, nil
}

// HotSet exposes the hot vacancy selector, e.g. to start its refresher.
func (s *Service) HotSet() *HotSet {
	return s.hot
}

func (s *Service) normalize(req types.PageRequest) types.PageRequest {
	req = req.Normalize(s.cfg.PageSize)
	if req.Size > s.cfg.MaxPageSize {
		req.Size = s.cfg.MaxPageSize
	}
	return req
}

// PublicationsPage returns one page of publications, newest first, optionally
// filtered by category. Page numbers below 1 are treated as 1. A category that
// does not exist yields an empty page with a zero total.
func (s *Service) PublicationsPage(ctx context.Context, req types.PageRequest) (types.Page[types.Publication], error) {
	req = s.normalize(req)
	key := req.CacheKey(types.EntityPublication)

	page, _, err := readThrough(ctx, s.aside, s.caches.PublicationPages, key, s.cfg.PublicationsTTL,
		func(ctx context.Context) (types.Page[types.Publication], bool, error) {
			total, err := s.store.CountPublications(ctx, req.CategoryID)
			if err != nil {
				return types.Page[types.Publication]{}, false, storeErr("count publications", err)
			}
			items := []types.Publication{}
			if req.Offset() < total {
				items, err = s.store.PublicationsPage(ctx, req.CategoryID, req.Offset(), req.Size)
				if err != nil {
					return types.Page[types.Publication]{}, false, storeErr("fetch publications page", err)
				}
			}
			return types.Page[types.Publication]{Items: items, Total: total, Page: req.Page, Size: req.Size}, true, nil
		})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to load publications page.")
		return types.Page[types.Publication]{}, err
	}
	return page, nil
}

// VacanciesPage returns one page of vacancies, newest first. Vacancies have no
// category, so any CategoryID on req is ignored.
func (s *Service) VacanciesPage(ctx context.Context, req types.PageRequest) (types.Page[types.Vacancy], error) {
	req.CategoryID = nil
	req = s.normalize(req)
	key := req.CacheKey(types.EntityVacancy)

	page, _, err := readThrough(ctx, s.aside, s.caches.VacancyPages, key, s.cfg.VacanciesTTL,
		func(ctx context.Context) (types.Page[types.Vacancy], bool, error) {
			total, err := s.store.CountVacancies(ctx)
			if err != nil {
				return types.Page[types.Vacancy]{}, false, storeErr("count vacancies", err)
			}
			items := []types.Vacancy{}
			if req.Offset() < total {
				items, err = s.store.VacanciesPage(ctx, req.Offset(), req.Size)
				if err != nil {
					return types.Page[types.Vacancy]{}, false, storeErr("fetch vacancies page", err)
				}
			}
			return types.Page[types.Vacancy]{Items: items, Total: total, Page: req.Page, Size: req.Size}, true, nil
		})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to load vacancies page.")
		return types.Page[types.Vacancy]{}, err
	}
	return page, nil
}

// Categories returns every category, for filter controls.
func (s *Service) Categories(ctx context.Context) ([]types.Category, error) {
	cats, _, err := readThrough(ctx, s.aside, s.caches.Categories, categoriesKey, s.cfg.CategoriesTTL,
		func(ctx context.Context) ([]types.Category, bool, error) {
			cats, err := s.store.Categories(ctx)
			if err != nil {
				return nil, false, storeErr("fetch categories", err)
			}
			return cats, true, nil
		})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load categories.")
		return nil, err
	}
	return cats, nil
}

// Publication returns the publication with id. ok is false when it does not exist.
func (s *Service) Publication(ctx context.Context, id int64) (types.Publication, bool, error) {
	return readThrough(ctx, s.aside, s.caches.Publications, types.EntityKey(types.EntityPublication, id), s.cfg.EntityTTL,
		func(ctx context.Context) (types.Publication, bool, error) {
			p, err := s.store.PublicationByID(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Debug().Int64("id", id).Msg("Publication not found.")
				return types.Publication{}, false, nil
			}
			if err != nil {
				return types.Publication{}, false, storeErr("fetch publication", err)
			}
			return p, true, nil
		})
}

// Vacancy returns the vacancy with id. ok is false when it does not exist.
func (s *Service) Vacancy(ctx context.Context, id int64) (types.Vacancy, bool, error) {
	return readThrough(ctx, s.aside, s.caches.Vacancies, types.EntityKey(types.EntityVacancy, id), s.cfg.EntityTTL,
		func(ctx context.Context) (types.Vacancy, bool, error) {
			v, err := s.store.VacancyByID(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Debug().Int64("id", id).Msg("Vacancy not found.")
				return types.Vacancy{}, false, nil
			}
			if err != nil {
				return types.Vacancy{}, false, storeErr("fetch vacancy", err)
			}
			return v, true, nil
		})
}

// HotVacancies returns the hot vacancy sidebar. It never fails; see HotSet.Get.
func (s *Service) HotVacancies(ctx context.Context) []types.Vacancy {
	return s.hot.Get(ctx)
}
