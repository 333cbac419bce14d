package content

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-contentcache/pkg/cache"
	"github.com/illmade-knight/go-contentcache/pkg/store"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

const hotVacanciesKey = "hot:vacancy"

// HotSet selects the small set of vacancies shown on every page.
//
// Vacancies flagged hot are preferred. When none are flagged, the newest
// vacancies fill the set instead. The result never exceeds the configured size
// and is cached with its own, shorter TTL.
type HotSet struct {
	store  store.Store
	cache  cache.Cache[string, []types.Vacancy]
	aside  *aside
	size   int
	ttl    time.Duration
	logger zerolog.Logger

	cron *cron.Cron
}

func newHotSet(cfg Config, st store.Store, c cache.Cache[string, []types.Vacancy], a *aside, logger zerolog.Logger) *HotSet {
	return &HotSet{
		store:  st,
		cache:  c,
		aside:  a,
		size:   cfg.HotSetSize,
		ttl:    cfg.HotTTL,
		logger: logger.With().Str("component", "HotSet").Logger(),
	}
}

// Get returns the hot vacancies. A store failure is logged and yields an
// empty slice so that the sidebar never breaks page rendering.
func (h *HotSet) Get(ctx context.Context) []types.Vacancy {
	vacancies, _, err := readThrough(ctx, h.aside, h.cache, hotVacanciesKey, h.ttl, h.load)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Hot vacancies unavailable, serving an empty set.")
		return []types.Vacancy{}
	}
	if len(vacancies) > h.size {
		vacancies = vacancies[:h.size]
	}
	return vacancies
}

// Refresh reloads the hot set from the store and overwrites the cached copy.
func (h *HotSet) Refresh(ctx context.Context) error {
	vacancies, _, err := h.load(ctx)
	if err != nil {
		return err
	}
	if err := h.cache.Set(ctx, hotVacanciesKey, vacancies, h.ttl); err != nil {
		return fmt.Errorf("failed to cache hot vacancies: %w", err)
	}
	h.logger.Debug().Int("count", len(vacancies)).Msg("Hot vacancies refreshed.")
	return nil
}

func (h *HotSet) load(ctx context.Context) ([]types.Vacancy, bool, error) {
	hot, err := h.store.HotVacancies(ctx, h.size)
	if err != nil {
		return nil, false, storeErr("fetch hot vacancies", err)
	}
	if len(hot) == 0 {
		hot, err = h.store.VacanciesPage(ctx, 0, h.size)
		if err != nil {
			return nil, false, storeErr("fetch newest vacancies", err)
		}
	}
	if len(hot) > h.size {
		hot = hot[:h.size]
	}
	if hot == nil {
		hot = []types.Vacancy{}
	}
	return hot, true, nil
}

// StartRefresh refreshes the hot set once, synchronously, and then on every tick of schedule
// (a cron expression such as "@every 30s"), so request paths usually find it cached.
// Refresh failures are logged; the previous entry keeps serving until its TTL.
func (h *HotSet) StartRefresh(ctx context.Context, schedule string, timeout time.Duration) error {
	if h.cron != nil {
		return fmt.Errorf("hot set refresh already started")
	}
	run := func() {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := h.Refresh(rctx); err != nil {
			h.logger.Warn().Err(err).Msg("Scheduled hot vacancy refresh failed.")
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("invalid hot refresh schedule %q: %w", schedule, err)
	}
	h.cron = c

	run()
	c.Start()
	h.logger.Info().Str("schedule", schedule).Msg("Hot vacancy refresher started.")
	return nil
}

// StopRefresh stops the refresher and waits for a running refresh to finish.
func (h *HotSet) StopRefresh() {
	if h.cron == nil {
		return
	}
	<-h.cron.Stop().Done()
	h.cron = nil
	h.logger.Info().Msg("Hot vacancy refresher stopped.")
}
