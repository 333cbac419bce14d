package content_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-contentcache/pkg/cache"
	"github.com/illmade-knight/go-contentcache/pkg/content"
	"github.com/illmade-knight/go-contentcache/pkg/store/memory"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// countingStore wraps the in-memory store, counting calls and optionally
// failing or delaying them.
type countingStore struct {
	*memory.Store

	countPublications atomic.Int32
	publicationsPage  atomic.Int32
	publicationByID   atomic.Int32
	categories        atomic.Int32
	countVacancies    atomic.Int32
	vacanciesPage     atomic.Int32
	vacancyByID       atomic.Int32
	hotVacancies      atomic.Int32

	mu    sync.Mutex
	err   error
	delay time.Duration
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.New()}
}

func (s *countingStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *countingStore) slowDown(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *countingStore) before(counter *atomic.Int32) error {
	counter.Add(1)
	s.mu.Lock()
	err, delay := s.err, s.delay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

func (s *countingStore) CountPublications(ctx context.Context, categoryID *int64) (int, error) {
	if err := s.before(&s.countPublications); err != nil {
		return 0, err
	}
	return s.Store.CountPublications(ctx, categoryID)
}

func (s *countingStore) PublicationsPage(ctx context.Context, categoryID *int64, offset, limit int) ([]types.Publication, error) {
	if err := s.before(&s.publicationsPage); err != nil {
		return nil, err
	}
	return s.Store.PublicationsPage(ctx, categoryID, offset, limit)
}

func (s *countingStore) PublicationByID(ctx context.Context, id int64) (types.Publication, error) {
	if err := s.before(&s.publicationByID); err != nil {
		return types.Publication{}, err
	}
	return s.Store.PublicationByID(ctx, id)
}

func (s *countingStore) Categories(ctx context.Context) ([]types.Category, error) {
	if err := s.before(&s.categories); err != nil {
		return nil, err
	}
	return s.Store.Categories(ctx)
}

func (s *countingStore) CountVacancies(ctx context.Context) (int, error) {
	if err := s.before(&s.countVacancies); err != nil {
		return 0, err
	}
	return s.Store.CountVacancies(ctx)
}

func (s *countingStore) VacanciesPage(ctx context.Context, offset, limit int) ([]types.Vacancy, error) {
	if err := s.before(&s.vacanciesPage); err != nil {
		return nil, err
	}
	return s.Store.VacanciesPage(ctx, offset, limit)
}

func (s *countingStore) VacancyByID(ctx context.Context, id int64) (types.Vacancy, error) {
	if err := s.before(&s.vacancyByID); err != nil {
		return types.Vacancy{}, err
	}
	return s.Store.VacancyByID(ctx, id)
}

func (s *countingStore) HotVacancies(ctx context.Context, limit int) ([]types.Vacancy, error) {
	if err := s.before(&s.hotVacancies); err != nil {
		return nil, err
	}
	return s.Store.HotVacancies(ctx, limit)
}

// fakeClock is a manually advanced time source for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// seedPublications adds n publications; publication i is published i hours
// after baseTime, so higher ids are newer.
func seedPublications(s *countingStore, n int, categoryOf func(i int64) *int64) {
	for i := int64(1); i <= int64(n); i++ {
		s.PutPublication(types.Publication{
			ID:          i,
			Title:       "publication",
			CategoryID:  categoryOf(i),
			PublishedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
}

func seedVacancies(s *countingStore, n int, hot func(i int64) bool) {
	for i := int64(1); i <= int64(n); i++ {
		s.PutVacancy(types.Vacancy{
			ID:          i,
			Title:       "vacancy",
			Hot:         hot(i),
			PublishedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
}

func noCategory(int64) *int64 { return nil }

func testConfig() content.Config {
	cfg := content.DefaultConfig()
	cfg.PageSize = 10
	cfg.HotSetSize = 3
	return cfg
}

// newTestService builds a Service over st with a shared LRU driven by clock.
func newTestService(t *testing.T, cfg content.Config, st *countingStore, clock *fakeClock) *content.Service {
	t.Helper()
	if clock == nil {
		clock = &fakeClock{now: baseTime}
	}
	backend, err := cache.NewInMemoryLRUCache[string, any](1000, cache.WithClock(clock.Now))
	require.NoError(t, err)

	svc, err := content.NewService(cfg, st, content.NewSharedCaches(backend, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	return svc
}
