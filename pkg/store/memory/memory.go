// Package memory is an in-process Store used for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/illmade-knight/go-contentcache/pkg/store"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// Store keeps content in slices guarded by a RWMutex.
type Store struct {
	mu           sync.RWMutex
	publications []types.Publication
	vacancies    []types.Vacancy
	categories   []types.Category
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// PutPublication inserts or replaces a publication by ID.
func (s *Store) PutPublication(p types.Publication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publications = upsert(s.publications, p, func(x types.Publication) int64 { return x.ID })
	sort.SliceStable(s.publications, func(i, j int) bool {
		return newerFirst(s.publications[i].PublishedAt.UnixNano(), s.publications[i].ID, s.publications[j].PublishedAt.UnixNano(), s.publications[j].ID)
	})
}

// PutVacancy inserts or replaces a vacancy by ID.
func (s *Store) PutVacancy(v types.Vacancy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vacancies = upsert(s.vacancies, v, func(x types.Vacancy) int64 { return x.ID })
	sort.SliceStable(s.vacancies, func(i, j int) bool {
		return newerFirst(s.vacancies[i].PublishedAt.UnixNano(), s.vacancies[i].ID, s.vacancies[j].PublishedAt.UnixNano(), s.vacancies[j].ID)
	})
}

// PutCategory inserts or replaces a category by ID.
func (s *Store) PutCategory(c types.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = upsert(s.categories, c, func(x types.Category) int64 { return x.ID })
	sort.SliceStable(s.categories, func(i, j int) bool { return s.categories[i].Name < s.categories[j].Name })
}

// upsert replaces the element with the same ID or appends item.
func upsert[T any](items []T, item T, id func(T) int64) []T {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func newerFirst(tsA, idA, tsB, idB int64) bool {
	if tsA != tsB {
		return tsA > tsB
	}
	return idA > idB
}

func (s *Store) filterPublications(categoryID *int64) []types.Publication {
	if categoryID == nil {
		return s.publications
	}
	var out []types.Publication
	for _, p := range s.publications {
		if p.CategoryID != nil && *p.CategoryID == *categoryID {
			out = append(out, p)
		}
	}
	return out
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || limit <= 0 {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

func (s *Store) CountPublications(ctx context.Context, categoryID *int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filterPublications(categoryID)), nil
}

func (s *Store) PublicationsPage(ctx context.Context, categoryID *int64, offset, limit int) ([]types.Publication, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.filterPublications(categoryID), offset, limit), nil
}

func (s *Store) PublicationByID(ctx context.Context, id int64) (types.Publication, error) {
	if err := ctx.Err(); err != nil {
		return types.Publication{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.publications {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Publication{}, store.ErrNotFound
}

func (s *Store) Categories(ctx context.Context) ([]types.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.categories, 0, len(s.categories)), nil
}

func (s *Store) CountVacancies(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vacancies), nil
}

func (s *Store) VacanciesPage(ctx context.Context, offset, limit int) ([]types.Vacancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return window(s.vacancies, offset, limit), nil
}

func (s *Store) VacancyByID(ctx context.Context, id int64) (types.Vacancy, error) {
	if err := ctx.Err(); err != nil {
		return types.Vacancy{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vacancies {
		if v.ID == id {
			return v, nil
		}
	}
	return types.Vacancy{}, store.ErrNotFound
}

func (s *Store) HotVacancies(ctx context.Context, limit int) ([]types.Vacancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []types.Vacancy{}
	for _, v := range s.vacancies {
		if len(out) >= limit {
			break
		}
		if v.Hot {
			out = append(out, v)
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
