// Package store defines the read-only port the content service uses to reach
// durable storage. Content is written by an external authoring system; nothing
// in this module mutates the store outside of tests and local seeding.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// ErrNotFound is returned by the ...ByID lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store fetches content entities and counts.
//
// Listings are ordered newest first (published_at DESC, id DESC). A nil
// categoryID means "no filter"; a category that does not exist simply matches
// nothing. Implementations may retry transient failures internally, but must
// report a failure as an error rather than an empty result.
type Store interface {
	CountPublications(ctx context.Context, categoryID *int64) (int, error)
	PublicationsPage(ctx context.Context, categoryID *int64, offset, limit int) ([]types.Publication, error)
	PublicationByID(ctx context.Context, id int64) (types.Publication, error)
	Categories(ctx context.Context) ([]types.Category, error)

	CountVacancies(ctx context.Context) (int, error)
	VacanciesPage(ctx context.Context, offset, limit int) ([]types.Vacancy, error)
	VacancyByID(ctx context.Context, id int64) (types.Vacancy, error)
	// HotVacancies returns at most limit vacancies flagged hot, newest first.
	HotVacancies(ctx context.Context, limit int) ([]types.Vacancy, error)

	io.Closer
}
