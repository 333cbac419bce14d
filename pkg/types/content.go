package types

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// EntityType names a kind of content the site serves.
type EntityType string

const (
	EntityPublication EntityType = "publication"
	EntityVacancy     EntityType = "vacancy"
)

// Publication is an article shown in the main listing.
type Publication struct {
	// ID is assigned by the store and never changes.
	ID          int64     `json:"id" firestore:"id"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Content     string    `json:"content,omitempty" firestore:"content"`
	Image       string    `json:"image,omitempty" firestore:"image"`
	CategoryID  *int64    `json:"categoryId,omitempty" firestore:"category_id"`
	PublishedAt time.Time `json:"publishedAt" firestore:"published_at"`
}

// Vacancy is a job posting. Hot vacancies are surfaced on every page.
type Vacancy struct {
	ID          int64     `json:"id" firestore:"id"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	Content     string    `json:"content,omitempty" firestore:"content"`
	Company     string    `json:"company,omitempty" firestore:"company"`
	Location    string    `json:"location,omitempty" firestore:"location"`
	Contact     string    `json:"contact,omitempty" firestore:"contact"`
	Hot         bool      `json:"hot" firestore:"hot"`
	PublishedAt time.Time `json:"publishedAt" firestore:"published_at"`
}

// Category groups publications.
type Category struct {
	ID   int64  `json:"id" firestore:"id"`
	Name string `json:"name" firestore:"name"`
}

// PageRequest selects a window of a listing.
type PageRequest struct {
	// CategoryID is nil when the listing is not filtered.
	CategoryID *int64
	// Page is 1-based.
	Page int
	Size int
}

// Normalize clamps the page to 1 and replaces a non-positive size with defaultSize.
func (r PageRequest) Normalize(defaultSize int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = defaultSize
	}
	return r
}

// Offset is the number of items preceding the requested page. It saturates
// at math.MaxInt, so a page number too large to address lies past any total.
func (r PageRequest) Offset() int {
	if r.Page <= 1 || r.Size <= 0 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.Size {
		return math.MaxInt
	}
	return (r.Page - 1) * r.Size
}

// CacheKey encodes every input that affects the page: the entity type, the
// filter, the page number and the page size.
func (r PageRequest) CacheKey(entity EntityType) string {
	filter := "all"
	if r.CategoryID != nil {
		filter = "c" + strconv.FormatInt(*r.CategoryID, 10)
	}
	return fmt.Sprintf("page:%s:%s:%d:%d", entity, filter, r.Page, r.Size)
}

// EntityKey is the cache key of a single entity.
func EntityKey(entity EntityType, id int64) string {
	return fmt.Sprintf("item:%s:%d", entity, id)
}

// Page is a bounded slice of a larger ordered collection plus its total count.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

// TotalPages is the number of pages needed to show Total items.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

// HasPrevious reports whether a page precedes this one.
func (p Page[T]) HasPrevious() bool { return p.Page > 1 }

// HasNext reports whether more items follow this page.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages() }
