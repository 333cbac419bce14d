package web

import (
	"strconv"
	"time"

	"github.com/illmade-knight/go-contentcache/pkg/types"
)

type publicationView struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Content     string          `json:"content,omitempty"`
	Image       string          `json:"image,omitempty"`
	Category    *types.Category `json:"category,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
	URL         string          `json:"url"`
}

type vacancyView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Hot         bool      `json:"hot"`
	Image       string    `json:"image,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
}

type pagination struct {
	Page        int    `json:"page"`
	Size        int    `json:"size"`
	Total       int    `json:"total"`
	TotalPages  int    `json:"total_pages"`
	HasPrevious bool   `json:"has_previous"`
	HasNext     bool   `json:"has_next"`
	CategoryID  *int64 `json:"category_id,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the body of every response. HotVacancies is always present.
type envelope struct {
	Data         any              `json:"data,omitempty"`
	Categories   []types.Category `json:"categories,omitempty"`
	Pagination   *pagination      `json:"pagination,omitempty"`
	HotVacancies []vacancyView    `json:"hot_vacancies"`
	Error        *apiError        `json:"error,omitempty"`
	RequestID    string           `json:"request_id,omitempty"`
}

func paginationOf[T any](p types.Page[T], categoryID *int64) *pagination {
	return &pagination{
		Page:        p.Page,
		Size:        p.Size,
		Total:       p.Total,
		TotalPages:  p.TotalPages(),
		HasPrevious: p.HasPrevious(),
		HasNext:     p.HasNext(),
		CategoryID:  categoryID,
	}
}

func (h *Handler) postURL(id int64) string {
	return h.siteURL + "/post/" + strconv.FormatInt(id, 10)
}

func (h *Handler) vacancyURL(id int64) string {
	return h.siteURL + "/vacancy/" + strconv.FormatInt(id, 10)
}

// publication builds the view of p. categories resolves the category name and
// may be nil.
func (h *Handler) publication(p types.Publication, categories map[int64]types.Category, withContent bool) publicationView {
	v := publicationView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		PublishedAt: p.PublishedAt,
		URL:         h.postURL(p.ID),
	}
	if withContent {
		v.Content = p.Content
	}
	if p.CategoryID != nil {
		if c, ok := categories[*p.CategoryID]; ok {
			v.Category = &c
		} else {
			v.Category = &types.Category{ID: *p.CategoryID}
		}
	}
	return v
}

func (h *Handler) vacancy(v types.Vacancy, image string, withContent bool) vacancyView {
	out := vacancyView{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Company:     v.Company,
		Location:    v.Location,
		Contact:     v.Contact,
		Hot:         v.Hot,
		Image:       image,
		PublishedAt: v.PublishedAt,
		URL:         h.vacancyURL(v.ID),
	}
	if withContent {
		out.Content = v.Content
	}
	return out
}

func (h *Handler) vacancies(vs []types.Vacancy) []vacancyView {
	out := make([]vacancyView, 0, len(vs))
	for _, v := range vs {
		out = append(out, h.vacancy(v, "", false))
	}
	return out
}
