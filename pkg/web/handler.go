// Package web exposes the content service over HTTP as JSON. Every response
// carries the hot vacancy set alongside the requested data.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-contentcache/pkg/assets"
	"github.com/illmade-knight/go-contentcache/pkg/content"
	"github.com/illmade-knight/go-contentcache/pkg/types"
)

// VacancyImageCategory is the asset category vacancy banners are picked from.
const VacancyImageCategory = "vacancy"

var errBadParam = errors.New("bad parameter")

// Content is the part of content.Service the handlers use.
type Content interface {
	PublicationsPage(ctx context.Context, req types.PageRequest) (types.Page[types.Publication], error)
	VacanciesPage(ctx context.Context, req types.PageRequest) (types.Page[types.Vacancy], error)
	Categories(ctx context.Context) ([]types.Category, error)
	Publication(ctx context.Context, id int64) (types.Publication, bool, error)
	Vacancy(ctx context.Context, id int64) (types.Vacancy, bool, error)
	HotVacancies(ctx context.Context) []types.Vacancy
}

var _ Content = (*content.Service)(nil)

// Handler serves the site routes.
type Handler struct {
	content Content
	picker  assets.Picker
	siteURL string
	logger  zerolog.Logger
}

// NewHandler creates a Handler. siteURL prefixes item links and may be empty
// for relative links.
func NewHandler(c Content, picker assets.Picker, siteURL string, logger zerolog.Logger) (*Handler, error) {
	if c == nil {
		return nil, errors.New("content service cannot be nil")
	}
	if picker == nil {
		return nil, errors.New("asset picker cannot be nil")
	}
	return &Handler{
		content: c,
		picker:  picker,
		siteURL: siteURL,
		logger:  logger.With().Str("component", "WebHandler").Logger(),
	}, nil
}

// Register adds the site routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /page/{page}", h.page)
	mux.HandleFunc("GET /vacancies/{page}", h.vacanciesPage)
	mux.HandleFunc("GET /vacancy/{id}", h.vacancyDetail)
	mux.HandleFunc("GET /post/{id}", h.post)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	h.publicationsListing(w, r, types.PageRequest{Page: 1})
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r.PathValue("page"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req := types.PageRequest{Page: int(page)}
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := intParam(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		req.CategoryID = &id
	}
	h.publicationsListing(w, r, req)
}

func (h *Handler) publicationsListing(w http.ResponseWriter, r *http.Request, req types.PageRequest) {
	ctx := r.Context()
	page, err := h.content.PublicationsPage(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	categories, err := h.content.Categories(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	byID := make(map[int64]types.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	items := make([]publicationView, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, h.publication(p, byID, false))
	}

	h.write(w, r, http.StatusOK, envelope{
		Data:       items,
		Categories: categories,
		Pagination: paginationOf(page, req.CategoryID),
	})
}

func (h *Handler) vacanciesPage(w http.ResponseWriter, r *http.Request) {
	pageNum, err := intParam(r.PathValue("page"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.content.VacanciesPage(r.Context(), types.PageRequest{Page: int(pageNum)})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, envelope{
		Data:       h.vacancies(page.Items),
		Pagination: paginationOf(page, nil),
	})
}

func (h *Handler) vacancyDetail(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, ok, err := h.content.Vacancy(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		h.writeNotFound(w, r)
		return
	}

	image, err := h.picker.Pick(r.Context(), VacancyImageCategory)
	if err != nil {
		h.logger.Warn().Err(err).Int64("vacancy_id", id).Msg("No vacancy image picked.")
	}
	h.write(w, r, http.StatusOK, envelope{Data: h.vacancy(v, image, true)})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, ok, err := h.content.Publication(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		h.writeNotFound(w, r)
		return
	}
	h.write(w, r, http.StatusOK, envelope{Data: h.publication(p, nil, true)})
}

func intParam(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errBadParam
	}
	return n, nil
}

// write attaches the hot set and request ID, then encodes env.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	env.HotVacancies = h.vacancies(h.content.HotVacancies(r.Context()))
	env.RequestID = RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to write response.")
	}
}

func (h *Handler) writeNotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNotFound, envelope{Error: &apiError{Code: "not_found", Message: "not found"}})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadParam):
		h.write(w, r, http.StatusBadRequest, envelope{Error: &apiError{Code: "bad_params", Message: "bad parameter"}})
	case errors.Is(err, content.ErrStoreUnavailable):
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Content store unavailable.")
		h.write(w, r, http.StatusServiceUnavailable, envelope{Error: &apiError{Code: "unavailable", Message: "content temporarily unavailable"}})
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Unexpected error serving request.")
		h.write(w, r, http.StatusInternalServerError, envelope{Error: &apiError{Code: "unexpected", Message: "unexpected error"}})
	}
}
