package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-contentcache/pkg/assets"
	"github.com/illmade-knight/go-contentcache/pkg/cache"
	"github.com/illmade-knight/go-contentcache/pkg/content"
	"github.com/illmade-knight/go-contentcache/pkg/microservice"
	"github.com/illmade-knight/go-contentcache/pkg/store"
	"github.com/illmade-knight/go-contentcache/pkg/store/memory"
	"github.com/illmade-knight/go-contentcache/pkg/types"
	"github.com/illmade-knight/go-contentcache/pkg/web"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// brokenStore fails publication counts and vacancy lookups.
type brokenStore struct {
	*memory.Store
}

var errDown = errors.New("connection refused")

func (brokenStore) CountPublications(context.Context, *int64) (int, error) { return 0, errDown }
func (brokenStore) VacancyByID(context.Context, int64) (types.Vacancy, error) {
	return types.Vacancy{}, errDown
}

type paging struct {
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	CategoryID *int64 `json:"category_id"`
}

type link struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Code string `json:"code"`
}

type response struct {
	Data         json.RawMessage  `json:"data"`
	Categories   []types.Category `json:"categories"`
	Pagination   *paging          `json:"pagination"`
	HotVacancies []link           `json:"hot_vacancies"`
	Error        *apiError        `json:"error"`
	RequestID    string           `json:"request_id"`
}

type item struct {
	ID       int64           `json:"id"`
	URL      string          `json:"url"`
	Content  string          `json:"content"`
	Image    string          `json:"image"`
	Category *types.Category `json:"category"`
}

func seededStore() *memory.Store {
	st := memory.New()
	st.PutCategory(types.Category{ID: 1, Name: "Go"})
	st.PutCategory(types.Category{ID: 2, Name: "Rust"})
	for i := int64(1); i <= 15; i++ {
		cat := int64(1 + i%2)
		st.PutPublication(types.Publication{
			ID:          i,
			Title:       "post",
			Content:     "body",
			CategoryID:  &cat,
			PublishedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	for i := int64(1); i <= 4; i++ {
		st.PutVacancy(types.Vacancy{
			ID:          i,
			Title:       "job",
			Content:     "details",
			Hot:         i == 2,
			PublishedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return st
}

// newServer builds the full HTTP stack over st.
func newServer(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	backend, err := cache.NewInMemoryLRUCache[string, any](100)
	require.NoError(t, err)

	cfg := content.DefaultConfig()
	cfg.PageSize = 10
	svc, err := content.NewService(cfg, st, content.NewSharedCaches(backend, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	picker := assets.NewStaticPicker("https://jobs.example.com/images", map[string][]string{
		web.VacancyImageCategory: {"banner.jpg"},
	})
	h, err := web.NewHandler(svc, picker, "https://jobs.example.com", zerolog.Nop())
	require.NoError(t, err)

	server := microservice.NewBaseServer(zerolog.Nop(), ":0", web.RequestID, web.AccessLog(zerolog.Nop()), web.Recover(zerolog.Nop()))
	h.Register(server.Mux())
	return server.Handler()
}

func get(t *testing.T, h http.Handler, target string, header ...string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandler_Index(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	var items []item
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 10)
	assert.Equal(t, int64(15), items[0].ID, "newest first")
	assert.Equal(t, "https://jobs.example.com/post/15", items[0].URL)
	assert.Empty(t, items[0].Content, "listings omit bodies")
	require.NotNil(t, items[0].Category)
	assert.Equal(t, "Rust", items[0].Category.Name)

	require.NotNil(t, body.Pagination)
	assert.Equal(t, 1, body.Pagination.Page)
	assert.Equal(t, 15, body.Pagination.Total)
	assert.Equal(t, 2, body.Pagination.TotalPages)
	assert.True(t, body.Pagination.HasNext)
	assert.Len(t, body.Categories, 2)

	require.NotEmpty(t, body.HotVacancies)
	assert.Equal(t, int64(2), body.HotVacancies[0].ID)
	assert.Equal(t, "https://jobs.example.com/vacancy/2", body.HotVacancies[0].URL)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, body.RequestID, rec.Header().Get(web.RequestIDHeader))
}

func TestHandler_PageWithCategory(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/page/1?categoryId=2")

	require.Equal(t, http.StatusOK, rec.Code)
	var items []item
	require.NoError(t, json.Unmarshal(body.Data, &items))
	assert.Len(t, items, 8)
	for _, it := range items {
		assert.Equal(t, int64(1), it.ID%2, "category 2 holds odd IDs")
	}
	require.NotNil(t, body.Pagination.CategoryID)
	assert.Equal(t, int64(2), *body.Pagination.CategoryID)
}

func TestHandler_PageBeyondEnd(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/page/9")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body.Data))
	assert.Equal(t, 15, body.Pagination.Total)
}

func TestHandler_MaximalPageNumber(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/page/9223372036854775807")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body.Data))
	assert.Equal(t, 15, body.Pagination.Total)
	assert.False(t, body.Pagination.HasNext)
}

func TestHandler_BadParameters(t *testing.T) {
	h := newServer(t, seededStore())

	for _, target := range []string{"/page/abc", "/page/1?categoryId=x", "/vacancies/one", "/vacancy/nope", "/post/1.5"} {
		t.Run(target, func(t *testing.T) {
			rec, body := get(t, h, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, "bad_params", body.Error.Code)
			assert.NotNil(t, body.HotVacancies)
		})
	}
}

func TestHandler_Vacancies(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/vacancies/1")

	require.Equal(t, http.StatusOK, rec.Code)
	var items []item
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 4)
	assert.Equal(t, int64(4), items[0].ID)
	assert.Nil(t, body.Categories)
	assert.False(t, body.Pagination.HasNext)
}

func TestHandler_VacancyDetail(t *testing.T) {
	h := newServer(t, seededStore())

	t.Run("Found", func(t *testing.T) {
		rec, body := get(t, h, "/vacancy/3")
		require.Equal(t, http.StatusOK, rec.Code)
		var v item
		require.NoError(t, json.Unmarshal(body.Data, &v))
		assert.Equal(t, int64(3), v.ID)
		assert.Equal(t, "details", v.Content)
		assert.Equal(t, "https://jobs.example.com/images/vacancy/banner.jpg", v.Image)
	})

	t.Run("Not found", func(t *testing.T) {
		rec, body := get(t, h, "/vacancy/99")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_found", body.Error.Code)
		assert.NotEmpty(t, body.HotVacancies)
	})
}

func TestHandler_Post(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/post/7")
	require.Equal(t, http.StatusOK, rec.Code)
	var p item
	require.NoError(t, json.Unmarshal(body.Data, &p))
	assert.Equal(t, "body", p.Content)
	assert.Equal(t, "https://jobs.example.com/post/7", p.URL)

	rec, _ = get(t, h, "/post/700")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_StoreUnavailable(t *testing.T) {
	h := newServer(t, brokenStore{Store: seededStore()})

	rec, body := get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "unavailable", body.Error.Code)

	rec, _ = get(t, h, "/vacancy/1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = get(t, h, "/post/1")
	assert.Equal(t, http.StatusOK, rec.Code, "unaffected reads still succeed")
}

func TestHandler_KeepsIncomingRequestID(t *testing.T) {
	h := newServer(t, seededStore())

	rec, body := get(t, h, "/post/1", web.RequestIDHeader, "abc-123")

	assert.Equal(t, "abc-123", rec.Header().Get(web.RequestIDHeader))
	assert.Equal(t, "abc-123", body.RequestID)
}

func TestHandler_Healthz(t *testing.T) {
	h := newServer(t, seededStore())

	rec, _ := get(t, h, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := web.NewHandler(nil, assets.NewStaticPicker("", nil), "", zerolog.Nop())
	assert.Error(t, err)
}
