package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"drugwatch/internal/domain"
	"drugwatch/internal/novelty"
	"drugwatch/internal/platform/logger"
	"drugwatch/pkg/platform/sentinel"
)

type fakeService struct {
	result       *domain.SearchResult
	product      domain.Product
	err          error
	lastCriteria domain.Criteria
}

func (f *fakeService) Search(ctx context.Context, c domain.Criteria) (*domain.SearchResult, error) {
	f.lastCriteria = c
	return f.result, f.err
}

func (f *fakeService) GetProduct(ctx context.Context, code string) (domain.Product, error) {
	return f.product, f.err
}

func newRouter(svc Service) *chi.Mux {
	r := chi.NewRouter()
	New(svc, logger.Discard()).Register(r)
	return r
}

func TestHandleSearchReturnsAnnotatedResult(t *testing.T) {
	viewed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := &fakeService{result: &domain.SearchResult{
		Products:  []domain.Product{{Code: "1001", UpdatedAt: viewed.Add(time.Hour)}},
		Approvals: []domain.Approval{},
		Filings:   []domain.ReviewFiling{},
		Succeeded: []domain.Source{domain.SourceProducts},
		Failed:    []domain.Source{},
	}}
	router := newRouter(svc)

	body, _ := json.Marshal(SearchRequest{
		Term: "loxonin",
		Seen: novelty.SeenState{
			domain.SourceProducts: {LastViewedAt: &viewed, IDs: []string{"1001"}},
		},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "loxonin", svc.lastCriteria.Term)

	var res novelty.AnnotatedResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Products, 1)
	require.False(t, res.Products[0].IsNew, "seen id must not be flagged new")
	require.Equal(t, []domain.Source{domain.SourceProducts}, res.Succeeded)
}

func TestHandleSearchMalformedBodyIsBadRequest(t *testing.T) {
	router := newRouter(&fakeService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte("{not json"))))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetProductNotFound(t *testing.T) {
	router := newRouter(&fakeService{err: sentinel.ErrNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/9999", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not_found")
}

func TestHandleGetProductOK(t *testing.T) {
	router := newRouter(&fakeService{product: domain.Product{Code: "1001", Name: "Loxonin"}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/1001", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "Loxonin", p.Name)
}
