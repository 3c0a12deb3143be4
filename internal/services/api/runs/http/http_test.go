package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/modkit/httpkit"
	perr "ledgerlens/internal/platform/errors"
	phttp "ledgerlens/internal/platform/net/http"
	"ledgerlens/internal/services/api/runs/domain"
)

// fakeService returns canned data so the test only exercises transport
type fakeService struct {
	lastList domain.ListInput
}

func (f *fakeService) List(_ context.Context, in domain.ListInput) ([]domain.RunSummary, error) {
	f.lastList = in
	return []domain.RunSummary{{RunID: "run-1"}}, nil
}

func (f *fakeService) Get(_ context.Context, runID string) (domain.RunSummary, error) {
	if runID != "run-1" {
		return domain.RunSummary{}, perr.NotFoundf("run %s not found", runID)
	}
	return domain.RunSummary{RunID: runID, AsOf: time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeService) Features(_ context.Context, runID string, page domain.PageOpts) (domain.FeaturePage, error) {
	if runID != "run-1" {
		return domain.FeaturePage{}, perr.NotFoundf("run %s not found", runID)
	}
	return domain.FeaturePage{
		Items: []domain.FeatureRow{{CustomerID: "12345", Segment: "555"}},
		Total: 42,
	}, nil
}

func (f *fakeService) Retention(context.Context, string) ([]domain.RetentionCell, error) {
	return []domain.RetentionCell{{CohortMonth: "2011-01", Size: 4, Active: 4, Retention: 1}}, nil
}

func (f *fakeService) RetentionForCohort(
	_ context.Context, _ string, in domain.RetentionQueryInput,
) ([]domain.RetentionCell, error) {
	return []domain.RetentionCell{{CohortMonth: in.Month, Size: 4, Active: 1, Retention: 0.25}}, nil
}

func (f *fakeService) Churn(context.Context, string) ([]domain.ChurnRow, error) {
	return []domain.ChurnRow{{CustomerID: "12345", Churned: true, OutcomeRevenue: "0"}}, nil
}

func (f *fakeService) Countries(context.Context, string) ([]domain.CountryRow, error) {
	return []domain.CountryRow{{Country: "eire", Customers: 1, Revenue: "22"}}, nil
}

func newRouter(svc *fakeService) phttp.Router {
	r := phttp.AdaptChi(chi.NewRouter())
	r.Route("/runs", func(rr httpkit.Router) {
		Register(rr, svc)
	})
	return r
}

func doGet(t *testing.T, r phttp.Router, path string) (int, phttp.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	var env phttp.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec.Code, env
}

func doPost(t *testing.T, r phttp.Router, path, body string) (int, phttp.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.Mux().ServeHTTP(rec, req)
	var env phttp.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec.Code, env
}

func TestGetRun(t *testing.T) {
	r := newRouter(&fakeService{})

	code, env := doGet(t, r, "/runs/run-1")
	require.Equal(t, 200, code)
	data := env.Data.(map[string]any)
	require.Equal(t, "run-1", data["run_id"])

	code, env = doGet(t, r, "/runs/nope")
	require.Equal(t, 404, code)
	require.Equal(t, perr.ErrorCodeNotFound, env.Code)
}

func TestListPassesQueryParams(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	code, _ := doGet(t, r, "/runs/?since=2011-06-01&limit=5")
	require.Equal(t, 200, code)
	require.Equal(t, "2011-06-01", svc.lastList.Since)
	require.Equal(t, 5, svc.lastList.Limit)
}

func TestListQueryValidatesBody(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	code, _ := doPost(t, r, "/runs/query", `{"since":"2011-06-01","limit":10}`)
	require.Equal(t, 200, code)
	require.Equal(t, 10, svc.lastList.Limit)

	// date tag rejects a month only value
	code, env := doPost(t, r, "/runs/query", `{"since":"2011-06"}`)
	require.Equal(t, 400, code)
	require.Equal(t, perr.ErrorCodeValidation, env.Code)
}

func TestFeaturesListEnvelope(t *testing.T) {
	r := newRouter(&fakeService{})

	code, env := doGet(t, r, "/runs/run-1/features?limit=10&offset=20")
	require.Equal(t, 200, code)
	data := env.Data.(map[string]any)
	items := data["items"].([]any)
	require.Len(t, items, 1)
	page := data["page"].(map[string]any)
	require.Equal(t, float64(42), page["total"])
	require.Equal(t, float64(3), page["page"]) // offset 20 at limit 10
	require.Equal(t, float64(10), page["page_size"])
}

func TestRetentionQueryValidatesMonth(t *testing.T) {
	r := newRouter(&fakeService{})

	code, env := doPost(t, r, "/runs/run-1/retention/query", `{"month":"2011-01","max_offset":3}`)
	require.Equal(t, 200, code)
	cells := env.Data.([]any)
	require.Len(t, cells, 1)

	code, env = doPost(t, r, "/runs/run-1/retention/query", `{"month":"January"}`)
	require.Equal(t, 400, code)
	require.Equal(t, perr.ErrorCodeValidation, env.Code)
}

func TestChurnAndCountriesEndpoints(t *testing.T) {
	r := newRouter(&fakeService{})

	code, env := doGet(t, r, "/runs/run-1/churn")
	require.Equal(t, 200, code)
	rows := env.Data.([]any)
	require.Len(t, rows, 1)

	code, env = doGet(t, r, "/runs/run-1/countries")
	require.Equal(t, 200, code)
	rows = env.Data.([]any)
	require.Equal(t, "eire", rows[0].(map[string]any)["country"])
}
