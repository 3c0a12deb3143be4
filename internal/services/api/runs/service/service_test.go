package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/services/api/runs/domain"
	"ledgerlens/internal/services/api/runs/repo"
)

type fakeRepo struct {
	runs      []repo.RunRow
	features  []repo.FeatureRow
	retention []repo.RetentionRow
	churn     []repo.ChurnRow
	countries []repo.CountryRow

	lastLimit  int
	lastOffset int
	lastSince  time.Time
}

func (f *fakeRepo) ListRuns(_ context.Context, since time.Time, limit int) ([]repo.RunRow, error) {
	f.lastSince, f.lastLimit = since, limit
	return f.runs, nil
}

func (f *fakeRepo) GetRun(_ context.Context, runID string) (repo.RunRow, error) {
	for _, r := range f.runs {
		if r.RunID == runID {
			return r, nil
		}
	}
	return repo.RunRow{}, perr.ErrNotFound
}

func (f *fakeRepo) Features(_ context.Context, _ string, limit, offset int) ([]repo.FeatureRow, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.features, nil
}

func (f *fakeRepo) FeatureCount(context.Context, string) (int, error) {
	return len(f.features), nil
}

func (f *fakeRepo) Retention(context.Context, string) ([]repo.RetentionRow, error) {
	return f.retention, nil
}

func (f *fakeRepo) RetentionForCohort(
	_ context.Context, _ string, month time.Time, maxOffset int,
) ([]repo.RetentionRow, error) {
	var out []repo.RetentionRow
	for _, r := range f.retention {
		if r.CohortMonth.Equal(month) && r.Offset <= maxOffset {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) Churn(context.Context, string) ([]repo.ChurnRow, error) {
	return f.churn, nil
}

func (f *fakeRepo) Countries(context.Context, string) ([]repo.CountryRow, error) {
	return f.countries, nil
}

func newSvc(f *fakeRepo) *Svc {
	return &Svc{Repo: f}
}

func seededRepo() *fakeRepo {
	jan := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeRepo{
		runs: []repo.RunRow{{
			RunID:         "run-1",
			AsOf:          time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
			WindowStart:   jan,
			WindowEnd:     time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
			RecordsLoaded: 10,
		}},
		features: []repo.FeatureRow{
			{CustomerID: "12345", Frequency: 3, MonetaryTotal: "125.50", Segment: "555", Bucket: "champion"},
		},
		retention: []repo.RetentionRow{
			{CohortMonth: jan, Offset: 0, Size: 4, Active: 4},
			{CohortMonth: jan, Offset: 1, Size: 4, Active: 1},
		},
		churn:     []repo.ChurnRow{{CustomerID: "12345", Churned: true, OutcomeRevenue: "0"}},
		countries: []repo.CountryRow{{Country: "united kingdom", Customers: 1, Revenue: "125.50"}},
	}
}

func TestListDefaultsLimit(t *testing.T) {
	f := seededRepo()
	out, err := newSvc(f).List(context.Background(), domain.ListInput{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, defaultRunLimit, f.lastLimit)
	require.True(t, f.lastSince.IsZero())
}

func TestListParsesSince(t *testing.T) {
	f := seededRepo()
	_, err := newSvc(f).List(context.Background(), domain.ListInput{Since: "2011-06-01", Limit: 5})
	require.NoError(t, err)
	require.Equal(t, time.Date(2011, 6, 1, 0, 0, 0, 0, time.UTC), f.lastSince)
	require.Equal(t, 5, f.lastLimit)

	_, err = newSvc(f).List(context.Background(), domain.ListInput{Since: "June 2011"})
	require.Error(t, err)
	require.Equal(t, perr.ErrorCodeValidation, perr.CodeOf(err))
}

func TestGetUnknownRunIsNotFound(t *testing.T) {
	_, err := newSvc(seededRepo()).Get(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, perr.ErrorCodeNotFound, perr.CodeOf(err))
}

func TestFeaturesChecksRunAndPages(t *testing.T) {
	f := seededRepo()
	svc := newSvc(f)

	page, err := svc.Features(context.Background(), "run-1", domain.PageOpts{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, 10, f.lastLimit)
	require.Equal(t, 20, f.lastOffset)
	require.Equal(t, "125.50", page.Items[0].MonetaryTotal)

	_, err = svc.Features(context.Background(), "missing", domain.PageOpts{})
	require.Equal(t, perr.ErrorCodeNotFound, perr.CodeOf(err))
}

func TestRetentionComputesRates(t *testing.T) {
	cells, err := newSvc(seededRepo()).Retention(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, cells, 2)
	require.Equal(t, "2011-01", cells[0].CohortMonth)
	require.InDelta(t, 1.0, cells[0].Retention, 1e-9)
	require.InDelta(t, 0.25, cells[1].Retention, 1e-9)
}

func TestRetentionForCohort(t *testing.T) {
	svc := newSvc(seededRepo())

	cells, err := svc.RetentionForCohort(context.Background(), "run-1",
		domain.RetentionQueryInput{Month: "2011-01", MaxOffset: 0})
	require.NoError(t, err)
	require.Len(t, cells, 1)
	require.Equal(t, 0, cells[0].Offset)

	_, err = svc.RetentionForCohort(context.Background(), "run-1",
		domain.RetentionQueryInput{Month: "2012-05"})
	require.Equal(t, perr.ErrorCodeNotFound, perr.CodeOf(err))
}

func TestChurnAndCountries(t *testing.T) {
	svc := newSvc(seededRepo())

	churn, err := svc.Churn(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, churn, 1)
	require.True(t, churn[0].Churned)

	countries, err := svc.Countries(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, "united kingdom", countries[0].Country)
}
