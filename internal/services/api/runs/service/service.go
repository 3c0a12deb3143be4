// Package service contains the runs api workflows
package service

import (
	"context"
	"time"

	"ledgerlens/internal/modkit/repokit"
	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/timeutil"
	"ledgerlens/internal/services/api/runs/domain"
	"ledgerlens/internal/services/api/runs/repo"
)

const (
	defaultRunLimit     = 50
	defaultFeatureLimit = 100
	maxRetentionOffset  = 120
)

// Service defines the runs api contract
type Service interface {
	List(ctx context.Context, in domain.ListInput) ([]domain.RunSummary, error)
	Get(ctx context.Context, runID string) (domain.RunSummary, error)
	Features(ctx context.Context, runID string, page domain.PageOpts) (domain.FeaturePage, error)
	Retention(ctx context.Context, runID string) ([]domain.RetentionCell, error)
	RetentionForCohort(ctx context.Context, runID string, in domain.RetentionQueryInput) ([]domain.RetentionCell, error)
	Churn(ctx context.Context, runID string) ([]domain.ChurnRow, error)
	Countries(ctx context.Context, runID string) ([]domain.CountryRow, error)
}

// Svc implements the runs service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New constructs a runs service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("runs.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("runs.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

func toSummary(r repo.RunRow) domain.RunSummary {
	return domain.RunSummary{
		RunID:               r.RunID,
		AsOf:                r.AsOf,
		WindowStart:         r.WindowStart,
		WindowEnd:           r.WindowEnd,
		RecordsLoaded:       r.RecordsLoaded,
		Rejected:            r.Rejected,
		DuplicatesCollapsed: r.DuplicatesCollapsed,
		StartedAt:           r.StartedAt,
		FinishedAt:          r.FinishedAt,
	}
}

// List returns run summaries, newest as_of first
func (s *Svc) List(ctx context.Context, in domain.ListInput) ([]domain.RunSummary, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	var since time.Time
	if in.Since != "" {
		t, err := time.Parse("2006-01-02", in.Since)
		if err != nil {
			return nil, perr.Validationf("since must be YYYY-MM-DD, got %q", in.Since)
		}
		since = t
	}
	rows, err := s.Repo.ListRuns(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RunSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSummary(r))
	}
	return out, nil
}

// Get returns one run or not found
func (s *Svc) Get(ctx context.Context, runID string) (domain.RunSummary, error) {
	if runID == "" {
		return domain.RunSummary{}, perr.Validationf("run id is required")
	}
	r, err := s.Repo.GetRun(ctx, runID)
	if err != nil {
		return domain.RunSummary{}, err
	}
	return toSummary(r), nil
}

// Features returns one page of feature rows plus the run total
func (s *Svc) Features(ctx context.Context, runID string, page domain.PageOpts) (domain.FeaturePage, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return domain.FeaturePage{}, err
	}
	limit := page.Limit
	if limit <= 0 {
		limit = defaultFeatureLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	total, err := s.Repo.FeatureCount(ctx, runID)
	if err != nil {
		return domain.FeaturePage{}, err
	}
	rows, err := s.Repo.Features(ctx, runID, limit, offset)
	if err != nil {
		return domain.FeaturePage{}, err
	}
	items := make([]domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.FeatureRow{
			CustomerID:      r.CustomerID,
			FirstPurchaseAt: r.FirstPurchaseAt,
			LastPurchaseAt:  r.LastPurchaseAt,
			RecencyDays:     r.RecencyDays,
			Frequency:       r.Frequency,
			MonetaryTotal:   r.MonetaryTotal,
			ReturnCount:     r.ReturnCount,
			ReturnValue:     r.ReturnValue,
			NetRevenue:      r.NetRevenue,
			RScore:          r.RScore,
			FScore:          r.FScore,
			MScore:          r.MScore,
			Segment:         r.Segment,
			Bucket:          r.Bucket,
		})
	}
	return domain.FeaturePage{Items: items, Total: total}, nil
}

func toCells(rows []repo.RetentionRow) []domain.RetentionCell {
	out := make([]domain.RetentionCell, 0, len(rows))
	for _, r := range rows {
		cell := domain.RetentionCell{
			CohortMonth: timeutil.FormatMonth(r.CohortMonth),
			Offset:      r.Offset,
			Size:        r.Size,
			Active:      r.Active,
		}
		if r.Size > 0 {
			cell.Retention = float64(r.Active) / float64(r.Size)
		}
		out = append(out, cell)
	}
	return out
}

// Retention returns the whole matrix for a run
func (s *Svc) Retention(ctx context.Context, runID string) ([]domain.RetentionCell, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.Repo.Retention(ctx, runID)
	if err != nil {
		return nil, err
	}
	return toCells(rows), nil
}

// RetentionForCohort returns one cohort's row limited to max_offset
func (s *Svc) RetentionForCohort(
	ctx context.Context,
	runID string,
	in domain.RetentionQueryInput,
) ([]domain.RetentionCell, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	month, err := time.Parse("2006-01", in.Month)
	if err != nil {
		return nil, perr.Validationf("month must be YYYY-MM, got %q", in.Month)
	}
	maxOffset := in.MaxOffset
	if maxOffset <= 0 {
		maxOffset = maxRetentionOffset
	}
	rows, err := s.Repo.RetentionForCohort(ctx, runID, month, maxOffset)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, perr.NotFoundf("run %s has no cohort %s", runID, in.Month)
	}
	return toCells(rows), nil
}

// Churn returns the run's churn labels
func (s *Svc) Churn(ctx context.Context, runID string) ([]domain.ChurnRow, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.Repo.Churn(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChurnRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ChurnRow{
			CustomerID:     r.CustomerID,
			Churned:        r.Churned,
			OutcomeRevenue: r.OutcomeRevenue,
		})
	}
	return out, nil
}

// Countries returns the run's country rollup
func (s *Svc) Countries(ctx context.Context, runID string) ([]domain.CountryRow, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.Repo.Countries(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CountryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CountryRow{
			Country:   r.Country,
			Customers: r.Customers,
			Revenue:   r.Revenue,
		})
	}
	return out, nil
}
