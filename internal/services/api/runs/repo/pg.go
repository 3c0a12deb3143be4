// Package repo provides postgres reads for the runs api
package repo

import (
	"context"
	"time"

	"ledgerlens/internal/modkit/repokit"
	"ledgerlens/internal/platform/store"
)

// Repo is the minimal read surface for the runs api
type Repo interface {
	ListRuns(ctx context.Context, since time.Time, limit int) ([]RunRow, error)
	GetRun(ctx context.Context, runID string) (RunRow, error)
	Features(ctx context.Context, runID string, limit, offset int) ([]FeatureRow, error)
	FeatureCount(ctx context.Context, runID string) (int, error)
	Retention(ctx context.Context, runID string) ([]RetentionRow, error)
	RetentionForCohort(ctx context.Context, runID string, month time.Time, maxOffset int) ([]RetentionRow, error)
	Churn(ctx context.Context, runID string) ([]ChurnRow, error)
	Countries(ctx context.Context, runID string) ([]CountryRow, error)
}

// RunRow mirrors the runs table
type RunRow struct {
	RunID               string
	AsOf                time.Time
	WindowStart         time.Time
	WindowEnd           time.Time
	RecordsLoaded       int
	Rejected            int
	DuplicatesCollapsed int
	StartedAt           time.Time
	FinishedAt          time.Time
}

// FeatureRow mirrors customer_features with numerics rendered as text
type FeatureRow struct {
	CustomerID      string
	FirstPurchaseAt time.Time
	LastPurchaseAt  time.Time
	RecencyDays     int
	Frequency       int
	MonetaryTotal   string
	ReturnCount     int
	ReturnValue     string
	NetRevenue      string
	RScore          int
	FScore          int
	MScore          int
	Segment         string
	Bucket          string
}

// RetentionRow mirrors cohort_retention
type RetentionRow struct {
	CohortMonth time.Time
	Offset      int
	Size        int
	Active      int
}

// ChurnRow mirrors churn_labels
type ChurnRow struct {
	CustomerID     string
	Churned        bool
	OutcomeRevenue string
}

// CountryRow mirrors country_rollup
type CountryRow struct {
	Country   string
	Customers int
	Revenue   string
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func scanRun(r store.Row) (RunRow, error) {
	var rr RunRow
	err := r.Scan(&rr.RunID, &rr.AsOf, &rr.WindowStart, &rr.WindowEnd,
		&rr.RecordsLoaded, &rr.Rejected, &rr.DuplicatesCollapsed,
		&rr.StartedAt, &rr.FinishedAt)
	return rr, err
}

func (r *queries) ListRuns(ctx context.Context, since time.Time, limit int) ([]RunRow, error) {
	const sql = `
select run_id, as_of, window_start, window_end, records_loaded, rejected,
       duplicates_collapsed, started_at, finished_at
from runs
where ($1::timestamptz is null or as_of >= $1)
order by as_of desc, run_id asc
limit $2
`
	var sinceArg any
	if !since.IsZero() {
		sinceArg = since
	}
	return store.Many(ctx, r.q, scanRun, sql, sinceArg, limit)
}

func (r *queries) GetRun(ctx context.Context, runID string) (RunRow, error) {
	const sql = `
select run_id, as_of, window_start, window_end, records_loaded, rejected,
       duplicates_collapsed, started_at, finished_at
from runs
where run_id = $1
`
	return store.One(ctx, r.q, scanRun, sql, runID)
}

func (r *queries) Features(ctx context.Context, runID string, limit, offset int) ([]FeatureRow, error) {
	const sql = `
select customer_id, first_purchase_at, last_purchase_at, recency_days, frequency,
       monetary_total::text, return_count, return_value::text, net_revenue::text,
       r_score, f_score, m_score, segment, bucket
from customer_features
where run_id = $1
order by customer_id asc
limit $2 offset $3
`
	return store.Many(ctx, r.q, func(row store.Row) (FeatureRow, error) {
		var fr FeatureRow
		err := row.Scan(&fr.CustomerID, &fr.FirstPurchaseAt, &fr.LastPurchaseAt,
			&fr.RecencyDays, &fr.Frequency, &fr.MonetaryTotal, &fr.ReturnCount,
			&fr.ReturnValue, &fr.NetRevenue, &fr.RScore, &fr.FScore, &fr.MScore,
			&fr.Segment, &fr.Bucket)
		return fr, err
	}, sql, runID, limit, offset)
}

func (r *queries) FeatureCount(ctx context.Context, runID string) (int, error) {
	return store.Scalar[int](ctx, r.q,
		`select count(1) from customer_features where run_id = $1`, runID)
}

func scanRetention(row store.Row) (RetentionRow, error) {
	var rr RetentionRow
	err := row.Scan(&rr.CohortMonth, &rr.Offset, &rr.Size, &rr.Active)
	return rr, err
}

func (r *queries) Retention(ctx context.Context, runID string) ([]RetentionRow, error) {
	const sql = `
select cohort_month, month_offset, cohort_size, active
from cohort_retention
where run_id = $1
order by cohort_month asc, month_offset asc
`
	return store.Many(ctx, r.q, scanRetention, sql, runID)
}

func (r *queries) RetentionForCohort(
	ctx context.Context,
	runID string,
	month time.Time,
	maxOffset int,
) ([]RetentionRow, error) {
	const sql = `
select cohort_month, month_offset, cohort_size, active
from cohort_retention
where run_id = $1 and cohort_month = $2 and month_offset <= $3
order by month_offset asc
`
	return store.Many(ctx, r.q, scanRetention, sql, runID, month, maxOffset)
}

func (r *queries) Churn(ctx context.Context, runID string) ([]ChurnRow, error) {
	const sql = `
select customer_id, churned, outcome_revenue::text
from churn_labels
where run_id = $1
order by customer_id asc
`
	return store.Many(ctx, r.q, func(row store.Row) (ChurnRow, error) {
		var cr ChurnRow
		err := row.Scan(&cr.CustomerID, &cr.Churned, &cr.OutcomeRevenue)
		return cr, err
	}, sql, runID)
}

func (r *queries) Countries(ctx context.Context, runID string) ([]CountryRow, error) {
	const sql = `
select country, customers, revenue::text
from country_rollup
where run_id = $1
order by country asc
`
	return store.Many(ctx, r.q, func(row store.Row) (CountryRow, error) {
		var cr CountryRow
		err := row.Scan(&cr.Country, &cr.Customers, &cr.Revenue)
		return cr, err
	}, sql, runID)
}
