// Package repo provides the export sink storage implementations
package repo

import (
	"context"
	"fmt"
	"strings"

	perr "ledgerlens/internal/platform/errors"

	"ledgerlens/internal/modkit/repokit"
	pipedom "ledgerlens/internal/services/pipeline/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage is the Postgres surface the export service writes through
type Storage interface {
	EnsureSchema(ctx context.Context) error
	InsertRun(ctx context.Context, b *pipedom.ResultBundle) error
	InsertFeatures(ctx context.Context, b *pipedom.ResultBundle) error
	InsertChurnLabels(ctx context.Context, b *pipedom.ResultBundle) error
	InsertRetention(ctx context.Context, b *pipedom.ResultBundle) error
	InsertCountries(ctx context.Context, b *pipedom.ResultBundle) error
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id               text PRIMARY KEY,
		as_of                timestamptz NOT NULL,
		window_start         timestamptz NOT NULL,
		window_end           timestamptz NOT NULL,
		records_loaded       int NOT NULL,
		rejected             int NOT NULL,
		duplicates_collapsed int NOT NULL,
		started_at           timestamptz NOT NULL,
		finished_at          timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customer_features (
		run_id            text NOT NULL REFERENCES runs(run_id),
		customer_id       text NOT NULL,
		first_purchase_at timestamptz NOT NULL,
		last_purchase_at  timestamptz NOT NULL,
		recency_days      int NOT NULL,
		frequency         int NOT NULL,
		monetary_total    numeric NOT NULL,
		return_count      int NOT NULL,
		return_value      numeric NOT NULL,
		net_revenue       numeric NOT NULL,
		r_score           int NOT NULL,
		f_score           int NOT NULL,
		m_score           int NOT NULL,
		segment           text NOT NULL,
		bucket            text NOT NULL,
		PRIMARY KEY (run_id, customer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS churn_labels (
		run_id          text NOT NULL REFERENCES runs(run_id),
		customer_id     text NOT NULL,
		churned         boolean NOT NULL,
		outcome_revenue numeric NOT NULL,
		PRIMARY KEY (run_id, customer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS cohort_retention (
		run_id       text NOT NULL REFERENCES runs(run_id),
		cohort_month date NOT NULL,
		month_offset int NOT NULL,
		cohort_size  int NOT NULL,
		active       int NOT NULL,
		PRIMARY KEY (run_id, cohort_month, month_offset)
	)`,
	`CREATE TABLE IF NOT EXISTS country_rollup (
		run_id    text NOT NULL REFERENCES runs(run_id),
		country   text NOT NULL,
		customers int NOT NULL,
		revenue   numeric NOT NULL,
		PRIMARY KEY (run_id, country)
	)`,
}

// EnsureSchema creates the export tables when missing
func (s *pg) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "ensure export schema")
		}
	}
	return nil
}

// InsertRun implements Storage
func (s *pg) InsertRun(ctx context.Context, b *pipedom.ResultBundle) error {
	_, err := s.q.Exec(ctx, `INSERT INTO runs
		(run_id, as_of, window_start, window_end, records_loaded, rejected,
		duplicates_collapsed, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (run_id) DO NOTHING`,
		b.RunID, b.AsOf, b.Window.Start, b.Window.End, b.RecordsLoaded,
		b.Report.Count(), b.Report.DuplicatesCollapsed, b.StartedAt, b.FinishedAt)
	return perr.FromPostgresf(err, "insert run %s", b.RunID)
}

// InsertFeatures implements Storage
// rows and scores line up by customer id; one multi-row insert per batch
func (s *pg) InsertFeatures(ctx context.Context, b *pipedom.ResultBundle) error {
	if len(b.Features) == 0 {
		return nil
	}
	scoreByID := make(map[string]int, len(b.Scores))
	for i, sc := range b.Scores {
		scoreByID[sc.CustomerID] = i
	}

	const cols = 15
	var sb strings.Builder
	sb.WriteString(`INSERT INTO customer_features
		(run_id, customer_id, first_purchase_at, last_purchase_at, recency_days,
		frequency, monetary_total, return_count, return_value, net_revenue,
		r_score, f_score, m_score, segment, bucket) VALUES `)

	args := make([]any, 0, len(b.Features)*cols)
	for i, f := range b.Features {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*cols + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12, base+13, base+14)

		sc := b.Scores[scoreByID[f.CustomerID]]
		args = append(args,
			b.RunID, f.CustomerID, f.FirstPurchaseAt, f.LastPurchaseAt, f.RecencyDays,
			f.Frequency, f.MonetaryTotal.String(), f.ReturnCount, f.ReturnValue.String(),
			f.NetRevenue.String(), sc.R, sc.F, sc.M, sc.Segment, sc.Bucket,
		)
	}
	sb.WriteString(` ON CONFLICT (run_id, customer_id) DO NOTHING`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "insert customer features")
}

// InsertChurnLabels implements Storage
func (s *pg) InsertChurnLabels(ctx context.Context, b *pipedom.ResultBundle) error {
	if b.Split == nil || len(b.Split.Labels) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO churn_labels
		(run_id, customer_id, churned, outcome_revenue) VALUES `)

	args := make([]any, 0, len(b.Split.Labels)*4)
	for i, l := range b.Split.Labels {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*4 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", base, base+1, base+2, base+3)
		args = append(args, b.RunID, l.CustomerID, l.Churned, l.OutcomeRevenue.String())
	}
	sb.WriteString(` ON CONFLICT (run_id, customer_id) DO NOTHING`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "insert churn labels")
}

// InsertRetention implements Storage
func (s *pg) InsertRetention(ctx context.Context, b *pipedom.ResultBundle) error {
	if len(b.Retention.Cohorts) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO cohort_retention
		(run_id, cohort_month, month_offset, cohort_size, active) VALUES `)

	var args []any
	n := 0
	for _, row := range b.Retention.Cohorts {
		for offset, active := range row.Active {
			if n > 0 {
				sb.WriteByte(',')
			}
			base := n*5 + 1
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d)", base, base+1, base+2, base+3, base+4)
			args = append(args, b.RunID, row.Month, offset, row.Size, active)
			n++
		}
	}
	sb.WriteString(` ON CONFLICT (run_id, cohort_month, month_offset) DO NOTHING`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "insert cohort retention")
}

// InsertCountries implements Storage
func (s *pg) InsertCountries(ctx context.Context, b *pipedom.ResultBundle) error {
	if len(b.Countries) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO country_rollup
		(run_id, country, customers, revenue) VALUES `)

	args := make([]any, 0, len(b.Countries)*4)
	for i, c := range b.Countries {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*4 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", base, base+1, base+2, base+3)
		args = append(args, b.RunID, c.Country, c.Customers, c.Revenue.String())
	}
	sb.WriteString(` ON CONFLICT (run_id, country) DO NOTHING`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "insert country rollup")
}
