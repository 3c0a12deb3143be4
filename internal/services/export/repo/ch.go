package repo

import (
	"context"

	"ledgerlens/internal/platform/store"
	pipedom "ledgerlens/internal/services/pipeline/domain"
)

// featureColumns is the clickhouse column order for the feature table
var featureColumns = []string{
	"run_id", "as_of", "window_start", "window_end",
	"customer_id", "first_purchase_at", "last_purchase_at",
	"recency_days", "frequency", "monetary_total", "return_count",
	"return_value", "net_revenue", "r_score", "f_score", "m_score",
	"segment", "bucket",
}

// CHWriter appends the feature table to clickhouse for dashboard consumers
type CHWriter struct {
	ch    store.Clickhouse
	table string
}

// NewCH constructs a clickhouse feature writer
func NewCH(ch store.Clickhouse, table string) *CHWriter {
	return &CHWriter{ch: ch, table: table}
}

// WriteFeatures appends one row per customer as a single batch
func (w *CHWriter) WriteFeatures(ctx context.Context, b *pipedom.ResultBundle) error {
	if len(b.Features) == 0 {
		return nil
	}
	scoreByID := make(map[string]int, len(b.Scores))
	for i, sc := range b.Scores {
		scoreByID[sc.CustomerID] = i
	}

	rows := make([][]any, 0, len(b.Features))
	for _, f := range b.Features {
		sc := b.Scores[scoreByID[f.CustomerID]]
		rows = append(rows, []any{
			b.RunID, b.AsOf, b.Window.Start, b.Window.End,
			f.CustomerID, f.FirstPurchaseAt, f.LastPurchaseAt,
			int32(f.RecencyDays), int32(f.Frequency), f.MonetaryTotal.String(),
			int32(f.ReturnCount), f.ReturnValue.String(), f.NetRevenue.String(),
			int8(sc.R), int8(sc.F), int8(sc.M), sc.Segment, sc.Bucket,
		})
	}
	return w.ch.Insert(ctx, w.table, featureColumns, rows)
}
