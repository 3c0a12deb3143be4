package repo

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/timeutil"
	pipedom "ledgerlens/internal/services/pipeline/domain"
)

// CSVWriter materializes a bundle as flat files under dir/<run_id>/
type CSVWriter struct {
	dir string
}

// NewCSV constructs a CSV writer rooted at dir
func NewCSV(dir string) *CSVWriter { return &CSVWriter{dir: dir} }

// manifest is the JSON run descriptor written next to the tables
type manifest struct {
	RunID               string         `json:"run_id"`
	AsOf                time.Time      `json:"as_of"`
	WindowStart         time.Time      `json:"window_start"`
	WindowEnd           time.Time      `json:"window_end"`
	StartedAt           time.Time      `json:"started_at"`
	FinishedAt          time.Time      `json:"finished_at"`
	RecordsLoaded       int            `json:"records_loaded"`
	Rejected            int            `json:"rejected"`
	RejectedByReason    map[string]int `json:"rejected_by_reason,omitempty"`
	DuplicatesCollapsed int            `json:"duplicates_collapsed"`
	Files               []string       `json:"files"`
}

// WriteBundle writes every table plus the manifest
func (w *CSVWriter) WriteBundle(b *pipedom.ResultBundle) error {
	dir := filepath.Join(w.dir, b.RunID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeConfig, "cannot create export dir %s", dir)
	}

	files := []string{"features.csv", "retention.csv", "countries.csv"}
	if err := w.writeFeatures(filepath.Join(dir, "features.csv"), b); err != nil {
		return err
	}
	if err := w.writeRetention(filepath.Join(dir, "retention.csv"), b); err != nil {
		return err
	}
	if err := w.writeCountries(filepath.Join(dir, "countries.csv"), b); err != nil {
		return err
	}
	if b.Split != nil {
		files = append(files, "churn.csv")
		if err := w.writeChurn(filepath.Join(dir, "churn.csv"), b); err != nil {
			return err
		}
	}

	byReason := map[string]int{}
	for reason, n := range b.Report.ByReason() {
		byReason[string(reason)] = n
	}
	m := manifest{
		RunID:               b.RunID,
		AsOf:                b.AsOf,
		WindowStart:         b.Window.Start,
		WindowEnd:           b.Window.End,
		StartedAt:           b.StartedAt,
		FinishedAt:          b.FinishedAt,
		RecordsLoaded:       b.RecordsLoaded,
		Rejected:            b.Report.Count(),
		RejectedByReason:    byReason,
		DuplicatesCollapsed: b.Report.DuplicatesCollapsed,
		Files:               files,
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), raw, 0o640)
}

func (w *CSVWriter) writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			_ = f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *CSVWriter) writeFeatures(path string, b *pipedom.ResultBundle) error {
	scoreByID := make(map[string]int, len(b.Scores))
	for i, sc := range b.Scores {
		scoreByID[sc.CustomerID] = i
	}

	header := []string{
		"customer_id", "first_purchase_at", "last_purchase_at", "recency_days",
		"frequency", "monetary_total", "return_count", "return_value",
		"net_revenue", "r_score", "f_score", "m_score", "segment", "bucket",
	}
	rows := make([][]string, 0, len(b.Features))
	for _, f := range b.Features {
		sc := b.Scores[scoreByID[f.CustomerID]]
		rows = append(rows, []string{
			f.CustomerID,
			f.FirstPurchaseAt.UTC().Format(time.RFC3339),
			f.LastPurchaseAt.UTC().Format(time.RFC3339),
			strconv.Itoa(f.RecencyDays),
			strconv.Itoa(f.Frequency),
			f.MonetaryTotal.String(),
			strconv.Itoa(f.ReturnCount),
			f.ReturnValue.String(),
			f.NetRevenue.String(),
			strconv.Itoa(sc.R), strconv.Itoa(sc.F), strconv.Itoa(sc.M),
			sc.Segment, sc.Bucket,
		})
	}
	return w.writeTable(path, header, rows)
}

func (w *CSVWriter) writeChurn(path string, b *pipedom.ResultBundle) error {
	header := []string{"customer_id", "churned", "outcome_revenue"}
	rows := make([][]string, 0, len(b.Split.Labels))
	for _, l := range b.Split.Labels {
		rows = append(rows, []string{
			l.CustomerID,
			strconv.FormatBool(l.Churned),
			l.OutcomeRevenue.String(),
		})
	}
	return w.writeTable(path, header, rows)
}

func (w *CSVWriter) writeRetention(path string, b *pipedom.ResultBundle) error {
	header := []string{"cohort_month", "month_offset", "cohort_size", "active", "retention"}
	var rows [][]string
	for _, row := range b.Retention.Cohorts {
		for offset, active := range row.Active {
			rows = append(rows, []string{
				timeutil.FormatMonth(row.Month),
				strconv.Itoa(offset),
				strconv.Itoa(row.Size),
				strconv.Itoa(active),
				strconv.FormatFloat(row.RetentionAt(offset), 'f', 4, 64),
			})
		}
	}
	return w.writeTable(path, header, rows)
}

func (w *CSVWriter) writeCountries(path string, b *pipedom.ResultBundle) error {
	header := []string{"country", "customers", "revenue"}
	rows := make([][]string, 0, len(b.Countries))
	for _, c := range b.Countries {
		rows = append(rows, []string{
			c.Country,
			strconv.Itoa(c.Customers),
			c.Revenue.String(),
		})
	}
	return w.writeTable(path, header, rows)
}
