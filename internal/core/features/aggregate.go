// Package features folds classified ledger records into per-customer
// behavioral summary rows
package features

import (
	"sort"
	"time"

	"ledgerlens/internal/core/classify"
	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/timeutil"

	"github.com/shopspring/decimal"
)

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate rejects inverted or empty windows before any aggregation runs
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return perr.Configf("window start %s must precede end %s", w.Start, w.End)
	}
	return nil
}

// Contains reports whether t falls inside [Start, End)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CustomerFeatureRow is one behavioral summary per customer over a window.
// A customer with no in-window sale yields no row at all; callers must treat
// a missing row as "no activity", never as zero value.
type CustomerFeatureRow struct {
	CustomerID      string
	FirstPurchaseAt time.Time
	LastPurchaseAt  time.Time
	RecencyDays     int
	Frequency       int // distinct sale invoices
	MonetaryTotal   decimal.Decimal
	ReturnCount     int
	ReturnValue     decimal.Decimal
	NetRevenue      decimal.Decimal
}

// accumulator keeps in-flight per-customer state during the fold
type accumulator struct {
	first, last time.Time
	invoices    map[string]struct{}
	monetary    decimal.Decimal
	returns     int
	returnValue decimal.Decimal
}

// Aggregate folds classified, non-admin, non-guest records with timestamps in
// w into one CustomerFeatureRow per customer. asOf anchors recency and must be
// explicit; wall-clock now is never consulted. Output is sorted by customer id
// so repeated runs are bitwise identical.
func Aggregate(records []classify.Record, w Window, asOf time.Time) ([]CustomerFeatureRow, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		return nil, perr.Configf("as_of must be explicit, zero value given")
	}
	if asOf.Before(w.End) {
		return nil, perr.Configf("as_of %s precedes window end %s", asOf, w.End)
	}

	accs := make(map[string]*accumulator)
	for _, r := range records {
		if r.IsAdmin || r.IsGuest || !w.Contains(r.Timestamp) {
			continue
		}
		a := accs[r.CustomerID]
		if a == nil {
			a = &accumulator{invoices: make(map[string]struct{}, 4)}
			accs[r.CustomerID] = a
		}
		if r.IsReturn {
			a.returns++
			// line amounts of returns are negative; store the magnitude
			a.returnValue = a.returnValue.Sub(r.LineAmount())
			continue
		}
		a.invoices[r.InvoiceID] = struct{}{}
		a.monetary = a.monetary.Add(r.LineAmount())
		if a.first.IsZero() || r.Timestamp.Before(a.first) {
			a.first = r.Timestamp
		}
		if r.Timestamp.After(a.last) {
			a.last = r.Timestamp
		}
	}

	rows := make([]CustomerFeatureRow, 0, len(accs))
	for id, a := range accs {
		if len(a.invoices) == 0 {
			// return-only activity: no purchase to anchor recency on
			continue
		}
		rows = append(rows, CustomerFeatureRow{
			CustomerID:      id,
			FirstPurchaseAt: a.first,
			LastPurchaseAt:  a.last,
			RecencyDays:     timeutil.DaysBetween(a.last, asOf),
			Frequency:       len(a.invoices),
			MonetaryTotal:   a.monetary,
			ReturnCount:     a.returns,
			ReturnValue:     a.returnValue,
			NetRevenue:      a.monetary.Sub(a.returnValue),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CustomerID < rows[j].CustomerID })
	return rows, nil
}
