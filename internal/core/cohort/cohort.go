// Package cohort buckets customers by first-purchase month and computes
// month-offset retention over the whole ledger
package cohort

import (
	"sort"
	"time"

	"ledgerlens/internal/core/classify"
	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/timeutil"
)

// Row is one cohort with distinct active-customer counts per month offset.
// Active[0] is the cohort size by construction.
type Row struct {
	Month  time.Time // month floor of the cohort's first purchases
	Size   int
	Active []int // distinct customers with >=1 sale at each offset
}

// RetentionAt returns Active[offset] / Size, or 0 when the offset is past the
// observed range
func (r Row) RetentionAt(offset int) float64 {
	if offset < 0 || offset >= len(r.Active) || r.Size == 0 {
		return 0
	}
	return float64(r.Active[offset]) / float64(r.Size)
}

// Matrix is the cohort-by-offset retention table, rows sorted by month
type Matrix struct {
	Cohorts []Row
}

// Retention assigns every identified customer a cohort month from their
// earliest sale across the entire ledger, then counts distinct active
// customers per (cohort, offset). Cohort assignment ignores any window
// filtering on purpose: a cohort is immutable once observed.
func Retention(records []classify.Record) (Matrix, error) {
	cohortOf := make(map[string]time.Time)
	for _, r := range records {
		if r.IsAdmin || r.IsGuest || r.IsReturn {
			continue
		}
		m := timeutil.MonthFloor(r.Timestamp)
		if cur, ok := cohortOf[r.CustomerID]; !ok || m.Before(cur) {
			cohortOf[r.CustomerID] = m
		}
	}
	if len(cohortOf) == 0 {
		return Matrix{}, nil
	}

	// distinct customers per (cohort month, offset)
	type cell map[string]struct{}
	active := make(map[time.Time]map[int]cell)
	maxOffset := make(map[time.Time]int)
	for _, r := range records {
		if r.IsAdmin || r.IsGuest || r.IsReturn {
			continue
		}
		cm := cohortOf[r.CustomerID]
		off := timeutil.MonthOffset(cm, r.Timestamp)
		if off < 0 {
			return Matrix{}, perr.Invariantf(
				"sale at %s predates cohort month %s for customer %s",
				r.Timestamp, timeutil.FormatMonth(cm), r.CustomerID)
		}
		byOff := active[cm]
		if byOff == nil {
			byOff = make(map[int]cell)
			active[cm] = byOff
		}
		c := byOff[off]
		if c == nil {
			c = make(cell)
			byOff[off] = c
		}
		c[r.CustomerID] = struct{}{}
		if off > maxOffset[cm] {
			maxOffset[cm] = off
		}
	}

	months := make([]time.Time, 0, len(active))
	for m := range active {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]Row, 0, len(months))
	for _, m := range months {
		row := Row{Month: m, Active: make([]int, maxOffset[m]+1)}
		for off, customers := range active[m] {
			row.Active[off] = len(customers)
		}
		row.Size = row.Active[0]
		if row.Size == 0 {
			// offset 0 holds every first purchase by definition
			return Matrix{}, perr.Invariantf("cohort %s has zero size at offset 0", timeutil.FormatMonth(m))
		}
		rows = append(rows, row)
	}
	return Matrix{Cohorts: rows}, nil
}
