package features

import (
	"fmt"
	"sort"
)

// RFMScore carries the quintile score 1..5 per dimension plus derived labels
type RFMScore struct {
	CustomerID string
	R, F, M    int
	Segment    string // concatenated code, e.g. "555"
	Bucket     string // coarse named bucket for reporting
}

// ScoreRFM assigns rank-based quintiles over the given feature rows: low
// recency scores high, high frequency and monetary score high. Equal values
// are ranked with a customer-id tie break so repeated runs are identical.
// Rows must all come from the same window; mixing windows conflates cutoffs.
func ScoreRFM(rows []CustomerFeatureRow) []RFMScore {
	n := len(rows)
	if n == 0 {
		return nil
	}

	r := make(map[string]int, n)
	f := make(map[string]int, n)
	m := make(map[string]int, n)

	idx := make([]int, n)
	rank := func(less func(a, b CustomerFeatureRow) bool, assign func(id string, quintile int), invert bool) {
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(x, y int) bool {
			a, b := rows[idx[x]], rows[idx[y]]
			if less(a, b) != less(b, a) {
				return less(a, b)
			}
			return a.CustomerID < b.CustomerID
		})
		for pos, i := range idx {
			q := pos*5/n + 1
			if invert {
				q = 6 - q
			}
			assign(rows[i].CustomerID, q)
		}
	}

	// recency ascending with inversion: most recent buyers land in quintile 5
	rank(func(a, b CustomerFeatureRow) bool { return a.RecencyDays < b.RecencyDays },
		func(id string, q int) { r[id] = q }, true)
	rank(func(a, b CustomerFeatureRow) bool { return a.Frequency < b.Frequency },
		func(id string, q int) { f[id] = q }, false)
	rank(func(a, b CustomerFeatureRow) bool { return a.MonetaryTotal.LessThan(b.MonetaryTotal) },
		func(id string, q int) { m[id] = q }, false)

	out := make([]RFMScore, n)
	for i, row := range rows {
		s := RFMScore{
			CustomerID: row.CustomerID,
			R:          r[row.CustomerID],
			F:          f[row.CustomerID],
			M:          m[row.CustomerID],
		}
		s.Segment = fmt.Sprintf("%d%d%d", s.R, s.F, s.M)
		s.Bucket = bucketOf(s.R, s.F, s.M)
		out[i] = s
	}
	return out
}

// bucketOf maps a quintile triple onto a coarse marketing bucket
func bucketOf(r, f, m int) string {
	switch {
	case r >= 4 && f >= 4 && m >= 4:
		return "champion"
	case r >= 4 && f >= 3:
		return "loyal"
	case r >= 4:
		return "recent"
	case r <= 2 && f >= 4:
		return "at_risk"
	case r <= 2 && f <= 2:
		return "hibernating"
	default:
		return "steady"
	}
}
