// Package timeutil contains calendar helpers shared by the pipeline stages
package timeutil

import "time"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// MonthFloor truncates t to the first instant of its UTC month
func MonthFloor(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthOffset returns the number of whole calendar months from a to b,
// both taken at month granularity. Negative when b's month precedes a's.
func MonthOffset(a, b time.Time) int {
	am, bm := MonthFloor(a), MonthFloor(b)
	return (bm.Year()-am.Year())*12 + int(bm.Month()) - int(am.Month())
}

// MonthsBetween lists every month from start to end inclusive, at month floors
func MonthsBetween(start, end time.Time) []time.Time {
	cur := MonthFloor(start)
	last := MonthFloor(end)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// DaysBetween returns the floor day count from a to b (b-a), negative when b < a
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	days := int(d / (24 * time.Hour))
	// floor toward negative infinity for partial days
	if d%(24*time.Hour) != 0 && d < 0 {
		days--
	}
	return days
}

// FormatMonth renders a month floor as "2006-01"
func FormatMonth(t time.Time) string { return MonthFloor(t).Format("2006-01") }
