package cohort

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"ledgerlens/internal/core/classify"
	"ledgerlens/internal/core/ledger"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sale(customer, invoice string, ts time.Time) classify.Record {
	return classify.Record{
		TransactionRecord: ledger.TransactionRecord{
			InvoiceID:   invoice,
			ProductCode: "85123A",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(10),
			CustomerID:  customer,
			Timestamp:   ts,
		},
	}
}

func TestRetention_SpecScenario(t *testing.T) {
	// two customers share cohort 2011-01; only one is active in February
	recs := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5)),
		sale("C2", "I2", day(2011, 1, 20)),
		sale("C1", "I3", day(2011, 2, 10)),
	}
	m, err := Retention(recs)
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	if len(m.Cohorts) != 1 {
		t.Fatalf("expected 1 cohort, got %d", len(m.Cohorts))
	}
	row := m.Cohorts[0]
	if !row.Month.Equal(day(2011, 1, 1)) || row.Size != 2 {
		t.Fatalf("cohort wrong: %+v", row)
	}
	if got := row.RetentionAt(0); got != 1.0 {
		t.Fatalf("offset 0 retention = %v, want exactly 1.0", got)
	}
	if got := row.RetentionAt(1); got != 0.5 {
		t.Fatalf("offset 1 retention = %v, want 0.5", got)
	}
}

func TestRetention_OffsetZeroAlwaysOne(t *testing.T) {
	recs := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5)),
		sale("C2", "I2", day(2011, 2, 2)),
		sale("C3", "I3", day(2011, 2, 20)),
		sale("C2", "I4", day(2011, 4, 1)),
	}
	m, err := Retention(recs)
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	for _, row := range m.Cohorts {
		if got := row.RetentionAt(0); got != 1.0 {
			t.Fatalf("cohort %v offset 0 = %v, want 1.0", row.Month, got)
		}
		for off := range row.Active {
			if r := row.RetentionAt(off); r > 1.0 {
				t.Fatalf("cohort %v offset %d ratio %v exceeds 1.0", row.Month, off, r)
			}
		}
	}
}

func TestRetention_CohortImmutableAcrossLaterActivity(t *testing.T) {
	// C1's cohort is January even though most purchases come later
	recs := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5)),
		sale("C1", "I2", day(2011, 6, 5)),
		sale("C1", "I3", day(2011, 9, 5)),
	}
	m, err := Retention(recs)
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	row := m.Cohorts[0]
	if !row.Month.Equal(day(2011, 1, 1)) {
		t.Fatalf("cohort month drifted: %v", row.Month)
	}
	if len(row.Active) != 9 || row.Active[5] != 1 || row.Active[8] != 1 {
		t.Fatalf("offsets wrong: %+v", row.Active)
	}
	// months without purchases count zero active customers
	if row.Active[2] != 0 {
		t.Fatalf("gap month should be zero: %+v", row.Active)
	}
}

func TestRetention_IgnoresReturnsGuestsAdmin(t *testing.T) {
	admin := sale("C1", "I9", day(2010, 11, 1))
	admin.IsAdmin = true
	guest := sale("", "I8", day(2010, 11, 1))
	guest.IsGuest = true
	ret := sale("C1", "R1", day(2010, 12, 1))
	ret.IsReturn = true

	recs := []classify.Record{admin, guest, ret, sale("C1", "I1", day(2011, 1, 5))}
	m, err := Retention(recs)
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	if len(m.Cohorts) != 1 || !m.Cohorts[0].Month.Equal(day(2011, 1, 1)) {
		t.Fatalf("non-sale records must not open cohorts: %+v", m.Cohorts)
	}
}

func TestRetention_OrderIndependent(t *testing.T) {
	base := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5)),
		sale("C2", "I2", day(2011, 1, 9)),
		sale("C1", "I3", day(2011, 3, 5)),
		sale("C3", "I4", day(2011, 2, 5)),
		sale("C3", "I5", day(2011, 5, 5)),
	}
	want, err := Retention(base)
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]classify.Record(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Retention(shuffled)
		if err != nil {
			t.Fatalf("Retention shuffled: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed the matrix", i)
		}
	}
}

func TestRetention_Empty(t *testing.T) {
	m, err := Retention(nil)
	if err != nil {
		t.Fatalf("Retention: %v", err)
	}
	if len(m.Cohorts) != 0 {
		t.Fatalf("expected empty matrix, got %+v", m)
	}
}
