package features

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"ledgerlens/internal/core/classify"
	"ledgerlens/internal/core/ledger"
	perr "ledgerlens/internal/platform/errors"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sale(customer, invoice string, ts time.Time, amount int64) classify.Record {
	return classify.Record{
		TransactionRecord: ledger.TransactionRecord{
			InvoiceID:   invoice,
			ProductCode: "85123A",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(amount),
			CustomerID:  customer,
			Timestamp:   ts,
		},
	}
}

func ret(customer, invoice string, ts time.Time, amount int64) classify.Record {
	r := sale(customer, invoice, ts, amount)
	r.Quantity = -1
	r.IsReturn = true
	return r
}

func TestAggregate_SpecScenario(t *testing.T) {
	// three sales for one customer, third falls outside the window
	recs := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5), 10),
		sale("C1", "I2", day(2011, 1, 20), 15),
		sale("C1", "I3", day(2011, 2, 2), 5),
	}
	w := Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}
	rows, err := Aggregate(recs, w, day(2011, 2, 1))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Frequency != 2 {
		t.Fatalf("frequency = %d, want 2", r.Frequency)
	}
	if r.MonetaryTotal.String() != "25" {
		t.Fatalf("monetary = %s, want 25", r.MonetaryTotal)
	}
	if r.RecencyDays != 12 {
		t.Fatalf("recency = %d, want 12", r.RecencyDays)
	}
	if !r.FirstPurchaseAt.Equal(day(2011, 1, 5)) || !r.LastPurchaseAt.Equal(day(2011, 1, 20)) {
		t.Fatalf("purchase bounds wrong: %v .. %v", r.FirstPurchaseAt, r.LastPurchaseAt)
	}
}

func TestAggregate_Conservation(t *testing.T) {
	recs := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5), 100),
		ret("C1", "R1", day(2011, 1, 10), 30),
		sale("C2", "I2", day(2011, 1, 6), 50),
	}
	rows, err := Aggregate(recs, Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}, day(2011, 2, 1))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	for _, r := range rows {
		if !r.MonetaryTotal.Sub(r.ReturnValue).Equal(r.NetRevenue) {
			t.Fatalf("conservation violated for %s: %s - %s != %s",
				r.CustomerID, r.MonetaryTotal, r.ReturnValue, r.NetRevenue)
		}
	}
	if rows[0].ReturnCount != 1 || rows[0].ReturnValue.String() != "30" {
		t.Fatalf("return aggregates wrong: %+v", rows[0])
	}
	if rows[0].NetRevenue.String() != "70" {
		t.Fatalf("net revenue = %s, want 70", rows[0].NetRevenue)
	}
}

func TestAggregate_OrderIndependence(t *testing.T) {
	base := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5), 10),
		sale("C1", "I2", day(2011, 1, 20), 15),
		sale("C2", "I3", day(2011, 1, 7), 40),
		ret("C2", "R1", day(2011, 1, 9), 5),
		sale("C3", "I4", day(2011, 1, 12), 7),
	}
	w := Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}
	want, err := Aggregate(base, w, day(2011, 2, 1))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]classify.Record(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Aggregate(shuffled, w, day(2011, 2, 1))
		if err != nil {
			t.Fatalf("Aggregate shuffled: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed aggregates:\n got %+v\nwant %+v", i, got, want)
		}
	}
}

func TestAggregate_Determinism(t *testing.T) {
	recs := []classify.Record{
		sale("C9", "I1", day(2011, 3, 5), 10),
		sale("C2", "I2", day(2011, 3, 6), 20),
		sale("C5", "I3", day(2011, 3, 7), 30),
	}
	w := Window{Start: day(2011, 3, 1), End: day(2011, 4, 1)}
	a, _ := Aggregate(recs, w, day(2011, 4, 1))
	b, _ := Aggregate(recs, w, day(2011, 4, 1))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("re-running the aggregator changed its output")
	}
	// sorted by customer id
	if a[0].CustomerID != "C2" || a[1].CustomerID != "C5" || a[2].CustomerID != "C9" {
		t.Fatalf("rows not sorted: %+v", a)
	}
}

func TestAggregate_SkipsAdminGuestAndOutOfWindow(t *testing.T) {
	admin := sale("C1", "I9", day(2011, 1, 8), 99)
	admin.IsAdmin = true
	guest := sale("", "I8", day(2011, 1, 8), 99)
	guest.IsGuest = true
	recs := []classify.Record{
		sale("C1", "I1", day(2011, 1, 5), 10),
		admin,
		guest,
		sale("C1", "I7", day(2010, 12, 31), 10), // before window
	}
	rows, err := Aggregate(recs, Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}, day(2011, 2, 1))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 1 || rows[0].MonetaryTotal.String() != "10" {
		t.Fatalf("filters not applied: %+v", rows)
	}
}

func TestAggregate_ReturnOnlyCustomerYieldsNoRow(t *testing.T) {
	recs := []classify.Record{ret("C1", "R1", day(2011, 1, 5), 10)}
	rows, err := Aggregate(recs, Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}, day(2011, 2, 1))
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("return-only customer must not produce a row: %+v", rows)
	}
}

func TestAggregate_ConfigErrors(t *testing.T) {
	recs := []classify.Record{sale("C1", "I1", day(2011, 1, 5), 10)}

	_, err := Aggregate(recs, Window{Start: day(2011, 2, 1), End: day(2011, 1, 1)}, day(2011, 2, 1))
	if !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("inverted window: expected config error, got %v", err)
	}

	_, err = Aggregate(recs, Window{Start: day(2011, 1, 1), End: day(2011, 1, 1)}, day(2011, 1, 1))
	if !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("empty window: expected config error, got %v", err)
	}

	_, err = Aggregate(recs, Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}, time.Time{})
	if !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("zero as_of: expected config error, got %v", err)
	}

	_, err = Aggregate(recs, Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}, day(2011, 1, 15))
	if !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("as_of before window end: expected config error, got %v", err)
	}
}

func TestAggregate_SharedTimestampTieBreakIrrelevant(t *testing.T) {
	ts := day(2011, 1, 10)
	a := []classify.Record{
		sale("C1", "I1", ts, 10),
		sale("C1", "I2", ts, 20),
	}
	b := []classify.Record{a[1], a[0]}
	w := Window{Start: day(2011, 1, 1), End: day(2011, 2, 1)}
	ra, _ := Aggregate(a, w, day(2011, 2, 1))
	rb, _ := Aggregate(b, w, day(2011, 2, 1))
	if !reflect.DeepEqual(ra, rb) {
		t.Fatal("identical-timestamp ordering changed aggregates")
	}
	if ra[0].Frequency != 2 || ra[0].MonetaryTotal.String() != "30" {
		t.Fatalf("unexpected aggregates: %+v", ra[0])
	}
}
