package ledger

import (
	"strings"
	"testing"
	"time"
)

const header = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"

func read(t *testing.T, csv string) ([]TransactionRecord, RejectionReport) {
	t.Helper()
	recs, rep, err := Read(strings.NewReader(csv), ReadOptions{HasHeader: true})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return recs, rep
}

func TestRead_ValidRow(t *testing.T) {
	recs, rep := read(t, header+
		"536365,85123A,WHITE HANGING HEART,6,12/1/2010 8:26,2.55,17850,United Kingdom\n")
	if len(recs) != 1 || rep.Count() != 0 {
		t.Fatalf("expected 1 record 0 rejects, got %d/%d", len(recs), rep.Count())
	}
	r := recs[0]
	if r.InvoiceID != "536365" || r.ProductCode != "85123A" || r.Quantity != 6 {
		t.Fatalf("unexpected record: %+v", r)
	}
	want := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", r.Timestamp, want)
	}
	if got := r.LineAmount().String(); got != "15.3" {
		t.Fatalf("line amount = %s, want 15.3", got)
	}
}

func TestRead_RejectReasons(t *testing.T) {
	recs, rep := read(t, header+
		"1,A,desc,notanint,12/1/2010 8:26,2.55,17850,UK\n"+
		"2,A,desc,1,garbage,2.55,17850,UK\n"+
		"3,A,desc,1,12/1/2010 8:26,abc,17850,UK\n"+
		"4,A,desc,1,12/1/2010 8:26,-1.00,17850,UK\n"+
		"5,A,desc,0,12/1/2010 8:26,2.55,17850,UK\n")
	if len(recs) != 0 {
		t.Fatalf("expected 0 records, got %d", len(recs))
	}
	by := rep.ByReason()
	want := map[RejectReason]int{
		ReasonMalformedQuantity:  1,
		ReasonMalformedTimestamp: 1,
		ReasonMalformedPrice:     1,
		ReasonNegativePrice:      1,
		ReasonZeroQuantity:       1,
	}
	for k, n := range want {
		if by[k] != n {
			t.Fatalf("reason %s = %d, want %d (all: %v)", k, by[k], n, by)
		}
	}
}

func TestRead_ZeroQuantityRejected(t *testing.T) {
	_, rep := read(t, header+"536365,85123A,X,0,12/1/2010 8:26,2.55,17850,UK\n")
	if rep.Count() != 1 || rep.Rejected[0].Reason != ReasonZeroQuantity {
		t.Fatalf("expected single zero_quantity reject, got %+v", rep.Rejected)
	}
}

func TestRead_ZeroPriceIsValid(t *testing.T) {
	recs, rep := read(t, header+"536365,POST,POSTAGE,1,12/1/2010 8:26,0,17850,UK\n")
	if len(recs) != 1 || rep.Count() != 0 {
		t.Fatalf("zero price must be valid for administrative items: %d/%d", len(recs), rep.Count())
	}
}

func TestRead_ExactDuplicatesCollapse(t *testing.T) {
	row := "536365,85123A,WHITE HANGING HEART,6,12/1/2010 8:26,2.55,17850,United Kingdom\n"
	recs, rep := read(t, header+row+row+row)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after collapse, got %d", len(recs))
	}
	if rep.DuplicatesCollapsed != 2 {
		t.Fatalf("collapsed = %d, want 2", rep.DuplicatesCollapsed)
	}
}

func TestRead_NearDuplicatesAreKept(t *testing.T) {
	recs, rep := read(t, header+
		"536365,85123A,WHITE HANGING HEART,6,12/1/2010 8:26,2.55,17850,United Kingdom\n"+
		"536365,85123A,white hanging heart,6,12/1/2010 8:26,2.55,17850,United Kingdom\n"+
		"536365,85123A,WHITE HANGING HEART ,6,12/1/2010 8:26,2.55,17850,United Kingdom\n")
	if len(recs) != 3 {
		t.Fatalf("case/whitespace variants must not merge, got %d records", len(recs))
	}
	if rep.DuplicatesCollapsed != 0 {
		t.Fatalf("collapsed = %d, want 0", rep.DuplicatesCollapsed)
	}
}

func TestRead_TrailingExtraColumnDistinguishesRows(t *testing.T) {
	// rows identical in the eight known columns but differing in a trailing
	// extra one are distinct, not duplicates
	recs, rep := read(t, header+
		"536365,85123A,WHITE HANGING HEART,6,12/1/2010 8:26,2.55,17850,United Kingdom,note-a\n"+
		"536365,85123A,WHITE HANGING HEART,6,12/1/2010 8:26,2.55,17850,United Kingdom,note-b\n")
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if rep.DuplicatesCollapsed != 0 {
		t.Fatalf("collapsed = %d, want 0", rep.DuplicatesCollapsed)
	}
}

func TestRead_ShortRow(t *testing.T) {
	_, rep := read(t, header+"536365,85123A,desc\n")
	if rep.Count() != 1 || rep.Rejected[0].Reason != ReasonShortRow {
		t.Fatalf("expected short_row reject, got %+v", rep.Rejected)
	}
}

func TestRead_GuestAndCancellation(t *testing.T) {
	recs, _ := read(t, header+
		"C536379,85123A,returned,-6,12/1/2010 9:41,2.55,,United Kingdom\n")
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if !r.IsGuest() || !r.IsReturn() || !r.IsCancellation() {
		t.Fatalf("flags wrong: guest=%v return=%v cancel=%v", r.IsGuest(), r.IsReturn(), r.IsCancellation())
	}
	if got := r.LineAmount().String(); got != "-15.3" {
		t.Fatalf("return line amount = %s, want -15.3", got)
	}
}
