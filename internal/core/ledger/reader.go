package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	perr "ledgerlens/internal/platform/errors"

	"github.com/shopspring/decimal"
)

// column order of the raw ledger export
const (
	colInvoice = iota
	colProduct
	colDescription
	colQuantity
	colTimestamp
	colUnitPrice
	colCustomer
	colCountry
	columnCount
)

// timestamp layouts accepted in the raw export, tried in order
var tsLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ReadOptions controls the CSV reader behavior
type ReadOptions struct {
	Comma     rune // field delimiter, ',' when zero
	HasHeader bool // skip the first row
}

// Read consumes a raw delimited ledger and returns validated records plus a
// rejection report. Malformed rows land in the report with a reason, exact
// duplicate rows are collapsed and counted, near-duplicates (case or whitespace
// variants) are kept as distinct records on purpose.
func Read(r io.Reader, opts ReadOptions) ([]TransactionRecord, RejectionReport, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1 // row width is validated here, not by the csv layer

	var (
		records []TransactionRecord
		report  RejectionReport
		seen    = make(map[string]struct{})
		line    = 0
	)

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, RejectionReport{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "csv read at line %d", line+1)
		}
		line++
		if opts.HasHeader && line == 1 {
			continue
		}

		if len(fields) < columnCount {
			report.Rejected = append(report.Rejected, RejectedRow{
				Line: line, Fields: fields, Reason: ReasonShortRow,
				Detail: "expected " + strconv.Itoa(columnCount) + " columns",
			})
			continue
		}

		// exact identity over every field, trailing extras included; trimming
		// or case folding here would merge near-duplicates, which is a
		// correctness bug
		key := strings.Join(fields, "\x1f")
		if _, dup := seen[key]; dup {
			report.DuplicatesCollapsed++
			continue
		}
		seen[key] = struct{}{}

		rec, reason, detail := parseRow(fields)
		if reason != "" {
			report.Rejected = append(report.Rejected, RejectedRow{
				Line: line, Fields: fields, Reason: reason, Detail: detail,
			})
			continue
		}
		records = append(records, rec)
	}

	return records, report, nil
}

// parseRow converts one raw row; a non-empty reason means the row is rejected
func parseRow(fields []string) (TransactionRecord, RejectReason, string) {
	ts, ok := parseTimestamp(strings.TrimSpace(fields[colTimestamp]))
	if !ok {
		return TransactionRecord{}, ReasonMalformedTimestamp, fields[colTimestamp]
	}

	qty, err := strconv.Atoi(strings.TrimSpace(fields[colQuantity]))
	if err != nil {
		return TransactionRecord{}, ReasonMalformedQuantity, fields[colQuantity]
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[colUnitPrice]))
	if err != nil {
		return TransactionRecord{}, ReasonMalformedPrice, fields[colUnitPrice]
	}

	if price.IsNegative() {
		return TransactionRecord{}, ReasonNegativePrice, price.String()
	}
	if qty == 0 {
		return TransactionRecord{}, ReasonZeroQuantity, ""
	}

	return TransactionRecord{
		InvoiceID:   strings.TrimSpace(fields[colInvoice]),
		ProductCode: strings.TrimSpace(fields[colProduct]),
		Description: fields[colDescription],
		Quantity:    qty,
		UnitPrice:   price,
		CustomerID:  strings.TrimSpace(fields[colCustomer]),
		Country:     strings.TrimSpace(fields[colCountry]),
		Timestamp:   ts,
	}, "", ""
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
