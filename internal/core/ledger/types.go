// Package ledger parses and validates raw e-commerce transaction logs into a
// canonical typed representation
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one validated ledger line item.
// All monetary math uses decimal; float64 never touches money.
type TransactionRecord struct {
	InvoiceID   string
	ProductCode string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	CustomerID  string // empty means a guest/unidentified transaction
	Country     string
	Timestamp   time.Time
}

// LineAmount is quantity times unit price, always recomputed, never read from input
func (r TransactionRecord) LineAmount() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// IsReturn reports whether the line item represents returned units
func (r TransactionRecord) IsReturn() bool { return r.Quantity < 0 }

// IsGuest reports whether the line item lacks a customer identifier
func (r TransactionRecord) IsGuest() bool { return r.CustomerID == "" }

// IsCancellation reports whether the invoice carries the cancellation prefix.
// Quantity sign stays the source of truth for return semantics; this flag is
// informational only.
func (r TransactionRecord) IsCancellation() bool {
	return strings.HasPrefix(r.InvoiceID, "C")
}

// RejectReason classifies why a raw row was excluded from the validated set
type RejectReason string

const (
	// ReasonMalformedTimestamp marks an unparseable invoice timestamp
	ReasonMalformedTimestamp RejectReason = "malformed_timestamp"
	// ReasonMalformedQuantity marks a non-integer quantity field
	ReasonMalformedQuantity RejectReason = "malformed_quantity"
	// ReasonMalformedPrice marks a non-numeric unit price field
	ReasonMalformedPrice RejectReason = "malformed_price"
	// ReasonNegativePrice marks a unit price below zero
	ReasonNegativePrice RejectReason = "negative_price"
	// ReasonZeroQuantity marks a zero quantity row that would contribute nothing
	ReasonZeroQuantity RejectReason = "zero_quantity"
	// ReasonShortRow marks a row with fewer columns than the ledger layout
	ReasonShortRow RejectReason = "short_row"
)

// RejectedRow is one excluded input row with its reason; never silently dropped
type RejectedRow struct {
	Line   int // 1-based physical line in the input, header included
	Fields []string
	Reason RejectReason
	Detail string
}

// RejectionReport summarizes everything the loader excluded or collapsed
type RejectionReport struct {
	Rejected            []RejectedRow
	DuplicatesCollapsed int
}

// Count returns the number of rejected rows
func (r RejectionReport) Count() int { return len(r.Rejected) }

// ByReason tallies rejected rows per reason
func (r RejectionReport) ByReason() map[RejectReason]int {
	out := make(map[RejectReason]int, 4)
	for _, x := range r.Rejected {
		out[x.Reason]++
	}
	return out
}
