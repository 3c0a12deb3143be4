// Package domain defines the types and interfaces for the pipeline service
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core/cohort"
	"ledgerlens/internal/core/features"
	"ledgerlens/internal/core/ledger"
	"ledgerlens/internal/core/split"
)

// RunParams select the input and the analysis boundaries for one run
// AsOf and the window bounds are always explicit; nothing is inferred
// from the wall clock
type RunParams struct {
	RunID     string // assigned when empty
	InputPath string
	AsOf      time.Time
	Window    features.Window

	// Split is optional; when nil no churn/CLV labels are produced
	Split *split.Config
}

// CountryRow is the per-country rollup over in-window sales
// Country holds the normalized grouping label
type CountryRow struct {
	Country   string
	Customers int
	Revenue   decimal.Decimal
}

// ResultBundle carries everything one run produced
type ResultBundle struct {
	RunID      string
	AsOf       time.Time
	Window     features.Window
	StartedAt  time.Time
	FinishedAt time.Time

	Features  []features.CustomerFeatureRow
	Scores    []features.RFMScore
	Split     *split.Result
	Retention cohort.Matrix
	Countries []CountryRow

	RecordsLoaded int
	Report        ledger.RejectionReport
}
