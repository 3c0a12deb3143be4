// Package split partitions a classified ledger at a cutoff instant into
// leakage-free history features and outcome labels for supervised modeling
package split

import (
	"time"

	"ledgerlens/internal/core/classify"
	"ledgerlens/internal/core/features"
	perr "ledgerlens/internal/platform/errors"

	"github.com/shopspring/decimal"
)

// Config describes one temporal split. The history window ends exactly at
// Cutoff and the outcome window begins there.
type Config struct {
	Cutoff      time.Time
	HistorySpan time.Duration
	OutcomeSpan time.Duration
}

// Validate rejects unusable split parameters before anything is aggregated
func (c Config) Validate() error {
	if c.Cutoff.IsZero() {
		return perr.Configf("split cutoff must be explicit, zero value given")
	}
	if c.HistorySpan <= 0 {
		return perr.Configf("history span must be positive, got %s", c.HistorySpan)
	}
	if c.OutcomeSpan <= 0 {
		return perr.Configf("outcome span must be positive, got %s", c.OutcomeSpan)
	}
	return nil
}

// Label is the supervised target for one customer: churned means at least one
// history-window sale and none in the outcome window
type Label struct {
	CustomerID     string
	Churned        bool
	OutcomeRevenue decimal.Decimal
}

// Result bundles the feature/label pair produced at a cutoff
type Result struct {
	HistoryWindow features.Window
	OutcomeWindow features.Window
	History       []features.CustomerFeatureRow
	Labels        []Label
}

// Split computes history features and outcome labels at cfg.Cutoff. The input
// is partitioned into two disjoint record sets before any aggregation runs, and
// each side goes through its own pure Aggregate call; no accumulator ever sees
// both windows. Customers absent from history are not labeled, they are not yet
// customers as of the cutoff.
func Split(records []classify.Record, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	// Cutting outside the ledger's observed range makes one side of the split
	// vacuously empty, which labels every history customer churned. That is a
	// misconfigured cutoff, not a finding about the customers.
	if len(records) > 0 {
		minTS, maxTS := records[0].Timestamp, records[0].Timestamp
		for _, r := range records[1:] {
			if r.Timestamp.Before(minTS) {
				minTS = r.Timestamp
			}
			if r.Timestamp.After(maxTS) {
				maxTS = r.Timestamp
			}
		}
		if cfg.Cutoff.Before(minTS) || cfg.Cutoff.After(maxTS) {
			return Result{}, perr.Configf("cutoff %s outside ledger data range [%s, %s]",
				cfg.Cutoff.Format(time.RFC3339), minTS.Format(time.RFC3339), maxTS.Format(time.RFC3339))
		}
	}

	hw := features.Window{Start: cfg.Cutoff.Add(-cfg.HistorySpan), End: cfg.Cutoff}
	ow := features.Window{Start: cfg.Cutoff, End: cfg.Cutoff.Add(cfg.OutcomeSpan)}

	var history, outcome []classify.Record
	for _, r := range records {
		switch {
		case hw.Contains(r.Timestamp):
			history = append(history, r)
		case ow.Contains(r.Timestamp):
			outcome = append(outcome, r)
		}
	}

	// partitioning happened above; a history record at or past the cutoff
	// here is a code defect, not bad input
	for _, r := range history {
		if !r.Timestamp.Before(cfg.Cutoff) {
			return Result{}, perr.Invariantf("history partition holds record at %s >= cutoff %s",
				r.Timestamp, cfg.Cutoff)
		}
	}

	historyRows, err := features.Aggregate(history, hw, cfg.Cutoff)
	if err != nil {
		return Result{}, err
	}
	outcomeRows, err := features.Aggregate(outcome, ow, ow.End)
	if err != nil {
		return Result{}, err
	}

	outcomeByID := make(map[string]features.CustomerFeatureRow, len(outcomeRows))
	for _, r := range outcomeRows {
		outcomeByID[r.CustomerID] = r
	}

	labels := make([]Label, 0, len(historyRows))
	for _, h := range historyRows {
		o, active := outcomeByID[h.CustomerID]
		l := Label{CustomerID: h.CustomerID, Churned: !active}
		if active {
			l.OutcomeRevenue = o.MonetaryTotal
		}
		labels = append(labels, l)
	}

	return Result{
		HistoryWindow: hw,
		OutcomeWindow: ow,
		History:       historyRows,
		Labels:        labels,
	}, nil
}
