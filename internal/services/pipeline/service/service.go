// Package service orchestrates one analysis run end to end
package service

import (
	"context"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"ledgerlens/internal/core/classify"
	"ledgerlens/internal/core/cohort"
	"ledgerlens/internal/core/features"
	"ledgerlens/internal/core/labels"
	"ledgerlens/internal/core/ledger"
	"ledgerlens/internal/core/split"
	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/logger"
	"ledgerlens/internal/services/pipeline/domain"
)

// Config for the pipeline service
type Config struct {
	Comma     rune
	HasHeader bool
	Progress  bool
}

// Service implements domain.RunnerPort
type Service struct {
	cls   *classify.Classifier
	norm  *labels.Normalizer
	sinks []domain.SinkPort
	cfg   Config
	log   logger.Logger
}

// New constructs the pipeline service
func New(cls *classify.Classifier, sinks []domain.SinkPort, cfg Config, log logger.Logger) *Service {
	return &Service{
		cls:   cls,
		norm:  labels.New(),
		sinks: sinks,
		cfg:   cfg,
		log:   log,
	}
}

// Run loads the ledger, classifies, aggregates, splits, and computes retention,
// then hands the bundle to every configured sink. Configuration errors surface
// before any aggregation touches data
func (s *Service) Run(ctx context.Context, p domain.RunParams) (*domain.ResultBundle, error) {
	if err := p.Window.Validate(); err != nil {
		return nil, err
	}
	if p.AsOf.IsZero() {
		return nil, perr.Configf("as_of must be explicit, zero value given")
	}
	if p.Split != nil {
		if err := p.Split.Validate(); err != nil {
			return nil, err
		}
	}

	runID := p.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := s.log.With().Str("run_id", runID).Logger()
	started := time.Now().UTC()

	records, report, err := s.load(p.InputPath)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("records", len(records)).
		Int("rejected", report.Count()).
		Int("duplicates_collapsed", report.DuplicatesCollapsed).
		Msg("ledger loaded")

	classified := s.cls.ClassifyAll(records)

	rows, err := features.Aggregate(classified, p.Window, p.AsOf)
	if err != nil {
		return nil, err
	}
	scores := features.ScoreRFM(rows)

	var splitRes *split.Result
	if p.Split != nil {
		res, err := split.Split(classified, *p.Split)
		if err != nil {
			return nil, err
		}
		splitRes = &res
	}

	retention, err := cohort.Retention(classified)
	if err != nil {
		return nil, err
	}

	bundle := &domain.ResultBundle{
		RunID:         runID,
		AsOf:          p.AsOf,
		Window:        p.Window,
		StartedAt:     started,
		FinishedAt:    time.Now().UTC(),
		Features:      rows,
		Scores:        scores,
		Split:         splitRes,
		Retention:     retention,
		Countries:     s.countryRollup(classified, p.Window),
		RecordsLoaded: len(records),
		Report:        report,
	}

	for _, sink := range s.sinks {
		if err := sink.WriteBundle(ctx, bundle); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "sink write failed for run %s", runID)
		}
	}

	log.Info().
		Int("customers", len(rows)).
		Int("cohorts", len(retention.Cohorts)).
		Dur("elapsed", bundle.FinishedAt.Sub(started)).
		Msg("run complete")
	return bundle, nil
}

// load opens the ledger file and reads it with an optional progress bar
func (s *Service) load(path string) ([]ledger.TransactionRecord, ledger.RejectionReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ledger.RejectionReport{}, perr.Wrapf(err, perr.ErrorCodeConfig, "cannot open ledger %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.log.Error().Err(cerr).Msg("failed to close ledger file")
		}
	}()

	var r io.Reader = f
	if s.cfg.Progress {
		if st, err := f.Stat(); err == nil {
			bar := progressbar.DefaultBytes(st.Size(), "reading ledger")
			r = io.TeeReader(f, bar)
		}
	}

	return ledger.Read(r, ledger.ReadOptions{Comma: s.cfg.Comma, HasHeader: s.cfg.HasHeader})
}

// countryRollup groups in-window sales by normalized country label
// guests and administrative lines are excluded like the feature fold does
func (s *Service) countryRollup(records []classify.Record, w features.Window) []domain.CountryRow {
	type agg struct {
		customers map[string]struct{}
		revenue   decimal.Decimal
	}
	byCountry := make(map[string]*agg)

	for _, r := range records {
		if r.IsGuest || r.IsAdmin || r.IsReturn {
			continue
		}
		if !w.Contains(r.Timestamp) {
			continue
		}
		key := s.norm.Normalize(r.Country)
		a := byCountry[key]
		if a == nil {
			a = &agg{customers: make(map[string]struct{}), revenue: decimal.Zero}
			byCountry[key] = a
		}
		a.customers[r.CustomerID] = struct{}{}
		a.revenue = a.revenue.Add(r.LineAmount())
	}

	out := make([]domain.CountryRow, 0, len(byCountry))
	for c, a := range byCountry {
		out = append(out, domain.CountryRow{
			Country:   c,
			Customers: len(a.customers),
			Revenue:   a.revenue,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}
