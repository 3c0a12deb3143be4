// Package service fans a finished bundle out to the configured sinks
package service

import (
	"context"
	"math/rand"
	"time"

	"ledgerlens/internal/modkit/repokit"
	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/logger"
	"ledgerlens/internal/services/export/repo"
	pipedom "ledgerlens/internal/services/pipeline/domain"
)

// Config selects which sinks receive each bundle
type Config struct {
	CSVDir     string // empty disables the file sink
	MaxRetries int    // postgres write attempts; <=0 means no retry
	RetryBase  time.Duration
}

// Service implements pipeline/domain.SinkPort
type Service struct {
	tx  repokit.TxRunner // nil disables postgres
	pgb repokit.Binder[repo.Storage]
	ch  *repo.CHWriter // nil disables clickhouse
	csv *repo.CSVWriter
	cfg Config
	log logger.Logger
}

// New constructs the export service; nil tx or ch simply disables that sink
func New(tx repokit.TxRunner, ch *repo.CHWriter, cfg Config, log logger.Logger) *Service {
	s := &Service{
		tx:  tx,
		pgb: repo.NewPG(),
		ch:  ch,
		cfg: cfg,
		log: log,
	}
	if cfg.CSVDir != "" {
		s.csv = repo.NewCSV(cfg.CSVDir)
	}
	return s
}

// WriteBundle writes the bundle to every enabled sink
// postgres tables are written inside one transaction so a run is all or nothing
func (s *Service) WriteBundle(ctx context.Context, b *pipedom.ResultBundle) error {
	if s.csv != nil {
		if err := s.csv.WriteBundle(b); err != nil {
			return err
		}
		s.log.Info().Str("run_id", b.RunID).Msg("csv export written")
	}

	if s.tx != nil {
		if err := s.writePGWithRetry(ctx, b); err != nil {
			return err
		}
		s.log.Info().Str("run_id", b.RunID).Msg("postgres export written")
	}

	if s.ch != nil {
		if err := s.ch.WriteFeatures(ctx, b); err != nil {
			return err
		}
		s.log.Info().Str("run_id", b.RunID).Msg("clickhouse export written")
	}

	return nil
}

// writePGWithRetry retries the transactional write on transient database
// errors such as serialization failures and deadlocks
func (s *Service) writePGWithRetry(ctx context.Context, b *pipedom.ResultBundle) error {
	attempts := max(s.cfg.MaxRetries, 1)
	base := s.cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		err := s.writePG(ctx, b)
		if err == nil {
			return nil
		}
		last = err

		if !perr.Retryable(err) {
			return last
		}
		if i == attempts-1 {
			break
		}

		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)))
		s.log.Warn().Err(err).Str("run_id", b.RunID).Dur("backoff", j).Msg("postgres export retry")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(j):
		}
	}
	return last
}

func (s *Service) writePG(ctx context.Context, b *pipedom.ResultBundle) error {
	return s.tx.Tx(ctx, func(q repokit.Queryer) error {
		st := s.pgb.Bind(q)
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := st.InsertRun(ctx, b); err != nil {
			return err
		}
		if err := st.InsertFeatures(ctx, b); err != nil {
			return err
		}
		if err := st.InsertChurnLabels(ctx, b); err != nil {
			return err
		}
		if err := st.InsertRetention(ctx, b); err != nil {
			return err
		}
		return st.InsertCountries(ctx, b)
	})
}
