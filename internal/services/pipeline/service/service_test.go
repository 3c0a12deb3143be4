package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgerlens/internal/core/classify"
	"ledgerlens/internal/core/features"
	"ledgerlens/internal/core/split"
	perr "ledgerlens/internal/platform/errors"
	"ledgerlens/internal/platform/logger"
	"ledgerlens/internal/services/pipeline/domain"
)

const ledgerHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"

func writeLedger(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(ledgerHeader+rows), 0o600))
	return path
}

func newService(t *testing.T, sinks ...domain.SinkPort) *Service {
	t.Helper()
	cls, err := classify.New(classify.Config{
		AdminCodePatterns: []string{"POST", "DOT", "BANK CHARGES"},
	})
	require.NoError(t, err)
	return New(cls, sinks, Config{HasHeader: true}, *logger.Named("pipeline-test"))
}

// recordingSink captures the bundle it was handed
type recordingSink struct {
	bundles []*domain.ResultBundle
	err     error
}

func (s *recordingSink) WriteBundle(_ context.Context, b *domain.ResultBundle) error {
	if s.err != nil {
		return s.err
	}
	s.bundles = append(s.bundles, b)
	return nil
}

func window(t *testing.T) features.Window {
	t.Helper()
	return features.Window{
		Start: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunProducesBundle(t *testing.T) {
	path := writeLedger(t,
		"536365,85123A,WHITE HANGING HEART,6,1/4/2011 8:26,2.55,17850,United Kingdom\n"+
			"536366,71053,WHITE METAL LANTERN,4,2/10/2011 9:01,3.39,17850,United Kingdom\n"+
			"536367,84406B,CREAM CUPID,8,3/1/2011 10:00,2.75,13047,EIRE\n"+
			"536368,POST,POSTAGE,1,3/1/2011 10:05,18.00,13047,EIRE\n")

	sink := &recordingSink{}
	svc := newService(t, sink)

	b, err := svc.Run(context.Background(), domain.RunParams{
		InputPath: path,
		AsOf:      time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
		Window:    window(t),
	})
	require.NoError(t, err)

	require.NotEmpty(t, b.RunID, "run id must be assigned")
	require.Equal(t, 4, b.RecordsLoaded)
	require.Len(t, b.Features, 2)
	require.Len(t, b.Scores, 2)
	require.Nil(t, b.Split)
	require.NotEmpty(t, b.Retention.Cohorts)

	// sink got the same bundle exactly once
	require.Len(t, sink.bundles, 1)
	require.Same(t, b, sink.bundles[0])

	// postage line must not count toward the rollup
	require.Len(t, b.Countries, 2)
	require.Equal(t, "eire", b.Countries[0].Country)
	require.Equal(t, 1, b.Countries[0].Customers)
	require.Equal(t, "22", b.Countries[0].Revenue.String())
	require.Equal(t, "united kingdom", b.Countries[1].Country)
}

func TestRunKeepsExplicitRunID(t *testing.T) {
	path := writeLedger(t, "536365,85123A,ITEM,1,1/4/2011 8:26,1.00,17850,United Kingdom\n")
	svc := newService(t)

	b, err := svc.Run(context.Background(), domain.RunParams{
		RunID:     "run-fixed",
		InputPath: path,
		AsOf:      time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
		Window:    window(t),
	})
	require.NoError(t, err)
	require.Equal(t, "run-fixed", b.RunID)
}

func TestRunWithSplit(t *testing.T) {
	path := writeLedger(t,
		"536365,85123A,ITEM,2,1/4/2011 8:26,5.00,17850,United Kingdom\n"+
			"536400,85123A,ITEM,1,5/10/2011 9:00,5.00,17850,United Kingdom\n"+
			"536401,85123A,ITEM,1,1/20/2011 9:00,5.00,13047,EIRE\n")

	svc := newService(t)
	cutoff := time.Date(2011, 4, 1, 0, 0, 0, 0, time.UTC)

	b, err := svc.Run(context.Background(), domain.RunParams{
		InputPath: path,
		AsOf:      time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
		Window:    window(t),
		Split: &split.Config{
			Cutoff:      cutoff,
			HistorySpan: 90 * 24 * time.Hour,
			OutcomeSpan: 90 * 24 * time.Hour,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, b.Split)
	require.Len(t, b.Split.Labels, 2)

	byID := map[string]bool{}
	for _, l := range b.Split.Labels {
		byID[l.CustomerID] = l.Churned
	}
	require.False(t, byID["17850"], "17850 bought in the outcome window")
	require.True(t, byID["13047"], "13047 went silent after the cutoff")
}

func TestRunConfigErrors(t *testing.T) {
	path := writeLedger(t, "536365,85123A,ITEM,1,1/4/2011 8:26,1.00,17850,United Kingdom\n")
	svc := newService(t)
	w := window(t)

	cases := []struct {
		name string
		p    domain.RunParams
	}{
		{"zero as_of", domain.RunParams{InputPath: path, Window: w}},
		{"inverted window", domain.RunParams{
			InputPath: path,
			AsOf:      w.End,
			Window:    features.Window{Start: w.End, End: w.Start},
		}},
		{"bad split", domain.RunParams{
			InputPath: path,
			AsOf:      w.End,
			Window:    w,
			Split:     &split.Config{},
		}},
		{"missing file", domain.RunParams{
			InputPath: filepath.Join(t.TempDir(), "nope.csv"),
			AsOf:      w.End,
			Window:    w,
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), c.p)
			require.Error(t, err)
			require.True(t, perr.IsCode(err, perr.ErrorCodeConfig), "want config error, got %v", err)
		})
	}
}

func TestRunSinkFailureSurfaces(t *testing.T) {
	path := writeLedger(t, "536365,85123A,ITEM,1,1/4/2011 8:26,1.00,17850,United Kingdom\n")
	sink := &recordingSink{err: perr.Newf(perr.ErrorCodeDB, "insert failed")}
	svc := newService(t, sink)

	_, err := svc.Run(context.Background(), domain.RunParams{
		InputPath: path,
		AsOf:      time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC),
		Window:    window(t),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sink write failed")
}
