package main

import (
	"context"
	"flag"
	"os"
	"time"

	"ledgerlens/internal/core/features"
	"ledgerlens/internal/core/split"
	"ledgerlens/internal/modkit"
	"ledgerlens/internal/modkit/module"
	"ledgerlens/internal/platform/config"
	"ledgerlens/internal/platform/logger"
	"ledgerlens/internal/platform/store"

	exportmod "ledgerlens/internal/services/export/module"
	pipedom "ledgerlens/internal/services/pipeline/domain"
	pipelinemod "ledgerlens/internal/services/pipeline/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// parseDay accepts YYYY-MM-DD or full RFC3339 and returns UTC
func parseDay(l *logger.Logger, flagName, raw string) time.Time {
	if raw == "" {
		l.Panic().Str("flag", flagName).Msg("flag is required")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC()
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		l.Panic().Err(err).Str("flag", flagName).Str("value", raw).Msg("bad time flag")
	}
	return t.UTC()
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	var (
		fInput  = flag.String("input", "", "path to the ledger csv")
		fRunID  = flag.String("run-id", "", "run id, generated when empty")
		fAsOf   = flag.String("as-of", "", "recency anchor, YYYY-MM-DD or RFC3339")
		fStart  = flag.String("window-start", "", "feature window start, inclusive")
		fEnd    = flag.String("window-end", "", "feature window end, exclusive")
		fCutoff = flag.String("cutoff", "", "temporal split cutoff; empty skips labeling")

		fHistory = flag.Duration("history", 365*24*time.Hour, "history span before the cutoff")
		fOutcome = flag.Duration("outcome", 90*24*time.Hour, "outcome span after the cutoff")

		fCSVDir   = flag.String("csv-dir", "", "directory for csv export, empty disables")
		fPG       = flag.Bool("pg", false, "export results to postgres")
		fCH       = flag.Bool("ch", false, "export feature rows to clickhouse")
		fProgress = flag.Bool("progress", true, "show a progress bar while loading")
	)
	flag.Parse()

	if *fInput == "" {
		l.Panic().Msg("-input is required")
	}

	// Surface opts to modules that read FromConfig
	mustSetEnv("EXPORT_CSV_DIR", *fCSVDir)
	mustSetEnv("EXPORT_PG", map[bool]string{true: "1", false: "0"}[*fPG])
	mustSetEnv("EXPORT_CH", map[bool]string{true: "1", false: "0"}[*fCH])
	mustSetEnv("LEDGER_PROGRESS", map[bool]string{true: "1", false: "0"}[*fProgress])

	deps := modkit.Deps{
		Cfg: root,
		Log: *l,
	}

	// only open the stores the export flags ask for
	if *fPG || *fCH {
		st, err := store.Open(context.Background(), store.Config{
			AppName: "ledgerlens-analyze",
			PG: store.PGConfig{
				Enabled:     *fPG,
				URL:         pgURL(pgCfg, *fPG),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled: *fCH,
				URL:     chURL(chCfg, *fCH),
			},
		}, store.WithLogger(*l))
		if err != nil {
			l.Panic().Err(err).Msg("store.Open failed")
		}
		defer func() {
			if err := st.Close(context.Background()); err != nil {
				l.Error().Err(err).Msg("failed to close store")
			}
		}()
		deps.PG = st.PG
		deps.CH = st.CH
	}

	params := pipedom.RunParams{
		RunID:     *fRunID,
		InputPath: *fInput,
		AsOf:      parseDay(l, "as-of", *fAsOf),
		Window: features.Window{
			Start: parseDay(l, "window-start", *fStart),
			End:   parseDay(l, "window-end", *fEnd),
		},
	}
	if *fCutoff != "" {
		params.Split = &split.Config{
			Cutoff:      parseDay(l, "cutoff", *fCutoff),
			HistorySpan: *fHistory,
			OutcomeSpan: *fOutcome,
		}
	}

	ex := exportmod.New(deps)
	module.Register(ex.Name(), ex.Ports())

	pl := pipelinemod.New(deps, modkit.WithPorts(pipedom.Ports{
		Sinks: []pipedom.SinkPort{module.MustPortsOf[exportmod.Ports](ex).Sink},
	}))
	module.Register(pl.Name(), pl.Ports())

	plPorts := pl.Ports().(pipelinemod.Ports)
	bundle, err := plPorts.Runner.Run(context.Background(), params)
	if err != nil {
		l.Fatal().Err(err).Msg("analysis run failed")
	}

	l.Info().
		Str("run_id", bundle.RunID).
		Int("customers", len(bundle.Features)).
		Int("rejected", bundle.Report.Count()).
		Msg("done")
}

func pgURL(cfg config.Conf, enabled bool) string {
	if !enabled {
		return ""
	}
	return cfg.MustString("DBURL")
}

func chURL(cfg config.Conf, enabled bool) string {
	if !enabled {
		return ""
	}
	return cfg.MustString("DBURL")
}
