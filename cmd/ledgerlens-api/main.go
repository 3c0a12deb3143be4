package main

import (
	"context"

	"ledgerlens/internal/platform/config"
	"ledgerlens/internal/platform/logger"
	phttp "ledgerlens/internal/platform/net/http"
	"ledgerlens/internal/platform/store"

	"ledgerlens/internal/services/api"
)

func main() {
	// service-scoped config for HTTP etc (CORE_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	// bring up logging early
	l := logger.Get()

	// the api reads exported runs from postgres only
	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "ledgerlens-api",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
