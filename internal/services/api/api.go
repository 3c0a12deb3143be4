// Package api provides the HTTP API over exported run results
package api

import (
	"net/http"

	"ledgerlens/internal/core/version"
	"ledgerlens/internal/platform/config"
	"ledgerlens/internal/platform/logger"
	phttp "ledgerlens/internal/platform/net/http"
	"ledgerlens/internal/platform/store"

	"ledgerlens/internal/modkit"
	"ledgerlens/internal/modkit/httpkit"
	"ledgerlens/internal/modkit/module"

	runsmod "ledgerlens/internal/services/api/runs/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	mods := []module.Module{
		runsmod.New(deps),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		httpkit.Get(api, "/version", func(*http.Request) (any, error) {
			return version.Info(), nil
		})

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
