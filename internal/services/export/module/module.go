// Package module implements the export service module
package module

import (
	"ledgerlens/internal/modkit"
	"ledgerlens/internal/modkit/httpkit"
	"ledgerlens/internal/services/export/repo"
	"ledgerlens/internal/services/export/service"
	pipedom "ledgerlens/internal/services/pipeline/domain"
)

// Ports exposed by the export module
type Ports struct {
	Sink pipedom.SinkPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new export module
// sinks come up according to EXPORT_* config and which stores are wired
func New(deps modkit.Deps) *Module {
	cfg := FromConfig(deps.Cfg)

	var tx = deps.PG
	if !cfg.PG {
		tx = nil
	}
	if cfg.PG && deps.PG == nil {
		deps.Log.Panic().Msg("export module: EXPORT_PG enabled but no postgres store wired")
	}

	var ch *repo.CHWriter
	if cfg.CH {
		if deps.CH == nil {
			deps.Log.Panic().Msg("export module: EXPORT_CH enabled but no clickhouse store wired")
		}
		ch = repo.NewCH(deps.CH, cfg.CHTable)
	}

	svc := service.New(tx, ch, service.Config{
		CSVDir:     cfg.CSVDir,
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
	}, deps.Log)

	m := &Module{deps: deps}
	m.ports = Ports{Sink: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "export" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
