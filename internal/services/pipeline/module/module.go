// Package module implements the pipeline service module
package module

import (
	"ledgerlens/internal/core/classify"
	"ledgerlens/internal/modkit"
	"ledgerlens/internal/modkit/httpkit"
	"ledgerlens/internal/services/pipeline/domain"
	"ledgerlens/internal/services/pipeline/service"
)

// Ports exposed by the pipeline module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new pipeline module
// sinks are injected with modkit.WithPorts(pipeline/domain.Ports{Sinks: ...})
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("pipeline"),
	}, opts...)...)

	var sinks []domain.SinkPort
	if b.Ports != nil {
		ports, ok := b.Ports.(domain.Ports)
		if !ok {
			panic("pipeline module: expected WithPorts(pipeline/domain.Ports)")
		}
		sinks = ports.Sinks
	}

	cfg := FromConfig(deps.Cfg)

	cls, err := classify.New(classify.Config{
		AdminCodePatterns:       cfg.AdminCodePatterns,
		TreatUnmatchedAsProduct: cfg.TreatUnmatchedAsProduct,
		DigitlessAsAdmin:        cfg.DigitlessAsAdmin,
	})
	if err != nil {
		deps.Log.Panic().Err(err).Msg("classifier configuration rejected")
	}

	svc := service.New(cls, sinks, service.Config{
		HasHeader: cfg.HasHeader,
		Progress:  cfg.Progress,
	}, deps.Log)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "pipeline" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
