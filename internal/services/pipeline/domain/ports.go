package domain

import "context"

// RunnerPort runs the full analysis for one ledger
type RunnerPort interface {
	Run(ctx context.Context, p RunParams) (*ResultBundle, error)
}

// SinkPort receives a finished bundle; implemented by the export service
type SinkPort interface {
	WriteBundle(ctx context.Context, b *ResultBundle) error
}

// Ports other modules inject into the pipeline module
type Ports struct {
	Sinks []SinkPort
}
