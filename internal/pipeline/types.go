package pipeline

import (
	"context"

	"github.com/wegman-software/pbf2json-go/internal/model"
	"github.com/wegman-software/pbf2json-go/internal/pbf"
	"github.com/wegman-software/pbf2json-go/internal/strategy"
)

// Source is the element source a run scans. Scans are restartable:
// every pass calls Scan again and receives the same finite element
// sequence. Decode failures abort the scan with a descriptive error.
type Source interface {
	Size() int64
	Scan(ctx context.Context, opts pbf.ScanOptions, fn func(model.Element) error) error
}

// Stats holds the outcome of a run.
type Stats struct {
	Strategy strategy.Strategy

	// Elements seen during the emission pass.
	Nodes     int64
	Ways      int64
	Relations int64

	// Records written to the sink.
	Records int64

	// Coordinates held by the coordinate store after its build pass.
	CoordsStored int64
}
