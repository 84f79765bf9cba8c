package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/pbf2json-go/internal/memwatch"
	"github.com/wegman-software/pbf2json-go/internal/model"
	"github.com/wegman-software/pbf2json-go/internal/pbf"
)

// Processor fans element batches out to a fixed pool of workers.
// Batches, not single elements, are the dispatch unit to amortize
// channel coordination. Workers only read shared caches (or insert into
// caches designed for concurrent insert), so batch handlers need no
// locking of their own.
type Processor struct {
	workers   int
	batchSize int
	monitor   *memwatch.Monitor
	logger    *zap.Logger
}

// NewProcessor creates a processor with the given pool size.
func NewProcessor(workers, batchSize int, monitor *memwatch.Monitor, logger *zap.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 1024
	}
	return &Processor{
		workers:   workers,
		batchSize: batchSize,
		monitor:   monitor,
		logger:    logger,
	}
}

// Run scans the source once and applies fn to every batch on the worker
// pool. fn is called concurrently from all workers. The first error
// from the scan or any worker cancels the rest of the pass.
func (p *Processor) Run(ctx context.Context, src Source, opts pbf.ScanOptions, fn func(batch []model.Element) error) error {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []model.Element, p.workers*2)

	var scanned atomic.Int64

	// Scanner: single reader feeding the pool.
	g.Go(func() error {
		defer close(batches)

		batch := make([]model.Element, 0, p.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
			batch = make([]model.Element, 0, p.batchSize)
			return nil
		}

		err := src.Scan(ctx, opts, func(el model.Element) error {
			batch = append(batch, el)
			scanned.Add(1)
			if len(batch) == p.batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
		return flush()
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				if err := fn(batch); err != nil {
					return err
				}
				if p.monitor != nil {
					p.monitor.Observe(int64(len(batch)))
				}
			}
			return nil
		})
	}

	// Progress ticker for long passes.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n := scanned.Load()
				p.logger.Debug("Pass progress",
					zap.Int64("elements", n),
					zap.String("rate", FormatThroughput(throughput(n, time.Since(start)))),
				)
			}
		}
	}()

	return g.Wait()
}
