package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/pbf2json-go/internal/config"
	"github.com/wegman-software/pbf2json-go/internal/coord"
	"github.com/wegman-software/pbf2json-go/internal/filter"
	"github.com/wegman-software/pbf2json-go/internal/geom"
	"github.com/wegman-software/pbf2json-go/internal/logger"
	"github.com/wegman-software/pbf2json-go/internal/memwatch"
	"github.com/wegman-software/pbf2json-go/internal/metrics"
	"github.com/wegman-software/pbf2json-go/internal/model"
	"github.com/wegman-software/pbf2json-go/internal/pbf"
	"github.com/wegman-software/pbf2json-go/internal/strategy"
	"github.com/wegman-software/pbf2json-go/internal/style"
)

// Coordinator runs the pass engine: it selects a strategy once, then
// executes the strategy's scans in order. A cache-building pass must
// fully complete before the next pass starts consuming it; a partially
// built cache would silently degrade geometry instead of failing.
type Coordinator struct {
	cfg      *config.Config
	src      Source
	expr     filter.Expression
	styleCfg *style.Config
	strat    strategy.Strategy
	proc     *Processor
	monitor  *memwatch.Monitor
	log      *zap.Logger
}

// NewCoordinator validates configuration-level inputs (filter
// expression, geometry level, style file) and selects the strategy.
// All of these failures are fatal before any pass runs.
func NewCoordinator(cfg *config.Config, src Source) (*Coordinator, error) {
	log := logger.Get()

	expr, err := filter.Parse(cfg.Tags)
	if err != nil {
		return nil, fmt.Errorf("invalid tag filter: %w", err)
	}

	level, err := strategy.ParseLevel(cfg.GeometryLevel)
	if err != nil {
		return nil, err
	}

	var styleCfg *style.Config
	if cfg.StyleFile != "" {
		styleCfg, err = style.LoadConfig(cfg.StyleFile)
		if err != nil {
			return nil, err
		}
	}

	monitor := memwatch.New(cfg.MemoryLimitBytes(), cfg.SampleEvery, log)

	return &Coordinator{
		cfg:      cfg,
		src:      src,
		expr:     expr,
		styleCfg: styleCfg,
		strat:    strategy.Select(src.Size(), level),
		proc:     NewProcessor(cfg.EffectiveWorkers(), cfg.BatchSize, monitor, log),
		monitor:  monitor,
		log:      log,
	}, nil
}

// Strategy returns the strategy selected for this run.
func (c *Coordinator) Strategy() strategy.Strategy { return c.strat }

// Run executes the selected strategy and streams records to w.
func (c *Coordinator) Run(ctx context.Context, w io.Writer) (*Stats, error) {
	c.log.Info("Starting conversion",
		zap.String("strategy", c.strat.String()),
		zap.Int("passes", c.strat.Passes()),
		zap.String("input_size", FormatBytes(c.src.Size())),
		zap.Int("workers", c.cfg.EffectiveWorkers()),
	)

	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()
		go metrics.NewCollector(c.cfg.MetricsInterval, c.log).Start(metricsCtx)
	}

	stats := &Stats{Strategy: c.strat}

	var err error
	switch c.strat {
	case strategy.ThreePass:
		err = c.runThreePass(ctx, w, stats)
	case strategy.TwoPass:
		err = c.runTwoPass(ctx, w, stats)
	default:
		err = c.runStreaming(ctx, w, stats)
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// newCoordStore picks the coordinate store backing. Streaming always
// gets the bounded LRU; ThreePass/TwoPass use the in-memory map unless
// the input is large enough to force disk (or a flat-nodes file was
// requested).
func (c *Coordinator) newCoordStore() (coord.Store, error) {
	if c.strat == strategy.Streaming {
		return coord.NewLRUStore(c.cfg.CacheSize), nil
	}

	if c.cfg.FlatNodesFile != "" {
		c.log.Info("Using flat-nodes coordinate store", zap.String("path", c.cfg.FlatNodesFile))
		return coord.NewFlatStore(c.cfg.FlatNodesFile, c.cfg.KeepTempDB)
	}

	if strategy.DiskBacked(c.src.Size()) {
		dir := c.cfg.TempDBDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "pbf2json-coords-*")
			if err != nil {
				return nil, fmt.Errorf("create temp coordinate directory: %w", err)
			}
			dir = tmp
		}
		c.log.Info("Using disk-backed coordinate store", zap.String("path", dir))
		return coord.NewLevelStore(dir, c.cfg.KeepTempDB)
	}

	return coord.NewMemoryStore(), nil
}

// buildCoordinateStore is the node pass shared by ThreePass and
// TwoPass: every node's coordinates go into the store, tagged or not.
func (c *Coordinator) buildCoordinateStore(ctx context.Context, store coord.Store) error {
	start := time.Now()
	c.log.Info("Pass 1: collecting node coordinates")

	err := c.proc.Run(ctx, c.src, pbf.ScanOptions{Nodes: true}, func(batch []model.Element) error {
		for _, el := range batch {
			if n, ok := el.(*model.Node); ok {
				store.Put(n.ID, n.Lat, n.Lon)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("node pass: %w", err)
	}
	// Barrier: all inserts must be visible before any pass reads.
	if err := store.Flush(); err != nil {
		return fmt.Errorf("node pass: %w", err)
	}

	elapsed := time.Since(start)
	c.log.Info("Pass 1 complete",
		zap.Int("nodes", store.Len()),
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.String("rate", FormatThroughput(throughput(int64(store.Len()), elapsed))),
	)
	return nil
}

// buildWayCache is the ThreePass geometry pass: way geometry is
// resolved against the completed coordinate store and cached for
// relation resolution. It emits nothing.
func (c *Coordinator) buildWayCache(ctx context.Context, store coord.Store, cache *geom.Cache) error {
	start := time.Now()
	c.log.Info("Pass 2: resolving way geometries")

	err := c.proc.Run(ctx, c.src, pbf.ScanOptions{Ways: true}, func(batch []model.Element) error {
		for _, el := range batch {
			w, ok := el.(*model.Way)
			if !ok {
				continue
			}
			var acc geom.Accumulator
			for _, id := range w.NodeIDs {
				if lat, lon, ok := store.Get(id); ok {
					acc.Add(lat, lon)
				}
			}
			// Ways with nothing resolved still get an entry so pass 3
			// can tell "no geometry" from "not a way we saw".
			cache.Put(w.ID, geom.EntryFromAccumulator(&acc))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("way geometry pass: %w", err)
	}

	c.log.Info("Pass 2 complete",
		zap.Int("ways", cache.Len()),
		zap.Duration("duration", time.Since(start).Round(time.Second)),
	)
	return nil
}

// emit runs an emission pass: workers convert elements and feed the
// bounded output channel, the single consumer writes lines to w. A sink
// write failure cancels the workers cooperatively.
func (c *Coordinator) emit(ctx context.Context, w io.Writer, cv *converter, stats *Stats) error {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	out := make(chan []byte, c.cfg.ChannelBuffer)

	var nodes, ways, relations atomic.Int64

	g.Go(func() error {
		n, err := StreamOutput(ctx, w, out)
		stats.Records = n
		if err != nil {
			return fmt.Errorf("output stream: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer close(out)
		return c.proc.Run(ctx, c.src, pbf.ScanAll, func(batch []model.Element) error {
			for _, el := range batch {
				switch el.(type) {
				case *model.Node:
					nodes.Add(1)
				case *model.Way:
					ways.Add(1)
				case *model.Relation:
					relations.Add(1)
				}

				line, ok := cv.convert(el)
				if !ok {
					continue
				}
				select {
				case out <- line:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return err
	}

	stats.Nodes = nodes.Load()
	stats.Ways = ways.Load()
	stats.Relations = relations.Load()

	elapsed := time.Since(start)
	c.log.Info("Emission pass complete",
		zap.Int64("records", stats.Records),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.String("rate", FormatThroughput(throughput(stats.Records, elapsed))),
	)
	return nil
}

func (c *Coordinator) runThreePass(ctx context.Context, w io.Writer, stats *Stats) error {
	store, err := c.newCoordStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := c.buildCoordinateStore(ctx, store); err != nil {
		return err
	}
	stats.CoordsStored = int64(store.Len())

	cache := geom.NewCache()
	if err := c.buildWayCache(ctx, store, cache); err != nil {
		return err
	}

	c.log.Info("Pass 3: emitting records with complete geometry")
	cv := newConverter(c.expr, c.styleCfg)
	cv.coords = store
	cv.ways = cache
	cv.resolveRelations = true
	return c.emit(ctx, w, cv, stats)
}

func (c *Coordinator) runTwoPass(ctx context.Context, w io.Writer, stats *Stats) error {
	store, err := c.newCoordStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := c.buildCoordinateStore(ctx, store); err != nil {
		return err
	}
	stats.CoordsStored = int64(store.Len())

	c.log.Info("Pass 2: emitting records with way geometry")
	cv := newConverter(c.expr, c.styleCfg)
	cv.coords = store
	return c.emit(ctx, w, cv, stats)
}

func (c *Coordinator) runStreaming(ctx context.Context, w io.Writer, stats *Stats) error {
	store, err := c.newCoordStore()
	if err != nil {
		return err
	}
	defer store.Close()

	c.log.Info("Single streaming pass with best-effort geometry",
		zap.Int("cache_capacity", c.cfg.CacheSize))
	cv := newConverter(c.expr, c.styleCfg)
	cv.coords = store
	cv.insertNodes = true
	if err := c.emit(ctx, w, cv, stats); err != nil {
		return err
	}
	stats.CoordsStored = int64(store.Len())
	return nil
}
