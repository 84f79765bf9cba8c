// Package memwatch samples process resident memory at a fixed
// element-count interval. It is advisory: exceeding the limit logs a
// warning but never changes the already-selected strategy.
package memwatch

import (
	"os"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// DefaultInterval is the default number of processed elements between
// RSS samples.
const DefaultInterval = 50_000

// Monitor counts processed elements and samples RSS whenever the count
// crosses an interval boundary. The counter is shared by all workers;
// imprecision under concurrent updates is tolerated.
type Monitor struct {
	limit    uint64 // bytes, 0 = no limit
	interval int64
	logger   *zap.Logger
	proc     *process.Process

	processed atomic.Int64
	nextCheck atomic.Int64
	warnings  atomic.Int64
}

// New creates a monitor. A limit of 0 disables warnings but keeps the
// periodic usage logging.
func New(limitBytes uint64, interval int64, logger *zap.Logger) *Monitor {
	if interval < 1 {
		interval = DefaultInterval
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	m := &Monitor{
		limit:    limitBytes,
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
	m.nextCheck.Store(interval)
	return m
}

// Observe records that n more elements were processed and samples RSS
// when the interval boundary is crossed. Safe for concurrent use.
func (m *Monitor) Observe(n int64) {
	total := m.processed.Add(n)
	next := m.nextCheck.Load()
	if total < next {
		return
	}
	// One winner samples; the rest continue. Occasional skipped samples
	// under contention are fine.
	if m.nextCheck.CompareAndSwap(next, total+m.interval) {
		m.sample(total)
	}
}

// Processed returns the total number of observed elements.
func (m *Monitor) Processed() int64 { return m.processed.Load() }

// Warnings returns how many times usage exceeded the limit.
func (m *Monitor) Warnings() int64 { return m.warnings.Load() }

// RSS returns current process resident memory in bytes.
func (m *Monitor) RSS() (uint64, bool) {
	if m.proc == nil {
		return 0, false
	}
	info, err := m.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0, false
	}
	return info.RSS, true
}

func (m *Monitor) sample(processed int64) {
	rss, ok := m.RSS()
	if !ok {
		return
	}

	m.logger.Debug("Memory usage",
		zap.Int64("elements", processed),
		zap.Uint64("rss_mb", rss>>20),
	)

	if m.limit > 0 && rss > m.limit {
		m.warnings.Add(1)
		m.logger.Warn("Memory usage exceeds configured limit",
			zap.Uint64("rss_mb", rss>>20),
			zap.Uint64("limit_mb", m.limit>>20),
			zap.Int64("elements", processed),
		)
	}
}
