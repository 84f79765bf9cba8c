package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds the global configuration for a conversion run.
type Config struct {
	// Input settings
	InputFile string

	// Output settings
	OutputFile string // empty = stdout

	// Filtering
	Tags      string // tag filter expression, e.g. "addr*+name,highway"
	StyleFile string // optional YAML style file with include/exclude rules

	// Geometry settings
	GeometryLevel string // auto, basic or full

	// Coordinate store settings
	TempDBDir     string // directory for the disk-backed coordinate store (empty = system temp)
	KeepTempDB    bool   // keep the temporary coordinate database after the run
	FlatNodesFile string // optional mmap flat-nodes file instead of LevelDB
	CacheSize     int    // streaming-mode LRU capacity (entries)

	// Processing settings
	Parallel      bool
	Workers       int
	BatchSize     int // elements per worker batch
	ChannelBuffer int // bounded output channel capacity

	// Memory monitoring
	MemoryLimitMB int   // advisory RSS limit
	SampleEvery   int64 // sample RSS every N processed elements

	// Logging and metrics
	Verbose         bool
	LogFile         string        // path to log file (empty = no file logging)
	MetricsInterval time.Duration // interval for system metrics logging (0 = off)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GeometryLevel: "auto",
		CacheSize:     1_000_000,
		Parallel:      true,
		Workers:       runtime.NumCPU(),
		BatchSize:     1024,
		ChannelBuffer: 1000,
		MemoryLimitMB: 8192,
		SampleEvery:   50_000,
	}
}

// EffectiveWorkers returns the worker count honoring the parallel switch.
func (c *Config) EffectiveWorkers() int {
	if !c.Parallel {
		return 1
	}
	if c.Workers < 1 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// MemoryLimitBytes converts the configured limit to bytes.
func (c *Config) MemoryLimitBytes() uint64 {
	if c.MemoryLimitMB <= 0 {
		return 0
	}
	return uint64(c.MemoryLimitMB) << 20
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if c.ChannelBuffer < 1 {
		return fmt.Errorf("channel buffer must be at least 1")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1")
	}
	return nil
}
