package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/pbf2json-go/internal/config"
	"github.com/wegman-software/pbf2json-go/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	noParallel      bool
)

var rootCmd = &cobra.Command{
	Use:   "pbf2json-go",
	Short: "Streaming OSM PBF to newline-delimited JSON converter",
	Long: `pbf2json-go converts OpenStreetMap PBF extracts into newline-delimited
JSON records with bounded memory.

Features:
  - Multi-threaded PBF decoding and record conversion
  - Automatic strategy selection by input size (three-pass, two-pass, streaming)
  - Disk-backed or memory-mapped coordinate stores for planet-scale inputs
  - Tag filter expressions and YAML style files
  - Centroid and bounding-box resolution for ways and relations`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval
		cfg.Parallel = !noParallel

		// Records go to stdout, so all logging stays on stderr.
		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")
	rootCmd.PersistentFlags().BoolVar(&noParallel, "no-parallel", false, "Disable parallel processing (single worker)")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 0, "Interval for system metrics logging, 0 disables (e.g., 10s, 1m)")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
