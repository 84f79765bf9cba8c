package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/pbf2json-go/internal/logger"
	"github.com/wegman-software/pbf2json-go/internal/pbf"
	"github.com/wegman-software/pbf2json-go/internal/pipeline"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.osm.pbf>",
	Short: "Convert a PBF file to newline-delimited JSON",
	Long: `Convert an OSM PBF file into one JSON record per line on stdout
(or a file given with --output).

The number of passes over the input is chosen from its size:
  - three passes (full geometry) for small inputs
  - two passes (way geometry only) for medium inputs
  - one streaming pass (best-effort geometry) for very large inputs

Use --geometry to force a level instead of the size heuristic.`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file (default stdout)")
	convertCmd.Flags().StringVarP(&cfg.Tags, "tags", "t", "", "Tag filter expression (e.g. \"addr*+name,highway\")")
	convertCmd.Flags().StringVarP(&cfg.GeometryLevel, "geometry", "g", cfg.GeometryLevel, "Geometry level: auto, basic or full")
	convertCmd.Flags().StringVar(&cfg.StyleFile, "style", "", "YAML style file with include/exclude rules")
	convertCmd.Flags().StringVar(&cfg.TempDBDir, "temp-db", "", "Directory for the disk-backed coordinate store")
	convertCmd.Flags().BoolVar(&cfg.KeepTempDB, "keep-temp-db", false, "Keep the temporary coordinate store after the run")
	convertCmd.Flags().StringVar(&cfg.FlatNodesFile, "flat-nodes", "", "Memory-mapped flat-nodes file instead of LevelDB")
	convertCmd.Flags().IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Streaming-mode coordinate cache capacity (entries)")
	convertCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Elements per worker batch")
	convertCmd.Flags().IntVar(&cfg.ChannelBuffer, "channel-buffer", cfg.ChannelBuffer, "Bounded output channel capacity")
	convertCmd.Flags().IntVar(&cfg.MemoryLimitMB, "memory-limit", cfg.MemoryLimitMB, "Advisory memory limit in MB (0 disables warnings)")
}

func runConvert(cmd *cobra.Command, args []string) {
	cfg.InputFile = args[0]
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	src, err := pbf.Open(cfg.InputFile, cfg.EffectiveWorkers())
	if err != nil {
		exitWithError("failed to open input", err)
	}

	coord, err := pipeline.NewCoordinator(cfg, src)
	if err != nil {
		exitWithError("failed to configure conversion", err)
	}

	var out io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			exitWithError("failed to create output file", err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	stats, err := coord.Run(ctx, out)
	if err != nil {
		exitWithError("conversion failed", err)
	}

	elapsed := time.Since(start)

	log.Info("Conversion complete",
		zap.String("strategy", stats.Strategy.String()),
		zap.Duration("duration", elapsed.Round(time.Second)),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Int64("records", stats.Records),
		zap.String("rate", pipeline.FormatThroughput(float64(stats.Records)/elapsed.Seconds())),
	)
}
