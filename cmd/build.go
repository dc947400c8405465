package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/waterindex-go/internal/config"
	"github.com/wegman-software/waterindex-go/internal/logger"
	"github.com/wegman-software/waterindex-go/internal/pipeline"
	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/proj"
	"github.com/wegman-software/waterindex-go/internal/statemap"
)

var projectionStr string

var buildCmd = &cobra.Command{
	Use:   "build [input.osm.pbf]",
	Short: "Build a water index from OSM coastlines",
	Long: `Build the land/water index for a range of levels:

  1. Pass 1: Stream nodes into a memory-mapped index
  2. Pass 2: Collect coastlines, data polygons and land ways
  3. Merge coastline fragments and synthesize bounding polygons
  4. Classify cells and cut ground tiles for every level in parallel
  5. Write all levels into a single index file

The input file may also be given in the configuration file.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	f := buildCmd.Flags()
	f.StringVarP(&cfg.BBoxString, "bbox", "b", "", "Bounding box of the data: minlon,minlat,maxlon,maxlat (world when empty)")
	f.StringVar(&cfg.BoundingPolygon, "bounding-polygon", "", "Osmosis .poly file with the data bounding polygon")
	f.StringVar(&cfg.LandRulesFile, "land-rules", "", "YAML tag rules for land ways (embedded defaults when empty)")
	f.StringVar(&cfg.LandScript, "land-script", "", "Lua script with a classify_way function, overrides --land-rules")
	f.Int64Var(&cfg.MaxNodeID, "max-node-id", cfg.MaxNodeID, "Largest node ID of the input (0 for the default)")

	f.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory of the index file")
	f.StringVar(&cfg.IndexFile, "index-file", cfg.IndexFile, "Name of the index file")
	f.StringVar(&cfg.TempDir, "temp-dir", "", "Directory for the temporary node index (system temp dir when empty)")

	f.IntVar(&cfg.MinLevel, "min-level", cfg.MinLevel, "Lowest level to build")
	f.IntVar(&cfg.MaxLevel, "max-level", cfg.MaxLevel, "Highest level to build")
	f.IntVar(&cfg.TileCount, "tile-count", cfg.TileCount, "Passes of the water fill around coast cells")
	f.StringVar(&cfg.AssumeLand, "assume-land", cfg.AssumeLand, "Land assumption for data polygons: enable, automatic or disable")
	f.BoolVar(&cfg.Simplify, "simplify", cfg.Simplify, "Simplify coastlines per level")
	f.Float64Var(&cfg.SimplifyTolerance, "simplify-tolerance", cfg.SimplifyTolerance, "Simplification tolerance in pixels")
	f.Float64Var(&cfg.MinObjectDimension, "min-object-dimension", cfg.MinObjectDimension, "Islands smaller than this many pixels are dropped")

	f.StringVar(&cfg.GeoJSONTrace, "geojson-trace", "", "Write classified cells and tiles as GeoJSON for debugging")
	f.StringVar(&cfg.ParquetFile, "parquet", "", "Export cells and tiles to a GeoParquet file after the build")
	f.StringVar(&cfg.FlatGeobufFile, "flatgeobuf", "", "Export cells and tiles to a FlatGeobuf file after the build")
	f.StringVarP(&projectionStr, "projection", "E", "4326", "Projection SRID of exported geometries (4326 or 3857)")
}

// signalContext is cancelled on SIGINT and SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func applyProjectionFlag(cmd *cobra.Command) {
	if !cmd.Flags().Changed("projection") {
		return
	}
	srid, err := proj.ParseSRID(projectionStr)
	if err != nil {
		exitWithError("invalid projection", err)
	}
	cfg.Projection = srid
}

func runBuild(cmd *cobra.Command, args []string) {
	log := logger.Get()

	if len(args) == 1 {
		cfg.InputFile = args[0]
	}
	if cfg.BBoxString != "" {
		bbox, err := config.ParseBBox(cfg.BBoxString)
		if err != nil {
			exitWithError("invalid bbox", err)
		}
		cfg.BBox = bbox
	}
	applyProjectionFlag(cmd)

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	totalStart := time.Now()

	// Build log fields
	logFields := []zap.Field{
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.IndexPath()),
		zap.Int("min_level", cfg.MinLevel),
		zap.Int("max_level", cfg.MaxLevel),
		zap.Int("workers", cfg.Workers),
	}
	if cfg.BBox.IsWorld() {
		logFields = append(logFields, zap.String("bbox", "world"))
	} else {
		logFields = append(logFields, zap.String("bbox", cfg.BBox.String()))
	}
	if cfg.BoundingPolygon != "" {
		logFields = append(logFields, zap.String("bounding_polygon", cfg.BoundingPolygon))
	}
	if cfg.LandScript != "" {
		logFields = append(logFields, zap.String("land_script", cfg.LandScript))
	} else if cfg.LandRulesFile != "" {
		logFields = append(logFields, zap.String("land_rules", cfg.LandRulesFile))
	}
	log.Info("Starting water index build", logFields...)

	ctx, stop := signalContext()
	defer stop()

	stats, err := pipeline.NewCoordinator(cfg).Run(ctx)
	if err != nil {
		exitWithError("build failed", err)
	}

	var cells [4]int
	for _, l := range stats.Levels {
		for s, n := range l.Cells {
			cells[s] += n
		}
	}

	totalElapsed := time.Since(totalStart)
	summary := []zap.Field{
		zap.Duration("total_time", totalElapsed.Round(time.Second)),
		zap.Int64("nodes", stats.Source.Nodes),
		zap.Int64("ways", stats.Source.Ways),
		zap.Int64("coastline_ways", stats.Source.Coastlines),
		zap.Int("coastlines", stats.Input.Coastlines),
		zap.Int("bounding_polygons", stats.Input.BoundingPolygons),
		zap.Int("land_ways", stats.Input.LandWays),
		zap.Int("land_cells", cells[statemap.Land]),
		zap.Int("water_cells", cells[statemap.Water]),
		zap.Int("coast_cells", cells[statemap.Coast]),
		zap.Int("tiles", stats.Tiles()),
		zap.String("index_size", progress.FormatBytes(stats.IndexBytes)),
		zap.Int64("warnings", stats.Warnings),
		zap.Int64("errors", stats.Errors),
	}
	if stats.Metrics.Samples > 0 {
		summary = append(summary,
			zap.String("peak_rss", progress.FormatBytes(int64(stats.Metrics.PeakRSS))),
			zap.String("avg_cpu", fmt.Sprintf("%.1f%%", stats.Metrics.AvgCPUPercent)))
	}
	log.Info("Build complete", summary...)

	if cfg.ParquetFile == "" && cfg.FlatGeobufFile == "" {
		return
	}
	sinks, err := fileSinks(cfg.ParquetFile, cfg.FlatGeobufFile, cfg.Projection)
	if err != nil {
		exitWithError("failed to create export", err)
	}
	if err := exportIndex(ctx, cfg.IndexPath(), nil, true, true, sinks); err != nil {
		exitWithError("export failed", err)
	}
}
