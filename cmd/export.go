package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/waterindex-go/internal/export"
	"github.com/wegman-software/waterindex-go/internal/logger"
	"github.com/wegman-software/waterindex-go/internal/waterindex"
)

var (
	exportLevels  []int
	exportCells   bool
	exportTiles   bool
	exportPostGIS bool
)

var exportCmd = &cobra.Command{
	Use:   "export <water.idx>",
	Short: "Export cells and ground tiles of an index",
	Long: `Export the classified cells and the ground tile polygons of a water index.

Targets:
  --parquet      GeoParquet file with WKB geometries
  --flatgeobuf   FlatGeobuf file
  --postgis      water_cells and water_tiles tables in PostgreSQL

Cells of unknown state are not exported. Levels without cell data are
skipped.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVar(&cfg.ParquetFile, "parquet", "", "GeoParquet output file")
	f.StringVar(&cfg.FlatGeobufFile, "flatgeobuf", "", "FlatGeobuf output file")
	f.BoolVar(&exportPostGIS, "postgis", false, "Load into PostgreSQL (see --db-* flags)")
	f.IntSliceVar(&exportLevels, "levels", nil, "Levels to export (all when empty)")
	f.BoolVar(&exportCells, "cells", true, "Export cells")
	f.BoolVar(&exportTiles, "tiles", true, "Export ground tiles")
	f.StringVarP(&projectionStr, "projection", "E", "4326", "Projection SRID of exported geometries (4326 or 3857)")
}

// fileSinks creates the file based sinks that have a path.
func fileSinks(parquetPath, fgbPath string, srid int) ([]export.Sink, error) {
	var sinks []export.Sink
	if parquetPath != "" {
		s, err := export.NewParquetSink(parquetPath, srid)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if fgbPath != "" {
		sinks = append(sinks, export.NewFlatGeobufSink(fgbPath, srid))
	}
	return sinks, nil
}

func exportIndex(ctx context.Context, path string, levels []int, cells, tiles bool, sinks []export.Sink) error {
	log := logger.Get()

	idx, err := waterindex.Open(path)
	if err != nil {
		for _, s := range sinks {
			s.Close()
		}
		return err
	}
	defer idx.Close()

	log.Info("Starting export",
		zap.String("index", path),
		zap.Ints("levels", levels),
		zap.Int("sinks", len(sinks)),
		zap.Int("projection", cfg.Projection))

	stats, err := export.Export(ctx, idx, export.Options{
		Levels: levels,
		SRID:   cfg.Projection,
		Cells:  cells,
		Tiles:  tiles,
	}, log, sinks...)
	if err != nil {
		return err
	}

	log.Info("Export complete",
		zap.Duration("total_time", stats.Duration.Round(time.Millisecond)),
		zap.Int("levels", stats.Levels),
		zap.Int64("cells", stats.Cells),
		zap.Int64("tiles", stats.Tiles))
	return nil
}

func runExport(cmd *cobra.Command, args []string) {
	applyProjectionFlag(cmd)

	if cfg.ParquetFile == "" && cfg.FlatGeobufFile == "" && !exportPostGIS {
		exitWithError("no export target", fmt.Errorf("use --parquet, --flatgeobuf or --postgis"))
	}
	if !exportCells && !exportTiles {
		exitWithError("nothing to export", fmt.Errorf("--cells and --tiles are both disabled"))
	}

	ctx, stop := signalContext()
	defer stop()

	sinks, err := fileSinks(cfg.ParquetFile, cfg.FlatGeobufFile, cfg.Projection)
	if err != nil {
		exitWithError("failed to create export", err)
	}
	if exportPostGIS {
		s, err := export.NewPostGISSink(ctx, cfg.ConnectionString(), cfg.DBSchema, cfg.Projection, logger.Get())
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			exitWithError("failed to connect to database", err)
		}
		sinks = append(sinks, s)
	}

	if err := exportIndex(ctx, args[0], exportLevels, exportCells, exportTiles, sinks); err != nil {
		exitWithError("export failed", err)
	}
}
