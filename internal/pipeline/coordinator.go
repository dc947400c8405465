package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/config"
	"github.com/wegman-software/waterindex-go/internal/landrules"
	"github.com/wegman-software/waterindex-go/internal/logger"
	"github.com/wegman-software/waterindex-go/internal/metrics"
	"github.com/wegman-software/waterindex-go/internal/osmsrc"
	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/trace"
	"github.com/wegman-software/waterindex-go/internal/water"
)

// Coordinator runs a complete build: reading the input, preparing the
// coastlines and writing the index.
type Coordinator struct {
	cfg      *config.Config
	log      *zap.Logger
	reporter *progress.ZapReporter
}

// NewCoordinator creates a coordinator for a validated configuration.
func NewCoordinator(cfg *config.Config) *Coordinator {
	log := logger.Get()
	return &Coordinator{
		cfg:      cfg,
		log:      log,
		reporter: progress.NewZapReporter(log),
	}
}

// LoadClassifier returns the land way classifier configured by cfg: a Lua
// script, a rule file or the embedded default rules. The returned function
// releases it.
func LoadClassifier(cfg *config.Config) (landrules.Classifier, func(), error) {
	switch {
	case cfg.LandScript != "":
		c, err := landrules.LoadLua(cfg.LandScript)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case cfg.LandRulesFile != "":
		rules, err := landrules.LoadRules(cfg.LandRulesFile)
		if err != nil {
			return nil, nil, err
		}
		return rules, func() {}, nil
	default:
		return landrules.DefaultRules(), func() {}, nil
	}
}

// Run executes the build
func (c *Coordinator) Run(ctx context.Context) (*BuildStats, error) {
	start := time.Now()
	stats := &BuildStats{}

	var collector *metrics.Collector
	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector = metrics.NewCollector(c.cfg.MetricsInterval, c.log)
		go collector.Start(metricsCtx)
		c.log.Info("System metrics collection started",
			zap.Duration("interval", c.cfg.MetricsInterval))
	}

	opts, err := c.cfg.ProcessorOptions()
	if err != nil {
		return nil, err
	}

	classifier, release, err := LoadClassifier(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load land rules: %w", err)
	}
	defer release()

	reader, err := osmsrc.NewReader(osmsrc.Options{
		TempDir:    c.cfg.TempDir,
		Workers:    c.cfg.Workers,
		MaxNodeID:  c.cfg.MaxNodeID,
		Classifier: classifier,
	}, c.reporter, c.log)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	src, err := reader.Read(ctx, c.cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	stats.Source = src.Stats

	var polygons []*coast.Coast
	if c.cfg.BoundingPolygon != "" {
		polygons, err = osmsrc.LoadPoly(c.cfg.BoundingPolygon, c.reporter)
		if err != nil {
			return nil, err
		}
	}

	in, err := PrepareInput(c.reporter, src, reader.Resolver(), polygons, c.cfg.BBox)
	if err != nil {
		return nil, err
	}
	// the node index is no longer needed
	reader.Close()

	stats.Input = InputStats{
		Coastlines:       len(in.Coastlines),
		BoundingPolygons: len(in.BoundingPolygons),
		LandWays:         len(in.LandWays),
	}

	var tracer *trace.GeoJSON
	if c.cfg.GeoJSONTrace != "" {
		tracer = trace.NewGeoJSON(statemap.Unknown)
	}

	stats.Levels, stats.IndexBytes, err = c.writeIndex(ctx, in, opts, tracer)
	if err != nil {
		return nil, err
	}

	if tracer != nil {
		if err := tracer.WriteFile(c.cfg.GeoJSONTrace); err != nil {
			return nil, err
		}
		c.log.Info("Trace written",
			zap.String("path", c.cfg.GeoJSONTrace),
			zap.Int("features", tracer.Len()))
	}

	if collector != nil {
		collector.Collect()
		stats.Metrics = collector.Summary()
	}
	stats.Warnings = c.reporter.Warnings()
	stats.Errors = c.reporter.Errors()
	stats.Duration = time.Since(start)
	return stats, nil
}

// writeIndex builds into a temporary file next to the index and renames it
// on success.
func (c *Coordinator) writeIndex(ctx context.Context, in *water.Input, opts water.Options, tracer *trace.GeoJSON) ([]water.Stats, int64, error) {
	path := c.cfg.IndexPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create index file: %w", err)
	}
	defer os.Remove(tmp)
	defer f.Close()

	b := &Builder{
		Options:  opts,
		Workers:  c.cfg.Workers,
		Reporter: c.reporter,
		Log:      c.log,
	}
	if tracer != nil {
		b.Tracer = tracer
	}

	c.log.Info("Building levels",
		zap.Int("min_level", c.cfg.MinLevel),
		zap.Int("max_level", c.cfg.MaxLevel),
		zap.Int("workers", c.cfg.Workers),
		zap.Stringer("assume_land", opts.AssumeLand))

	levels, err := b.Build(ctx, in, c.cfg.MinLevel, c.cfg.MaxLevel, f)
	if err != nil {
		return nil, 0, err
	}

	if err := f.Sync(); err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	if err := f.Close(); err != nil {
		return nil, 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, 0, fmt.Errorf("failed to move index into place: %w", err)
	}
	return levels, info.Size(), nil
}

// PrepareInput resolves the raw boundaries of src and prepares the
// coastlines for processing: fragments are merged, world imports get their
// antimeridian ways closed and bounding polygons are synthesized with the
// coastlines. Polygons from a .poly file are added to the data polygons.
func PrepareInput(reporter progress.Reporter, src *osmsrc.Source, resolver coast.NodeResolver, polygons []*coast.Coast, bbox *config.BBox) (*water.Input, error) {
	coastlines, err := coast.LoadRawBoundaries(reporter, src.Coastlines, resolver, coast.Land, coast.Water)
	if err != nil {
		return nil, err
	}
	dataPolygons, err := coast.LoadRawBoundaries(reporter, src.DataPolygons, resolver, coast.Undefined, coast.Unknown)
	if err != nil {
		return nil, err
	}
	dataPolygons = append(dataPolygons, polygons...)

	coastlines = coast.MergeCoastlines(reporter, coastlines)
	if bbox.IsWorld() {
		coastlines = coast.CloseWorldCoastlines(reporter, coastlines)
	}
	if len(dataPolygons) > 0 {
		coastlines = coast.SynthesizeCoastlines(reporter, coastlines, dataPolygons)
	}

	return &water.Input{
		Box:              bbox.Bound(),
		Coastlines:       coastlines,
		BoundingPolygons: dataPolygons,
		LandWays:         src.LandWays,
	}, nil
}
