package water

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
	"github.com/wegman-software/waterindex-go/internal/trace"
)

// Options configure the classification of a level.
type Options struct {
	// FillWaterPasses bounds the water flood fill.
	FillWaterPasses int
	AssumeLand      AssumeLand
	Simplification  Simplification
}

// DefaultOptions returns the options used by the build command.
func DefaultOptions() Options {
	return Options{
		FillWaterPasses: 20,
		AssumeLand:      AssumeLandAutomatic,
		Simplification:  DefaultSimplification,
	}
}

// Input is shared by all levels and must not be modified while levels are
// processed.
type Input struct {
	Box              orb.Bound
	Coastlines       []*coast.Coast
	BoundingPolygons []*coast.Coast
	LandWays         []LandWay
}

// Stats summarizes one processed level.
type Stats struct {
	Level          int
	Coastlines     int
	Cells          [4]int // per statemap.State
	Tiles          int
	SkippedTouches int
	AbortedWalks   int
	Duration       time.Duration
}

// Processor classifies levels. It is safe to process several levels
// concurrently if the reporter and tracer are.
type Processor struct {
	reporter progress.Reporter
	tracer   trace.Tracer
	log      *zap.Logger
	opts     Options
}

// NewProcessor creates a processor reporting to reporter.
func NewProcessor(reporter progress.Reporter, log *zap.Logger, opts Options) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		reporter: reporter,
		tracer:   trace.Nop{},
		log:      log,
		opts:     opts,
	}
}

// WithTracer sets the tracer receiving build events.
func (p *Processor) WithTracer(t trace.Tracer) *Processor {
	p.tracer = t
	return p
}

// BuildLevel creates and classifies the level covering in.Box.
func (p *Processor) BuildLevel(ctx context.Context, level int, in *Input) (*Level, Stats, error) {
	l := NewLevel(level, in.Box)
	stats, err := p.Process(ctx, l, in)
	if err != nil {
		return nil, stats, err
	}
	return l, stats, nil
}

// Process runs all classification phases on l. States already set on l
// are kept.
func (p *Processor) Process(ctx context.Context, l *Level, in *Input) (Stats, error) {
	start := time.Now()

	b := &builder{
		reporter:       p.reporter,
		tracer:         p.tracer,
		log:            p.log,
		level:          l,
		simplification: p.opts.Simplification,
	}
	b.stats.Level = l.Level
	for _, polygon := range in.BoundingPolygons {
		b.boundingPolygons = append(b.boundingPolygons, polygon.Coords())
	}

	p.reporter.SetAction(fmt.Sprintf("Building tiles for level %d", l.Level))

	phases := []func(){
		func() { b.CalculateCoastlineData(in.Coastlines) },
		b.MarkCoastlineCells,
		b.HandleCoastlinesPartiallyInACell,
		b.HandleAreaCoastlinesCompletelyInACell,
		b.CalculateCoastEnvironment,
		func() {
			if p.opts.AssumeLand.Active(len(in.BoundingPolygons)) {
				b.AssumeLand(in.LandWays)
			}
		},
		func() { b.FillWater(p.opts.FillWaterPasses) },
		b.FillWaterAroundIsland,
		b.FillLand,
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return b.stats, fmt.Errorf("level %d: %w", l.Level, err)
		}
		phase()
	}

	l.CalculateHasCellData()

	sm := l.StateMap
	for y := uint32(0); y < sm.YCount(); y++ {
		for x := uint32(0); x < sm.XCount(); x++ {
			cell := statemap.Pixel{X: x, Y: y}
			state := sm.GetState(x, y)
			b.stats.Cells[state]++
			p.tracer.CellClassified(b.traceCell(cell), state)
		}
	}

	b.stats.Coastlines = len(b.data.Coastlines)
	b.stats.Tiles = l.TileCount()
	b.stats.Duration = time.Since(start)

	p.log.Info("Level classified",
		zap.Int("level", l.Level),
		zap.Uint32("cells_x", sm.XCount()),
		zap.Uint32("cells_y", sm.YCount()),
		zap.Int("land", b.stats.Cells[statemap.Land]),
		zap.Int("water", b.stats.Cells[statemap.Water]),
		zap.Int("coast", b.stats.Cells[statemap.Coast]),
		zap.Int("unknown", b.stats.Cells[statemap.Unknown]),
		zap.Int("tiles", b.stats.Tiles),
		zap.Duration("duration", b.stats.Duration.Round(time.Millisecond)))

	return b.stats, nil
}

// builder carries the state of one level build through its phases.
type builder struct {
	reporter progress.Reporter
	tracer   trace.Tracer
	log      *zap.Logger

	level            *Level
	data             *Data
	boundingPolygons [][]orb.Point
	simplification   Simplification

	stats Stats
}

func (b *builder) traceCell(cell statemap.Pixel) trace.Cell {
	return trace.Cell{
		Level: b.level.Level,
		Pixel: cell,
		Bound: b.level.StateMap.CellBound(cell),
	}
}

func (b *builder) addTile(cell statemap.Pixel, t tile.GroundTile) {
	b.level.addTile(cell, t)
	b.tracer.TileClosed(b.traceCell(cell), t)
}
