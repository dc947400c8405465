// Package export writes the cells and ground tiles of a water index to
// Parquet, FlatGeobuf and PostGIS.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/waterindex-go/internal/proj"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/waterindex"
)

// Kind tells cells and ground tiles apart.
type Kind string

const (
	KindCell Kind = "cell"
	KindTile Kind = "tile"
)

// Feature is one exported polygon.
type Feature struct {
	Kind  Kind
	Level int
	X, Y  uint32
	// Tile is the index of the ground tile inside its cell, -1 for cells.
	Tile       int
	State      string
	CoastEdges int
	Geometry   orb.Ring
}

// Sink receives exported features.
type Sink interface {
	Write(f *Feature) error
	Close() error
}

// Options select what is exported.
type Options struct {
	// Levels to export, all levels with cell data when empty.
	Levels []int
	SRID   int
	Cells  bool
	Tiles  bool
}

// Stats holds export statistics
type Stats struct {
	Levels   int
	Cells    int64
	Tiles    int64
	Duration time.Duration
}

func (o *Options) selected(level int) bool {
	if len(o.Levels) == 0 {
		return true
	}
	for _, l := range o.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// Export streams the selected levels of idx to all sinks. Cells of unknown
// state are skipped. Levels without cell data have a single default state
// and are skipped as well.
func Export(ctx context.Context, idx *waterindex.Index, opts Options, log *zap.Logger, sinks ...Sink) (stats Stats, err error) {
	start := time.Now()
	// sinks are closed on failure too, the first error wins
	defer func() {
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		stats.Duration = time.Since(start)
	}()

	if log == nil {
		log = zap.NewNop()
	}
	if opts.SRID == 0 {
		opts.SRID = proj.SRID4326
	}
	transformer, err := proj.NewTransformer(proj.SRID4326, opts.SRID)
	if err != nil {
		return stats, err
	}

	emit := func(f *Feature) error {
		for _, s := range sinks {
			if err := s.Write(f); err != nil {
				return err
			}
		}
		return nil
	}

	for i := range idx.Levels {
		e := &idx.Levels[i]
		if !opts.selected(e.Level) {
			continue
		}
		if !e.HasCellData {
			log.Info("Skipping level without cell data",
				zap.Int("level", e.Level),
				zap.Stringer("state", e.DefaultCellData))
			continue
		}
		stats.Levels++

		for y := e.YStart; y <= e.YEnd; y++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			for x := e.XStart; x <= e.XEnd; x++ {
				region, err := idx.Cell(e.Level, x, y)
				if err != nil {
					return stats, fmt.Errorf("failed to read cell %d,%d of level %d: %w", x, y, e.Level, err)
				}
				if region.State == statemap.Unknown {
					continue
				}

				if opts.Cells {
					err := emit(&Feature{
						Kind:     KindCell,
						Level:    e.Level,
						X:        x,
						Y:        y,
						Tile:     -1,
						State:    region.State.String(),
						Geometry: transformer.TransformRing(region.Bound.ToRing()),
					})
					if err != nil {
						return stats, err
					}
					stats.Cells++
				}

				if !opts.Tiles {
					continue
				}
				for n, t := range region.Tiles {
					coastEdges := 0
					for _, c := range t.Coords {
						if c.Coast {
							coastEdges++
						}
					}
					err := emit(&Feature{
						Kind:       KindTile,
						Level:      e.Level,
						X:          x,
						Y:          y,
						Tile:       n,
						State:      t.Type.String(),
						CoastEdges: coastEdges,
						Geometry:   transformer.TransformRing(t.Ring(region.Bound)),
					})
					if err != nil {
						return stats, err
					}
					stats.Tiles++
				}
			}
		}

		log.Debug("Level exported",
			zap.Int("level", e.Level),
			zap.Int64("cells", stats.Cells),
			zap.Int64("tiles", stats.Tiles))
	}

	return stats, nil
}
