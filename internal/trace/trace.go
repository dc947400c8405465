// Package trace exposes hook points of the water index build for debugging
// and inspection.
package trace

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

// Cell identifies a cell of one level.
type Cell struct {
	Level int
	Pixel statemap.Pixel // relative to the level window
	Bound orb.Bound
}

// Tracer receives build events. Implementations must be safe for concurrent
// use when levels are built in parallel.
type Tracer interface {
	CellClassified(cell Cell, state statemap.State)
	TileClosed(cell Cell, t tile.GroundTile)
	WalkAborted(cell Cell, reason string)
}

// Nop ignores all events.
type Nop struct{}

func (Nop) CellClassified(Cell, statemap.State) {}
func (Nop) TileClosed(Cell, tile.GroundTile)    {}
func (Nop) WalkAborted(Cell, string)            {}
