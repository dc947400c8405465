// Package water classifies the cells of one index level as land, water or
// coast and builds the ground tiles of the coast cells.
//
// A level build runs the phases in a fixed order: coastline data, coast
// marking, boundary walking, island tiles, environment, assume land, water
// fill, water around islands, land fill. Every phase only changes cells that
// are still Unknown, so a cell keeps the state it first received.
package water

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

// Level is the result of classifying one magnification level.
type Level struct {
	Level    int
	StateMap *statemap.StateMap

	// Tiles holds the ground tiles per cell, keyed by relative pixel.
	Tiles map[statemap.Pixel][]tile.GroundTile

	HasCellData     bool
	DefaultCellData statemap.State
}

// CellSize returns the cell width and height in degrees of a level.
func CellSize(level int) (width, height float64) {
	scale := math.Exp2(float64(level))
	return 360.0 / scale, 180.0 / scale
}

// NewLevel creates an all Unknown level covering box.
func NewLevel(level int, box orb.Bound) *Level {
	w, h := CellSize(level)
	return &Level{
		Level:    level,
		StateMap: statemap.New(box, w, h),
		Tiles:    make(map[statemap.Pixel][]tile.GroundTile),
	}
}

// Cells returns the pixels holding ground tiles in row order.
func (l *Level) Cells() []statemap.Pixel {
	return sortedPixels(l.Tiles)
}

// TileCount is the number of ground tiles over all cells.
func (l *Level) TileCount() int {
	n := 0
	for _, tiles := range l.Tiles {
		n += len(tiles)
	}
	return n
}

func (l *Level) addTile(p statemap.Pixel, t tile.GroundTile) {
	l.Tiles[p] = append(l.Tiles[p], t)
}

// prependTile puts t underneath the tiles already in the cell.
func (l *Level) prependTile(p statemap.Pixel, t tile.GroundTile) {
	l.Tiles[p] = append([]tile.GroundTile{t}, l.Tiles[p]...)
}

// CalculateHasCellData decides whether the level needs a per cell index.
// The default state is the state of cell 0,0. Without ground tiles the level
// has cell data only if some cell differs from it.
func (l *Level) CalculateHasCellData() {
	l.HasCellData = false
	l.DefaultCellData = statemap.Unknown

	sm := l.StateMap
	if sm.XCount() == 0 || sm.YCount() == 0 {
		return
	}

	l.DefaultCellData = sm.GetState(0, 0)
	if len(l.Tiles) > 0 {
		l.HasCellData = true
		return
	}

	for y := uint32(0); y < sm.YCount(); y++ {
		for x := uint32(0); x < sm.XCount(); x++ {
			if sm.GetState(x, y) != l.DefaultCellData {
				l.HasCellData = true
				return
			}
		}
	}
}

func sortedPixels[V any](m map[statemap.Pixel]V) []statemap.Pixel {
	keys := make([]statemap.Pixel, 0, len(m))
	for p := range m {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
