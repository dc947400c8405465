// Package tile defines ground tiles, the explicit land/water polygons stored
// for coast cells.
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
)

// CellMax is the largest cell local coordinate. Bit 15 of a serialized x
// coordinate carries the coast flag.
const CellMax = 32767

// Type of a ground tile.
type Type uint8

const (
	Unknown Type = 0
	Land    Type = 1
	Water   Type = 2
	Coast   Type = 3
)

func (t Type) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case Land:
		return "land"
	case Water:
		return "water"
	case Coast:
		return "coast"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Coord is a cell local fixed point coordinate in [0, CellMax]. Coast marks
// the edge starting at this coordinate as real coastline rather than cell
// border.
type Coord struct {
	X, Y  uint16
	Coast bool
}

// Corners of a cell in clockwise order starting top left.
var Corners = [4]Coord{
	{X: 0, Y: CellMax},
	{X: CellMax, Y: CellMax},
	{X: CellMax, Y: 0},
	{X: 0, Y: 0},
}

// GroundTile is one polygon inside a cell. The closing edge is implied.
type GroundTile struct {
	Type   Type
	Coords []Coord
}

// HasCoord reports whether c is one of the tile coordinates.
func (t GroundTile) HasCoord(c Coord) bool {
	for _, tc := range t.Coords {
		if tc == c {
			return true
		}
	}
	return false
}

// Ring converts the tile into a closed ring inside the cell bound.
func (t GroundTile) Ring(cell orb.Bound) orb.Ring {
	width := cell.Max[0] - cell.Min[0]
	height := cell.Max[1] - cell.Min[1]

	ring := make(orb.Ring, 0, len(t.Coords)+1)
	for _, c := range t.Coords {
		ring = append(ring, orb.Point{
			cell.Min[0] + float64(c.X)/CellMax*width,
			cell.Min[1] + float64(c.Y)/CellMax*height,
		})
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}
