package water

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/geo"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

// AssumeLand selects when ways certify land under them.
type AssumeLand int

const (
	// AssumeLandAutomatic assumes land only without bounding polygons.
	AssumeLandAutomatic AssumeLand = iota
	AssumeLandEnable
	AssumeLandDisable
)

func (a AssumeLand) String() string {
	switch a {
	case AssumeLandAutomatic:
		return "automatic"
	case AssumeLandEnable:
		return "enable"
	case AssumeLandDisable:
		return "disable"
	}
	return fmt.Sprintf("AssumeLand(%d)", int(a))
}

// Active reports whether the strategy applies for the given number of
// bounding polygons.
func (a AssumeLand) Active(boundingPolygons int) bool {
	switch a {
	case AssumeLandEnable:
		return true
	case AssumeLandAutomatic:
		return boundingPolygons == 0
	}
	return false
}

// LandWay is a way that may certify land for the cells it crosses.
type LandWay struct {
	ID            int64
	IsCoastline   bool
	IgnoreSeaLand bool
	Bridge        bool
	Tunnel        bool
	Embankment    bool
	IsArea        bool
	Points        []orb.Point
}

// CertifiesLand reports whether the cells under the way must be land.
func (w LandWay) CertifiesLand() bool {
	if w.IsCoastline || w.IgnoreSeaLand || w.IsArea {
		return false
	}
	if w.Bridge || w.Tunnel || w.Embankment {
		return false
	}
	return len(w.Points) >= 2
}

func tileState(t tile.Type) statemap.State {
	switch t {
	case tile.Land:
		return statemap.Land
	case tile.Water:
		return statemap.Water
	}
	return statemap.Unknown
}

// CalculateCoastEnvironment looks for ground tile edges running along a
// whole cell border and gives the neighbour across that border the state of
// the tile, if the neighbour is still Unknown.
func (b *builder) CalculateCoastEnvironment() {
	b.reporter.Info("Calculate coast cell environment")

	sm := b.level.StateMap
	for _, cell := range b.level.Cells() {
		// top, right, bottom, left
		var state [4]statemap.State
		neighbours := [4]struct {
			ok   bool
			x, y uint32
		}{
			{cell.Y < sm.YCount()-1, cell.X, cell.Y + 1},
			{cell.X < sm.XCount()-1, cell.X + 1, cell.Y},
			{cell.Y > 0, cell.X, cell.Y - 1},
			{cell.X > 0, cell.X - 1, cell.Y},
		}

		for i, n := range neighbours {
			if n.ok {
				state[i] = sm.GetState(n.x, n.y)
			}
		}

		for _, t := range b.level.Tiles[cell] {
			ts := tileState(t.Type)
			for c := 0; c+1 < len(t.Coords); c++ {
				from, to := t.Coords[c], t.Coords[c+1]
				for i := 0; i < 4; i++ {
					if sameCorner(from, tile.Corners[i]) && sameCorner(to, tile.Corners[(i+1)%4]) && state[i] == statemap.Unknown {
						state[i] = ts
					}
				}
			}
		}

		for i, n := range neighbours {
			if n.ok && sm.GetState(n.x, n.y) == statemap.Unknown && state[i] != statemap.Unknown {
				sm.SetState(n.x, n.y, state[i])
			}
		}
	}
}

func sameCorner(c, corner tile.Coord) bool {
	return c.X == corner.X && c.Y == corner.Y
}

// isCellInBoundingPolygon reports whether the relative cell is at least
// partly inside one of the bounding polygons. Without polygons every cell
// is inside.
func (b *builder) isCellInBoundingPolygon(cell statemap.Pixel) bool {
	if len(b.boundingPolygons) == 0 {
		return true
	}

	bounds := newCellBoundaries(b.level.StateMap, cell)
	for _, polygon := range b.boundingPolygons {
		if geo.IsAreaAtLeastPartlyInArea(bounds.borderPoints[:], polygon) {
			return true
		}
	}
	return false
}

// AssumeLand sets the Unknown cells crossed by land certifying ways to Land.
func (b *builder) AssumeLand(ways []LandWay) {
	b.reporter.Info("Assume land")

	sm := b.level.StateMap
	for i, w := range ways {
		b.reporter.SetProgress(i, len(ways))
		if !w.CertifiesLand() {
			continue
		}

		for cell := range GetPathCells(sm, w.Points) {
			if sm.IsInAbsolute(cell.X, cell.Y) && sm.GetStateAbsolute(cell.X, cell.Y) == statemap.Unknown {
				sm.SetStateAbsolute(cell.X, cell.Y, statemap.Land)
			}
		}
	}
}

// FillWater grows water into Unknown neighbours for a fixed number of
// passes. Water cells outside all bounding polygons do not spread.
func (b *builder) FillWater(passes int) {
	b.reporter.Info("Filling water")

	for i := 0; i < passes; i++ {
		current := b.level.StateMap
		next := current.Clone()

		for y := uint32(0); y < current.YCount(); y++ {
			for x := uint32(0); x < current.XCount(); x++ {
				if current.GetState(x, y) != statemap.Water {
					continue
				}
				if !b.isCellInBoundingPolygon(statemap.Pixel{X: x, Y: y}) {
					continue
				}

				if y > 0 && current.GetState(x, y-1) == statemap.Unknown {
					next.SetState(x, y-1, statemap.Water)
				}
				if y < current.YCount()-1 && current.GetState(x, y+1) == statemap.Unknown {
					next.SetState(x, y+1, statemap.Water)
				}
				if x > 0 && current.GetState(x-1, y) == statemap.Unknown {
					next.SetState(x-1, y, statemap.Water)
				}
				if x < current.XCount()-1 && current.GetState(x+1, y) == statemap.Unknown {
					next.SetState(x+1, y, statemap.Water)
				}
			}
		}

		b.level.StateMap = next
	}
}

func containsCoord(tiles []tile.GroundTile, c tile.Coord) bool {
	for _, t := range tiles {
		if t.HasCoord(c) {
			return true
		}
	}
	return false
}

func containsWaterCoord(tiles []tile.GroundTile, c tile.Coord) bool {
	for _, t := range tiles {
		if t.Type == tile.Water && t.HasCoord(c) {
			return true
		}
	}
	return false
}

// containsWater reports whether the relative cell is water or holds a water
// tile touching one of the given corners.
func (b *builder) containsWater(cell statemap.Pixel, c1, c2 tile.Coord) bool {
	sm := b.level.StateMap
	if cell.X >= sm.XCount() || cell.Y >= sm.YCount() {
		return false
	}
	if sm.GetState(cell.X, cell.Y) == statemap.Water {
		return true
	}

	tiles, ok := b.level.Tiles[cell]
	if !ok {
		return false
	}
	return containsWaterCoord(tiles, c1) || containsWaterCoord(tiles, c2)
}

// FillWaterAroundIsland puts a full water tile under the tiles of cells
// that only hold islands, when a neighbouring cell holds water.
func (b *builder) FillWaterAroundIsland() {
	b.reporter.Info("Filling water around islands")

	corners := tile.Corners
	for _, cell := range b.level.Cells() {
		tiles := b.level.Tiles[cell]
		if containsCoord(tiles, corners[0]) || containsCoord(tiles, corners[1]) ||
			containsCoord(tiles, corners[2]) || containsCoord(tiles, corners[3]) {
			continue
		}

		if !b.isCellInBoundingPolygon(cell) {
			continue
		}

		fill := (cell.Y > 0 && b.containsWater(statemap.Pixel{X: cell.X, Y: cell.Y - 1}, corners[0], corners[1])) ||
			b.containsWater(statemap.Pixel{X: cell.X, Y: cell.Y + 1}, corners[2], corners[3]) ||
			(cell.X > 0 && b.containsWater(statemap.Pixel{X: cell.X - 1, Y: cell.Y}, corners[0], corners[3])) ||
			b.containsWater(statemap.Pixel{X: cell.X + 1, Y: cell.Y}, corners[1], corners[2])

		if fill {
			t := tile.GroundTile{
				Type:   tile.Water,
				Coords: []tile.Coord{corners[0], corners[1], corners[2], corners[3]},
			}
			b.level.prependTile(cell, t)
			b.tracer.TileClosed(b.traceCell(cell), t)
		}
	}
}

// FillLand turns runs of Unknown cells between a Land cell and a Land or
// Coast cell into Land, scanning rows left to right and columns bottom up
// until nothing changes.
func (b *builder) FillLand() {
	b.reporter.Info("Filling land")

	sm := b.level.StateMap
	for changed := true; changed; {
		changed = false

		for y := uint32(0); y < sm.YCount(); y++ {
			if fillRun(sm.XCount(), func(i uint32) statemap.State { return sm.GetState(i, y) },
				func(i uint32) { sm.SetState(i, y, statemap.Land) }) {
				changed = true
			}
		}

		for x := uint32(0); x < sm.XCount(); x++ {
			if fillRun(sm.YCount(), func(i uint32) statemap.State { return sm.GetState(x, i) },
				func(i uint32) { sm.SetState(x, i, statemap.Land) }) {
				changed = true
			}
		}
	}
}

// fillRun scans one line of count cells.
func fillRun(count uint32, get func(uint32) statemap.State, setLand func(uint32)) bool {
	const (
		beforeLand = iota
		afterLand
		inRun
	)

	changed := false
	state := beforeLand
	var start, end uint32

	for i := uint32(0); i < count; {
		s := get(i)
		switch state {
		case beforeLand:
			if s == statemap.Land {
				state = afterLand
			}
			i++
		case afterLand:
			if s == statemap.Unknown {
				state = inRun
				start, end = i, i
				i++
			} else {
				state = beforeLand
			}
		case inRun:
			switch s {
			case statemap.Unknown:
				end = i
				i++
			case statemap.Coast, statemap.Land:
				for j := start; j <= end; j++ {
					setLand(j)
				}
				changed = true
				state = beforeLand
			default:
				state = beforeLand
			}
		}
	}
	return changed
}

// HandleAreaCoastlinesCompletelyInACell turns islands lying inside a single
// cell into one ground tile.
func (b *builder) HandleAreaCoastlinesCompletelyInACell() {
	b.reporter.Info("Handle area coastline completely in a cell")

	sm := b.level.StateMap
	for i, c := range b.data.Coastlines {
		b.reporter.SetProgress(i+1, len(b.data.Coastlines))

		if !c.IsArea || !c.IsCompletelyInCell {
			continue
		}
		if !sm.IsInAbsolute(c.Cell.X, c.Cell.Y) {
			continue
		}

		t := tile.GroundTile{Type: tile.Land}
		switch c.Left {
		case coast.Unknown:
			t.Type = tile.Unknown
		case coast.Water:
			t.Type = tile.Water
		}

		cellMinLat := sm.CellHeight()*float64(c.Cell.Y) - 90.0
		cellMinLon := sm.CellWidth()*float64(c.Cell.X) - 180.0

		t.Coords = make([]tile.Coord, 0, len(c.Points))
		for _, p := range c.Points {
			t.Coords = append(t.Coords, Transform(p, sm, cellMinLat, cellMinLon, true))
		}
		if len(t.Coords) == 0 {
			continue
		}
		t.Coords[len(t.Coords)-1].Coast = false

		b.addTile(sm.Relative(c.Cell), t)
	}
}
