package water

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/geo"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

// cellBoundaries describes the border of one relative cell.
type cellBoundaries struct {
	lonMin, lonMax float64
	latMin, latMax float64

	// clockwise from top left, matching tile.Corners
	borderPoints [4]orb.Point
}

func newCellBoundaries(sm *statemap.StateMap, cell statemap.Pixel) cellBoundaries {
	return absoluteCellBoundaries(sm, sm.XStart()+cell.X, sm.YStart()+cell.Y)
}

func absoluteCellBoundaries(sm *statemap.StateMap, x, y uint32) cellBoundaries {
	var b cellBoundaries
	b.lonMin = float64(x)*sm.CellWidth() - 180.0
	b.lonMax = float64(x+1)*sm.CellWidth() - 180.0
	b.latMin = float64(y)*sm.CellHeight() - 90.0
	b.latMax = float64(y+1)*sm.CellHeight() - 90.0

	b.borderPoints = [4]orb.Point{
		geo.LatLon(b.latMax, b.lonMin),
		geo.LatLon(b.latMax, b.lonMax),
		geo.LatLon(b.latMin, b.lonMax),
		geo.LatLon(b.latMin, b.lonMin),
	}
	return b
}

// border returns the end points of border edge i (0 top, 1 right, 2 bottom,
// 3 left).
func (b *cellBoundaries) border(i int) (orb.Point, orb.Point) {
	return b.borderPoints[i], b.borderPoints[(i+1)%4]
}

// Transform converts a coordinate into the fixed point space of the cell
// whose lower left corner is cellMinLat/cellMinLon. Values outside the cell
// are clamped to [0, CellMax].
func Transform(p orb.Point, sm *statemap.StateMap, cellMinLat, cellMinLon float64, coast bool) tile.Coord {
	return tile.Coord{
		X:     fixedPoint((p.Lon() - cellMinLon) / sm.CellWidth()),
		Y:     fixedPoint((p.Lat() - cellMinLat) / sm.CellHeight()),
		Coast: coast,
	}
}

func fixedPoint(fraction float64) uint16 {
	v := math.Floor(fraction*tile.CellMax + 0.5)
	if v <= 0 {
		return 0
	}
	if v >= tile.CellMax {
		return tile.CellMax
	}
	return uint16(v)
}

// cellIndex returns the absolute cell of p. Truncation matches the segment
// walk; the window uses floor.
func cellIndex(sm *statemap.StateMap, p orb.Point) (uint32, uint32) {
	return uint32((p.Lon() + 180.0) / sm.CellWidth()),
		uint32((p.Lat() + 90.0) / sm.CellHeight())
}

func span(a, b uint32) (uint32, uint32) {
	if a < b {
		return a, b
	}
	return b, a
}

// GetCells adds the absolute cells crossed by the segment a-b to cells.
func GetCells(sm *statemap.StateMap, a, b orb.Point, cells map[statemap.Pixel]struct{}) {
	cx1, cy1 := cellIndex(sm, a)
	cx2, cy2 := cellIndex(sm, b)

	cells[statemap.Pixel{X: cx1, Y: cy1}] = struct{}{}

	if cx1 == cx2 && cy1 == cy2 {
		return
	}

	xMin, xMax := span(cx1, cx2)
	yMin, yMax := span(cy1, cy2)
	for x := xMin; x <= xMax; x++ {
		for y := yMin; y <= yMax; y++ {
			bounds := absoluteCellBoundaries(sm, x, y)
			for corner := 0; corner < 4; corner++ {
				p1, p2 := bounds.border(corner)
				if geo.LinesIntersect(a, b, p1, p2) {
					cells[statemap.Pixel{X: x, Y: y}] = struct{}{}
					break
				}
			}
		}
	}
}

// GetPathCells returns the absolute cells crossed by any segment of points.
func GetPathCells(sm *statemap.StateMap, points []orb.Point) map[statemap.Pixel]struct{} {
	cells := make(map[statemap.Pixel]struct{})
	for p := 0; p+1 < len(points); p++ {
		GetCells(sm, points[p], points[p+1], cells)
	}
	return cells
}

// getCellIntersections computes the border crossings of every segment of
// points with the cells of the window, keyed by relative pixel.
func getCellIntersections(sm *statemap.StateMap, points []orb.Point, coastline int) map[statemap.Pixel][]*Intersection {
	result := make(map[statemap.Pixel][]*Intersection)

	for p := 0; p+1 < len(points); p++ {
		cx1, cy1 := cellIndex(sm, points[p])
		cx2, cy2 := cellIndex(sm, points[p+1])

		if cx1 == cx2 && cy1 == cy2 {
			continue
		}

		xMin, xMax := span(cx1, cx2)
		yMin, yMax := span(cy1, cy2)
		for x := xMin; x <= xMax; x++ {
			for y := yMin; y <= yMax; y++ {
				if !sm.IsInAbsolute(x, y) {
					continue
				}

				cell := statemap.Pixel{X: x - sm.XStart(), Y: y - sm.YStart()}
				bounds := absoluteCellBoundaries(sm, x, y)

				var hits [2]*Intersection
				count := 0
				corner := 0
				for ; corner < 4 && count < 2; corner++ {
					b1, b2 := bounds.border(corner)
					point, ok := geo.LineIntersection(points[p], points[p+1], b1, b2)
					if !ok {
						continue
					}
					hits[count] = &Intersection{
						Coastline:         coastline,
						Point:             point,
						PrevWayPointIndex: p,
						DistanceSquare:    geo.DistanceSquare(points[p], point),
						Border:            corner,
					}
					count++
				}

				switch {
				case count == 2:
					in, out := hits[0], hits[1]
					if in.DistanceSquare > out.DistanceSquare {
						in, out = out, in
					}
					in.Direction = In
					out.Direction = Out
					result[cell] = append(result[cell], in, out)
				case count == 1 && x == cx1 && y == cy1:
					// a segment always leaves its origin cell
					hits[0].Direction = Out
					result[cell] = append(result[cell], hits[0])
				case count == 1 && x == cx2 && y == cy2:
					hits[0].Direction = In
					result[cell] = append(result[cell], hits[0])
				case count == 1:
					hits[0].Direction = Touch
					result[cell] = append(result[cell], hits[0])
				}
			}
		}
	}

	return result
}

// MarkCoastlineCells sets every Unknown cell crossed by a coastline to Coast.
func (b *builder) MarkCoastlineCells() {
	b.reporter.Info("Marking cells containing coastlines")

	sm := b.level.StateMap
	for _, c := range b.data.Coastlines {
		for cell := range GetPathCells(sm, c.Points) {
			if sm.IsInAbsolute(cell.X, cell.Y) && sm.GetStateAbsolute(cell.X, cell.Y) == statemap.Unknown {
				sm.SetStateAbsolute(cell.X, cell.Y, statemap.Coast)
			}
		}
	}
}
