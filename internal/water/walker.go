package water

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

// maxWalkSteps bounds the number of path steps of one boundary walk.
const maxWalkSteps = 1000

// Reasons passed to the tracer when a walk is abandoned.
const (
	reasonAreaTripoint = "area coastline ends in a tripoint"
	reasonNoTripoint   = "no coastline continues from tripoint"
	reasonTooManySteps = "too many steps"
	reasonNotOnBorder  = "intersection not on cell border"
)

// lessCW orders intersections clockwise around the cell starting at the
// top left corner.
func lessCW(a, b *Intersection) bool {
	if a.Border != b.Border {
		return a.Border < b.Border
	}
	switch a.Border {
	case 0:
		return a.Point.Lon() < b.Point.Lon()
	case 1:
		return a.Point.Lat() > b.Point.Lat()
	case 2:
		return a.Point.Lon() > b.Point.Lon()
	default:
		return a.Point.Lat() < b.Point.Lat()
	}
}

// isLeftOnSameBorder reports whether b comes after a when walking border
// clockwise.
func isLeftOnSameBorder(border int, a, b *Intersection) bool {
	switch border {
	case 0:
		return b.Point.Lon() >= a.Point.Lon()
	case 1:
		return b.Point.Lat() <= a.Point.Lat()
	case 2:
		return b.Point.Lon() <= a.Point.Lon()
	default:
		return b.Point.Lat() >= a.Point.Lat()
	}
}

// cellWalk is the state of building the ground tiles of one cell.
type cellWalk struct {
	b      *builder
	cell   statemap.Pixel
	bounds cellBoundaries

	intersectionsCW []*Intersection
	visited         map[*Intersection]bool

	// coastlines lying completely inside the cell; their ends may be
	// tripoints
	containingPaths []int
}

func (w *cellWalk) transform(i *Intersection, coast bool) tile.Coord {
	return Transform(i.Point, w.b.level.StateMap, w.bounds.latMin, w.bounds.lonMin, coast)
}

func (w *cellWalk) transformPoint(c *CoastlineData, idx int) tile.Coord {
	return Transform(c.Points[idx], w.b.level.StateMap, w.bounds.latMin, w.bounds.lonMin, true)
}

// walkBorderCW adds the cell corners passed when going clockwise from
// incoming to outgoing, followed by outgoing itself.
func (w *cellWalk) walkBorderCW(t *tile.GroundTile, incoming, outgoing *Intersection) {
	if outgoing.Border != incoming.Border || !isLeftOnSameBorder(incoming.Border, incoming, outgoing) {
		corner := (incoming.Border + 1) % 4
		for corner != outgoing.Border {
			t.Coords = append(t.Coords, tile.Corners[corner])
			corner = (corner + 1) % 4
		}
		t.Coords = append(t.Coords, tile.Corners[corner])
	}

	t.Coords = append(t.Coords, w.transform(outgoing, false))
}

// nextCW returns the intersection following current on the border.
func (w *cellWalk) nextCW(current *Intersection) (*Intersection, bool) {
	for i, in := range w.intersectionsCW {
		if in == current {
			return w.intersectionsCW[(i+1)%len(w.intersectionsCW)], true
		}
	}
	return nil, false
}

// walkPathBack follows the coastline against its direction from start to
// end.
func (w *cellWalk) walkPathBack(t *tile.GroundTile, start, end *Intersection, c *CoastlineData) {
	t.Coords[len(t.Coords)-1].Coast = true

	if !c.IsArea {
		for idx := start.PrevWayPointIndex; idx >= end.PrevWayPointIndex+1; idx-- {
			t.Coords = append(t.Coords, w.transformPoint(c, idx))
		}
		t.Coords = append(t.Coords, w.transform(end, false))
		return
	}

	if start.PrevWayPointIndex == end.PrevWayPointIndex && start.DistanceSquare > end.DistanceSquare {
		t.Coords = append(t.Coords, w.transform(end, false))
		return
	}

	idx := start.PrevWayPointIndex
	target := end.PrevWayPointIndex + 1
	if target == len(c.Points) {
		target = 0
	}

	for idx != target {
		t.Coords = append(t.Coords, w.transformPoint(c, idx))
		if idx > 0 {
			idx--
		} else {
			idx = len(c.Points) - 1
		}
	}

	t.Coords = append(t.Coords, w.transformPoint(c, idx), w.transform(end, false))
}

// walkPathForward follows the coastline in its direction from start to end.
func (w *cellWalk) walkPathForward(t *tile.GroundTile, start, end *Intersection, c *CoastlineData) {
	t.Coords[len(t.Coords)-1].Coast = true

	if !c.IsArea {
		for idx := start.PrevWayPointIndex + 1; idx <= end.PrevWayPointIndex; idx++ {
			t.Coords = append(t.Coords, w.transformPoint(c, idx))
		}
		t.Coords = append(t.Coords, w.transform(end, false))
		return
	}

	if start.PrevWayPointIndex == end.PrevWayPointIndex && start.DistanceSquare < end.DistanceSquare {
		t.Coords = append(t.Coords, w.transform(end, false))
		return
	}

	idx := start.PrevWayPointIndex + 1
	target := end.PrevWayPointIndex
	if target == len(c.Points) {
		target = 0
	}

	for idx != target {
		t.Coords = append(t.Coords, w.transformPoint(c, idx))
		if idx >= len(c.Points)-1 {
			idx = 0
		} else {
			idx++
		}
	}

	t.Coords = append(t.Coords, w.transformPoint(c, idx), w.transform(end, false))
}

func (w *cellWalk) walkPath(t *tile.GroundTile, start, end *Intersection, c *CoastlineData) {
	if start.Direction == Out {
		w.walkPathBack(t, start, end, c)
	} else {
		w.walkPathForward(t, start, end, c)
	}
}

// findSiblingIntersection returns the crossing of the same coastline where
// the path through the cell continues. Rings may wrap around their start.
func (w *cellWalk) findSiblingIntersection(in *Intersection, isArea bool) *Intersection {
	search := In
	if in.Direction == In {
		search = Out
	}

	var candidates []*Intersection
	for _, i := range w.intersectionsCW {
		if i.Coastline == in.Coastline && i.Direction == search {
			candidates = append(candidates, i)
		}
	}

	var result *Intersection
	for _, i := range candidates {
		if in.Direction == In {
			if i.PrevWayPointIndex >= in.PrevWayPointIndex && (result == nil || i.PrevWayPointIndex < result.PrevWayPointIndex) {
				result = i
			}
		} else if i.PrevWayPointIndex <= in.PrevWayPointIndex && (result == nil || i.PrevWayPointIndex > result.PrevWayPointIndex) {
			result = i
		}
	}

	if result != nil || !isArea {
		return result
	}

	for _, i := range candidates {
		if in.Direction == In {
			if i.PrevWayPointIndex <= in.PrevWayPointIndex && (result == nil || i.PrevWayPointIndex < result.PrevWayPointIndex) {
				result = i
			}
		} else if i.PrevWayPointIndex >= in.PrevWayPointIndex && (result == nil || i.PrevWayPointIndex > result.PrevWayPointIndex) {
			result = i
		}
	}
	return result
}

// pathEndpoint builds the synthetic crossing at an end of a coastline. At
// the back end the path leaves, at the front end it enters.
func pathEndpoint(coastline int, c *CoastlineData, back bool) *Intersection {
	if back {
		return &Intersection{
			Coastline:         coastline,
			PrevWayPointIndex: len(c.Points) - 1,
			Point:             c.Points[len(c.Points)-1],
			Direction:         Out,
		}
	}
	return &Intersection{
		Coastline: coastline,
		Point:     c.Points[0],
		Direction: In,
	}
}

// walkFromTripoint continues a walk that reached the end of its coastline
// inside the cell. It picks the coastline starting or ending at the same
// point that turns most sharply clockwise and has the walked state on the
// walked side. pathStart becomes the new path; pathEnd is set once that
// path leaves the cell.
func (w *cellWalk) walkFromTripoint(t *tile.GroundTile, pathStart, pathEnd **Intersection) bool {
	data := w.b.data
	start := *pathStart
	c := data.Coastlines[start.Coastline]

	if len(c.Points) < 2 {
		return false
	}

	tripoint, previous := c.Points[0], c.Points[1]
	walkType := c.Left
	if start.Direction == In {
		tripoint, previous = c.Points[len(c.Points)-1], c.Points[len(c.Points)-2]
		walkType = c.Right
	}

	candidates := make([]int, 0, len(w.intersectionsCW)+len(w.containingPaths))
	for _, i := range w.intersectionsCW {
		candidates = append(candidates, i.Coastline)
	}
	candidates = append(candidates, w.containingPaths...)

	var (
		outgoing      *Intersection
		outgoingEnd   *Intersection
		outgoingAngle float64
		outgoingPath  *CoastlineData
		intersectCell bool
	)

	for _, pathIndex := range candidates {
		if pathIndex == start.Coastline {
			continue
		}

		path := data.Coastlines[pathIndex]
		if len(path.Points) < 2 {
			continue
		}

		front, back := path.Points[0], path.Points[len(path.Points)-1]
		if !tripoint.Equal(front) && !tripoint.Equal(back) {
			continue
		}

		// the path leaves the tripoint when it starts there
		leaves := tripoint.Equal(front)
		if (leaves && walkType != path.Right) || (!leaves && walkType != path.Left) {
			continue
		}

		previousOut := path.Points[len(path.Points)-2]
		if leaves {
			previousOut = path.Points[1]
		}

		angle := (tripoint.Lon()-previous.Lon())*(previousOut.Lat()-tripoint.Lat()) -
			(tripoint.Lat()-previous.Lat())*(previousOut.Lon()-tripoint.Lon())

		if outgoing != nil && angle >= outgoingAngle {
			continue
		}

		outgoingAngle = angle
		outgoingPath = path

		// walking away from the tripoint enters the path at the tripoint
		outgoing = pathEndpoint(pathIndex, path, !leaves)
		outgoing.Point = tripoint
		outgoing.Direction = In
		if !leaves {
			outgoing.Direction = Out
		}

		var pathCellIntersection *Intersection
		for _, ci := range w.intersectionsCW {
			if ci.Coastline != pathIndex {
				continue
			}
			if pathCellIntersection == nil {
				pathCellIntersection = ci
				continue
			}
			if leaves && (pathCellIntersection.PrevWayPointIndex > ci.PrevWayPointIndex ||
				(pathCellIntersection.PrevWayPointIndex == ci.PrevWayPointIndex &&
					pathCellIntersection.DistanceSquare > ci.DistanceSquare)) {
				pathCellIntersection = ci
			}
			if !leaves && (pathCellIntersection.PrevWayPointIndex < ci.PrevWayPointIndex ||
				(pathCellIntersection.PrevWayPointIndex == ci.PrevWayPointIndex &&
					pathCellIntersection.DistanceSquare < ci.DistanceSquare)) {
				pathCellIntersection = ci
			}
		}

		intersectCell = pathCellIntersection != nil
		if intersectCell {
			outgoingEnd = pathCellIntersection
		} else {
			outgoingEnd = pathEndpoint(pathIndex, path, leaves)
			outgoingEnd.Direction = Out
			if !leaves {
				outgoingEnd.Direction = In
			}
		}
	}

	if outgoing == nil || outgoing.Direction == outgoingEnd.Direction {
		return false
	}

	if intersectCell {
		*pathEnd = outgoingEnd
	}

	w.walkPath(t, outgoing, outgoingEnd, outgoingPath)
	*pathStart = outgoing

	return true
}

// walkBoundaryCW builds one ground tile starting at start. It returns an
// empty reason on success.
func (w *cellWalk) walkBoundaryCW(t *tile.GroundTile, start *Intersection) string {
	data := w.b.data

	t.Coords = append(t.Coords, w.transform(start, false))

	pathStart := start
	for step := 0; step == 0 || pathStart != start; {
		w.visited[pathStart] = true

		c := data.Coastlines[pathStart.Coastline]
		pathEnd := w.findSiblingIntersection(pathStart, c.IsArea)

		if pathEnd == nil {
			// the path ends inside the cell
			end := pathEndpoint(pathStart.Coastline, c, pathStart.Direction == In)
			w.walkPath(t, pathStart, end, c)

			for pathEnd == nil {
				if c.IsArea {
					return reasonAreaTripoint
				}

				if !w.walkFromTripoint(t, &pathStart, &pathEnd) {
					return reasonNoTripoint
				}

				step++
				if step > maxWalkSteps {
					return reasonTooManySteps
				}
			}
		} else {
			w.walkPath(t, pathStart, pathEnd, c)
		}

		step++
		if step > maxWalkSteps {
			return reasonTooManySteps
		}

		next, ok := w.nextCW(pathEnd)
		if !ok {
			return reasonNotOnBorder
		}
		pathStart = next

		w.walkBorderCW(t, pathEnd, pathStart)
	}

	return ""
}

// HandleCoastlineCell builds the ground tiles of a cell crossed by the given
// coastlines.
func (b *builder) HandleCoastlineCell(cell statemap.Pixel, coastlines []int) {
	w := &cellWalk{
		b:       b,
		cell:    cell,
		bounds:  newCellBoundaries(b.level.StateMap, cell),
		visited: make(map[*Intersection]bool),
	}

	for _, ci := range coastlines {
		w.intersectionsCW = append(w.intersectionsCW, b.data.Coastlines[ci].CellIntersections[cell]...)
	}
	sort.SliceStable(w.intersectionsCW, func(i, j int) bool {
		return lessCW(w.intersectionsCW[i], w.intersectionsCW[j])
	})

	for _, ci := range b.data.CellCoveredCoastlines[cell] {
		c := b.data.Coastlines[ci]
		if !c.IsArea && c.IsCompletelyInCell {
			w.containingPaths = append(w.containingPaths, ci)
		}
	}

	for _, in := range w.intersectionsCW {
		if in.Direction == Touch {
			id := b.data.Coastlines[in.Coastline].ID
			b.reporter.Warning(fmt.Sprintf("Skipping touching intersection of coastline %d in level %d cell %d,%d",
				id, b.level.Level, cell.X, cell.Y))
			b.log.Debug("Skipping touching intersection",
				zap.Int("level", b.level.Level),
				zap.Uint32("x", cell.X),
				zap.Uint32("y", cell.Y),
				zap.Int64("coastline", id))
			b.stats.SkippedTouches++
			continue
		}
		if w.visited[in] {
			continue
		}

		c := b.data.Coastlines[in.Coastline]
		side := c.Left
		if in.Direction == In {
			side = c.Right
		}

		t := tile.GroundTile{Type: tile.Unknown}
		switch side {
		case coast.Land:
			t.Type = tile.Land
		case coast.Water:
			t.Type = tile.Water
		}

		if reason := w.walkBoundaryCW(&t, in); reason != "" {
			b.reporter.Warning("Can't walk around cell boundary!")
			b.stats.AbortedWalks++
			b.tracer.WalkAborted(b.traceCell(cell), reason)
			continue
		}

		b.addTile(cell, t)
	}
}

// HandleCoastlinesPartiallyInACell builds the ground tiles of every cell
// crossed by a coastline.
func (b *builder) HandleCoastlinesPartiallyInACell() {
	b.reporter.Info("Handle coastlines partially in a cell")

	cells := sortedPixels(b.data.CellCoastlines)
	for i, cell := range cells {
		b.reporter.SetProgress(i, len(cells))
		b.HandleCoastlineCell(cell, b.data.CellCoastlines[cell])
	}
}
