package water

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/geo"
	"github.com/wegman-software/waterindex-go/internal/proj"
	"github.com/wegman-software/waterindex-go/internal/statemap"
)

// Direction of a coastline crossing relative to the cell.
type Direction uint8

const (
	In Direction = iota
	Out
	Touch
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Touch:
		return "touch"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Intersection is a crossing of a coastline segment with a cell border.
type Intersection struct {
	Coastline         int // index into Data.Coastlines
	Point             orb.Point
	PrevWayPointIndex int
	DistanceSquare    float64
	Border            int // 0 top, 1 right, 2 bottom, 3 left
	Direction         Direction
}

// CoastlineData is a coastline prepared for one level.
type CoastlineData struct {
	ID          int64
	IsArea      bool
	Left, Right coast.State

	// Points of an area repeat the first point at the end.
	Points []orb.Point

	// Cell is the absolute cell holding the whole coastline when
	// IsCompletelyInCell is set.
	Cell               statemap.Pixel
	IsCompletelyInCell bool

	CellIntersections map[statemap.Pixel][]*Intersection
}

// Data owns the coastlines of one level. Intersections and cell lists refer
// to coastlines by index.
type Data struct {
	Coastlines []*CoastlineData

	// CellCoastlines lists the coastlines crossing a relative cell border.
	CellCoastlines map[statemap.Pixel][]int

	// CellCoveredCoastlines lists the coastlines lying completely inside a
	// relative cell.
	CellCoveredCoastlines map[statemap.Pixel][]int
}

// Simplification controls the per level reduction of coastline points.
// Tolerance and MinObjectDimension are in Web Mercator pixels of the level.
// Islands whose width or height does not exceed MinObjectDimension are
// dropped; zero keeps all of them.
type Simplification struct {
	Enabled            bool
	Tolerance          float64
	MinObjectDimension float64
}

// DefaultSimplification matches the defaults of the build configuration.
var DefaultSimplification = Simplification{Enabled: true, Tolerance: 10, MinObjectDimension: 1}

// CalculateCoastlineData prepares the coastlines for the level: areas too
// small to be visible are dropped, points are simplified, islands crossing a
// coastline way are removed and the crossings with the cell borders are
// collected.
func (b *builder) CalculateCoastlineData(coastlines []*coast.Coast) {
	b.reporter.Info("Calculate coastline data")

	sm := b.level.StateMap
	transformed := make([]*CoastlineData, len(coastlines))

	for i, c := range coastlines {
		b.reporter.SetProgress(i, len(coastlines))

		coords := c.Coords()
		if len(coords) == 0 {
			continue
		}

		if c.IsArea && b.simplification.MinObjectDimension > 0 {
			width, height := b.pixelSize(geo.BoundOf(coords))
			if width <= b.simplification.MinObjectDimension || height <= b.simplification.MinObjectDimension {
				continue
			}
		}

		data := &CoastlineData{
			ID:     c.ID,
			IsArea: c.IsArea,
			Left:   c.Left,
			Right:  c.Right,
			Points: b.simplify(coords, c.IsArea),
		}

		if c.IsArea {
			if !data.Points[0].Equal(data.Points[len(data.Points)-1]) {
				data.Points = append(data.Points, data.Points[0])
			}
			// island reduced to a line
			if len(data.Points) <= 3 {
				continue
			}
		}

		transformed[i] = data
	}

	b.filterIntersectingIslands(coastlines, transformed)

	b.reporter.Info("Calculate covered tiles")

	b.data = &Data{
		CellCoastlines:        make(map[statemap.Pixel][]int),
		CellCoveredCoastlines: make(map[statemap.Pixel][]int),
	}

	for i, data := range transformed {
		b.reporter.SetProgress(i, len(transformed))
		if data == nil {
			continue
		}

		index := len(b.data.Coastlines)
		b.data.Coastlines = append(b.data.Coastlines, data)

		box := geo.BoundOf(coastlines[i].Coords())
		cxMin := uint32(math.Floor((box.Min.Lon() + 180.0) / sm.CellWidth()))
		cxMax := uint32(math.Floor((box.Max.Lon() + 180.0) / sm.CellWidth()))
		cyMin := uint32(math.Floor((box.Min.Lat() + 90.0) / sm.CellHeight()))
		cyMax := uint32(math.Floor((box.Max.Lat() + 90.0) / sm.CellHeight()))

		if cxMin == cxMax && cyMin == cyMax {
			data.Cell = statemap.Pixel{X: cxMin, Y: cyMin}
			data.IsCompletelyInCell = true

			if sm.IsInAbsolute(cxMin, cyMin) {
				rel := sm.Relative(data.Cell)
				b.data.CellCoveredCoastlines[rel] = append(b.data.CellCoveredCoastlines[rel], index)
			}
			continue
		}

		data.CellIntersections = getCellIntersections(sm, data.Points, index)
		for _, cell := range sortedPixels(data.CellIntersections) {
			b.data.CellCoastlines[cell] = append(b.data.CellCoastlines[cell], index)
		}
	}

	b.reporter.Info(fmt.Sprintf("Initial %d coastline(s) transformed to %d coastline(s)",
		len(coastlines), len(b.data.Coastlines)))
}

// filterIntersectingIslands drops islands whose simplified ring crosses a
// simplified coastline way. Later phases rely on coastlines not crossing.
// Pairs of ways or pairs of islands are not checked.
func (b *builder) filterIntersectingIslands(coastlines []*coast.Coast, transformed []*CoastlineData) {
	haveAreas, haveWays := false, false
	for _, data := range transformed {
		if data == nil {
			continue
		}
		if data.IsArea {
			haveAreas = true
		} else {
			haveWays = true
		}
	}
	if !haveAreas || !haveWays {
		return
	}

	b.reporter.Info("Filter intersecting islands")

	for i := range transformed {
		b.reporter.SetProgress(i, len(transformed))
		for j := i + 1; j < len(transformed); j++ {
			a, o := transformed[i], transformed[j]
			if a == nil || o == nil || a.IsArea == o.IsArea {
				continue
			}

			if len(geo.FindPathIntersections(a.Points, o.Points, a.IsArea, o.IsArea)) == 0 {
				continue
			}

			b.reporter.Warning(fmt.Sprintf("Detected intersection %d <> %d", coastlines[i].ID, coastlines[j].ID))
			if a.IsArea {
				transformed[i] = nil
			} else {
				transformed[j] = nil
			}
		}
	}
}

// pixelSize returns the extent of box in pixels of the level.
func (b *builder) pixelSize(box orb.Bound) (float64, float64) {
	x1, y1 := proj.ToPixel(box.Min.Lon(), box.Min.Lat(), b.level.Level)
	x2, y2 := proj.ToPixel(box.Max.Lon(), box.Max.Lat(), b.level.Level)
	return math.Abs(x2 - x1), math.Abs(y2 - y1)
}

// simplify reduces coords with Douglas-Peucker in the pixel space of the
// level and returns the kept original coordinates. The end points are
// always kept.
func (b *builder) simplify(coords []orb.Point, isArea bool) []orb.Point {
	if !b.simplification.Enabled || len(coords) <= 2 {
		return append([]orb.Point(nil), coords...)
	}

	path := coords
	if isArea {
		path = append(append([]orb.Point(nil), coords...), coords[0])
	}

	pixels := make(orb.LineString, len(path))
	for i, p := range path {
		x, y := proj.ToPixel(p.Lon(), p.Lat(), b.level.Level)
		pixels[i] = orb.Point{x, y}
	}
	original := append(orb.LineString(nil), pixels...)

	kept := simplify.DouglasPeucker(b.simplification.Tolerance).LineString(pixels)

	last := len(path) - 1
	result := make([]orb.Point, 0, len(kept))
	result = append(result, path[0])

	j := 1
	for _, k := range kept[1 : len(kept)-1] {
		for j < last && !original[j].Equal(k) {
			j++
		}
		if j == last {
			break
		}
		result = append(result, path[j])
		j++
	}

	result = append(result, path[last])
	if isArea {
		// the closing point is added back by the caller
		result = result[:len(result)-1]
	}
	return result
}
