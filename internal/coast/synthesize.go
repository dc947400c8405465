package coast

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/wegman-software/waterindex-go/internal/geo"
	"github.com/wegman-software/waterindex-go/internal/progress"
)

// SynthesizeCoastlines cuts the bounding polygons and the coastlines at
// their crossings. The result contains the pieces of the bounding polygons,
// the pieces of the coastlines running inside them and the islands that are
// at least partly inside a bounding polygon. Every piece carries the ID of
// its source, which for bounding polygon pieces is the data polygon ID and
// not a coastline way. Afterwards no side is left Undefined.
func SynthesizeCoastlines(reporter progress.Reporter, coastlines, boundingPolygons []*Coast) []*Coast {
	reporter.SetAction("Synthetize coastlines")
	start := time.Now()

	synthesized := synthesize(reporter, boundingPolygons, coastlines)

	for _, c := range synthesized {
		if c.Right == Undefined {
			c.Right = Unknown
		}

		if c.Left == Undefined && c.IsArea {
			coords := c.Coords()
			for _, test := range synthesized {
				if test.Right == Water && geo.IsAreaAtLeastPartlyInArea(test.Coords(), coords) {
					c.Left = Water
				}
			}
		}

		if c.Left == Undefined {
			c.Left = Land
		}
	}

	reporter.Info(fmt.Sprintf("%d bounding polygon(s), and %d coastline(s) synthesized into %d coastlines(s), took %s",
		len(boundingPolygons), len(coastlines), len(synthesized), time.Since(start).Round(time.Millisecond)))

	return synthesized
}

func synthesize(reporter progress.Reporter, boundingPolygons, coastlines []*Coast) []*Coast {
	var synthesized []*Coast

	// intersections per coastline, collected while cutting the candidates
	wayIntersections := make([][]geo.PathIntersection, len(coastlines))
	coastCoords := make([][]orb.Point, len(coastlines))
	for i, c := range coastlines {
		coastCoords[i] = c.Coords()
	}

	for _, polygon := range boundingPolygons {
		candidate := polygon.Clone()
		candidate.IsArea = true
		candidateCoords := candidate.Coords()

		var candidateIntersections []geo.PathIntersection

		for wi, c := range coastlines {
			intersections := geo.FindPathIntersections(candidateCoords, coastCoords[wi], candidate.IsArea, c.IsArea)

			// zero orientation means both paths only touch
			valid := 0
			for _, in := range intersections {
				if in.Orientation != 0 {
					candidateIntersections = append(candidateIntersections, in)
					wayIntersections[wi] = append(wayIntersections[wi], in)
					valid++
				}
			}

			if valid%2 != 0 {
				reporter.Warning(fmt.Sprintf("Odd count (%d) of valid intersections. Coastline %d", valid, c.ID))
			}
		}

		if len(candidateIntersections) == 0 {
			synthesized = append(synthesized, candidate)
			continue
		}
		if len(candidateIntersections)%2 != 0 {
			reporter.Warning(fmt.Sprintf("Odd count of intersections: %d", len(candidateIntersections)))
			continue
		}

		geo.SortByA(candidateIntersections)

		for ii := range candidateIntersections {
			int1 := candidateIntersections[ii]
			int2 := candidateIntersections[(ii+1)%len(candidateIntersections)]

			part := &Coast{
				ID:           candidate.ID,
				SortCriteria: candidate.SortCriteria,
				Right:        candidate.Right,
				Left:         Land,
			}
			if int1.Orientation > 0 {
				part.Left = Water
			}

			part.Points = append(part.Points, Point{Coord: int1.Point})
			part.Points = geo.CutPath(part.Points, candidate.Points,
				int1.AIndex+1, int2.AIndex+1,
				int1.ADistanceSquare, int2.ADistanceSquare)
			part.Points = append(part.Points, Point{Coord: int2.Point})

			synthesized = append(synthesized, part)
		}
	}

	for wi, c := range coastlines {
		intersections := wayIntersections[wi]

		if len(intersections) == 0 {
			if c.IsArea {
				coords := coastCoords[wi]
				for _, polygon := range boundingPolygons {
					if geo.IsAreaAtLeastPartlyInArea(coords, polygon.Coords()) {
						synthesized = append(synthesized, c)
						break
					}
				}
			}
			continue
		}

		if len(intersections)%2 != 0 {
			reporter.Warning(fmt.Sprintf("Odd count of intersections: %d", len(intersections)))
			continue
		}

		geo.SortByB(intersections)

		limit := len(intersections) - 1
		if c.IsArea {
			limit = len(intersections)
		}

		for ii := 0; ii < limit; ii++ {
			int1 := intersections[ii]
			int2 := intersections[(ii+1)%len(intersections)]

			if int1.Orientation < 0 {
				continue
			}

			part := &Coast{
				ID:           c.ID,
				SortCriteria: c.SortCriteria,
				Left:         c.Left,
				Right:        c.Right,
			}
			part.Points = append(part.Points, Point{Coord: int1.Point})
			part.Points = geo.CutPath(part.Points, c.Points,
				int1.BIndex+1, int2.BIndex+1,
				int1.BDistanceSquare, int2.BDistanceSquare)
			part.Points = append(part.Points, Point{Coord: int2.Point})

			synthesized = append(synthesized, part)
		}
	}

	return synthesized
}
