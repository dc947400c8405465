package coast

import (
	"fmt"
	"math"

	"github.com/wegman-software/waterindex-go/internal/geo"
	"github.com/wegman-software/waterindex-go/internal/progress"
)

// CloseWorldCoastlines closes open ways of a world wide import: ways whose
// ends meet on the antimeridian become areas, the Antarctica way spanning
// the whole longitude range is closed along the south pole and every other
// open way is removed.
func CloseWorldCoastlines(reporter progress.Reporter, coastlines []*Coast) []*Coast {
	removed := 0
	kept := coastlines[:0]

	for _, c := range coastlines {
		if c.IsArea {
			kept = append(kept, c)
			continue
		}

		front := c.Points[0].Coord
		back := c.Points[len(c.Points)-1].Coord

		switch {
		case math.Abs(front.Lon()) > 179.999 && math.Abs(front.Lon()-back.Lon()) < 0.001:
			c.IsArea = true
		case front.Lat() < -56 && back.Lat() < -56 &&
			front.Lon() > 179.999 && back.Lon() < -179.999:
			// Antarctica, land on the left
			c.IsArea = true
			c.Points = append(c.Points,
				Point{Coord: geo.LatLon(-90, -180)},
				Point{Coord: geo.LatLon(-90, 180)})
		case front.Lat() < -56 && back.Lat() < -56 &&
			front.Lon() < -179.999 && back.Lon() > 179.999:
			// Antarctica digitized the other way round
			c.IsArea = true
			c.Points = append(c.Points,
				Point{Coord: geo.LatLon(-90, 180)},
				Point{Coord: geo.LatLon(-90, -180)})
		default:
			removed++
			continue
		}
		kept = append(kept, c)
	}

	if removed > 0 {
		reporter.Warning(fmt.Sprintf("Removed %d unclosed coastlines", removed))
	}
	return kept
}
