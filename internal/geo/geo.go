// Package geo holds the planar geometry helpers used by the coastline and
// water classification code. Coordinates are orb.Point values with X=lon and
// Y=lat; all predicates operate on raw degrees without any projection.
package geo

import (
	"github.com/paulmach/orb"
)

// LatLon builds a point from latitude and longitude.
func LatLon(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// WorldBound covers the whole lat/lon range.
var WorldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// BoundOf returns the bounding box of the given points.
func BoundOf(points []orb.Point) orb.Bound {
	return orb.LineString(points).Bound()
}

// SegmentBound returns the bounding box of the segment a-b.
func SegmentBound(a, b orb.Point) orb.Bound {
	return orb.Bound{Min: a, Max: a}.Extend(b)
}

// includesClosed reports whether p lies inside b, borders included.
func includesClosed(b orb.Bound, p orb.Point) bool {
	return b.Min[1] <= p[1] && b.Max[1] >= p[1] &&
		b.Min[0] <= p[0] && b.Max[0] >= p[0]
}

// intersectsOpen is the half open box test: the max edges of b are exclusive.
func intersectsOpen(b, other orb.Bound) bool {
	return !(other.Max[0] < b.Min[0] ||
		other.Min[0] >= b.Max[0] ||
		other.Max[1] < b.Min[1] ||
		other.Min[1] >= b.Max[1])
}

// intersectsClosed is the closed box test.
func intersectsClosed(b, other orb.Bound) bool {
	return !(other.Max[0] < b.Min[0] ||
		other.Min[0] > b.Max[0] ||
		other.Max[1] < b.Min[1] ||
		other.Min[1] > b.Max[1])
}

// DistanceSquare is the squared euclidean distance in degrees.
func DistanceSquare(a, b orb.Point) float64 {
	dlon := a[0] - b[0]
	dlat := a[1] - b[1]
	return dlon*dlon + dlat*dlat
}
