package geo

import (
	"github.com/paulmach/orb"
)

// lineTerms returns the denominator and the two numerators of the parametric
// segment intersection of a1-a2 and b1-b2.
func lineTerms(a1, a2, b1, b2 orb.Point) (denr, uaNumr, ubNumr float64) {
	denr = (b2[1]-b1[1])*(a2[0]-a1[0]) - (b2[0]-b1[0])*(a2[1]-a1[1])
	uaNumr = (b2[0]-b1[0])*(a1[1]-b1[1]) - (b2[1]-b1[1])*(a1[0]-b1[0])
	ubNumr = (a2[0]-a1[0])*(a1[1]-b1[1]) - (a2[1]-a1[1])*(a1[0]-b1[0])
	return
}

// LinesIntersect reports whether the segments a1-a2 and b1-b2 touch or cross.
// Shared end points always count as an intersection.
func LinesIntersect(a1, a2, b1, b2 orb.Point) bool {
	if a1.Equal(b1) || a1.Equal(b2) || a2.Equal(b1) || a2.Equal(b2) {
		return true
	}
	if a1.Equal(a2) && b1.Equal(b2) {
		return false
	}

	denr, uaNumr, ubNumr := lineTerms(a1, a2, b1, b2)
	if denr == 0 {
		if uaNumr != 0 || ubNumr != 0 {
			return false
		}
		// collinear, compare the extents
		aBox := SegmentBound(a1, a2)
		bBox := SegmentBound(b1, b2)
		return includesClosed(bBox, a1) || includesClosed(bBox, a2) ||
			includesClosed(aBox, b1) || includesClosed(aBox, b2)
	}

	ua := uaNumr / denr
	ub := ubNumr / denr
	return ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1
}

// LineIntersection returns the intersection point of the segments a1-a2 and
// b1-b2. For collinear overlapping segments the first end point lying on the
// other segment is returned.
func LineIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	if a1.Equal(b1) || a1.Equal(b2) {
		return a1, true
	}
	if a2.Equal(b1) || a2.Equal(b2) {
		return a2, true
	}
	if a1.Equal(a2) && b1.Equal(b2) {
		return orb.Point{}, false
	}

	denr, uaNumr, ubNumr := lineTerms(a1, a2, b1, b2)
	if denr == 0 {
		if uaNumr != 0 || ubNumr != 0 {
			return orb.Point{}, false
		}
		aBox := SegmentBound(a1, a2)
		bBox := SegmentBound(b1, b2)
		switch {
		case includesClosed(bBox, a1):
			return a1, true
		case includesClosed(bBox, a2):
			return a2, true
		case includesClosed(aBox, b1):
			return b1, true
		case includesClosed(aBox, b2):
			return b2, true
		}
		return orb.Point{}, false
	}

	ua := uaNumr / denr
	ub := ubNumr / denr
	if ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1 {
		return LatLon(a1[1]+ua*(a2[1]-a1[1]), a1[0]+ua*(a2[0]-a1[0])), true
	}
	return orb.Point{}, false
}
