package geo

import (
	"github.com/paulmach/orb"
)

// Relation of a point to a ring.
const (
	Outside  = -1
	OnBorder = 0
	Inside   = 1
)

// RelationOfPointToArea classifies p against the ring (closing edge implied).
// Only vertices count as OnBorder; points on an edge fall either way.
func RelationOfPointToArea(p orb.Point, ring []orb.Point) int {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		ni, nj := ring[i], ring[j]
		if p[1] == ni[1] && p[0] == ni[0] {
			return OnBorder
		}
		if ((ni[1] <= p[1] && p[1] < nj[1]) || (nj[1] <= p[1] && p[1] < ni[1])) &&
			p[0] < (nj[0]-ni[0])*(p[1]-ni[1])/(nj[1]-ni[1])+ni[0] {
			inside = !inside
		}
	}
	if inside {
		return Inside
	}
	return Outside
}

// IsAreaAtLeastPartlyInArea reports whether at least one vertex of a lies
// inside or on b.
func IsAreaAtLeastPartlyInArea(a, b []orb.Point) bool {
	return areaPartlyInArea(a, b, BoundOf(a), BoundOf(b))
}

func areaPartlyInArea(a, b []orb.Point, aBox, bBox orb.Bound) bool {
	if len(a) == 0 || len(b) == 0 || !intersectsOpen(aBox, bBox) {
		return false
	}
	for _, p := range a {
		if includesClosed(bBox, p) && RelationOfPointToArea(p, b) >= OnBorder {
			return true
		}
	}
	return false
}
