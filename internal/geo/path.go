package geo

import (
	"sort"

	"github.com/paulmach/orb"
)

// PathIntersection is a crossing between segment AIndex of path a and
// segment BIndex of path b.
type PathIntersection struct {
	Point  orb.Point
	AIndex int
	BIndex int
	// Orientation is the cross product sign of the crossing: zero means the
	// paths only touch, positive means b turns left relative to a.
	Orientation     float64
	ADistanceSquare float64
	BDistanceSquare float64
}

// FindPathIntersections returns all intersections between the segments of a
// and b. A closed path contributes its implied closing segment as well.
func FindPathIntersections(a, b []orb.Point, aClosed, bClosed bool) []PathIntersection {
	if len(a) < 2 || len(b) < 2 {
		return nil
	}

	aBound := len(a) - 1
	if aClosed {
		aBound = len(a)
	}
	bBound := len(b) - 1
	if bClosed {
		bBound = len(b)
	}

	bBox := BoundOf(b)

	var intersections []PathIntersection
	for ai := 0; ai < aBound; ai++ {
		a1 := a[ai%len(a)]
		a2 := a[(ai+1)%len(a)]
		aLineBox := SegmentBound(a1, a2)
		if !intersectsClosed(bBox, aLineBox) {
			continue
		}

		for bi := 0; bi < bBound; bi++ {
			b1 := b[bi%len(b)]
			b2 := b[(bi+1)%len(b)]
			if !intersectsClosed(aLineBox, SegmentBound(b1, b2)) {
				continue
			}

			point, ok := LineIntersection(a1, a2, b1, b2)
			if !ok {
				continue
			}

			// both lines are prolonged so the orientation is not zero when
			// the crossing is at a1 or b2
			before := orb.Point{a1[0] - (a2[0] - a1[0]), a1[1] - (a2[1] - a1[1])}
			after := orb.Point{b2[0] + (b2[0] - b1[0]), b2[1] + (b2[1] - b1[1])}

			intersections = append(intersections, PathIntersection{
				Point:  point,
				AIndex: ai,
				BIndex: bi,
				Orientation: (point[0]-before[0])*(after[1]-point[1]) -
					(point[1]-before[1])*(after[0]-point[0]),
				ADistanceSquare: DistanceSquare(a1, point),
				BDistanceSquare: DistanceSquare(b1, point),
			})
		}
	}
	return intersections
}

// SortByA orders intersections by their position along path a.
func SortByA(intersections []PathIntersection) {
	sort.SliceStable(intersections, func(i, j int) bool {
		if intersections[i].AIndex == intersections[j].AIndex {
			return intersections[i].ADistanceSquare < intersections[j].ADistanceSquare
		}
		return intersections[i].AIndex < intersections[j].AIndex
	})
}

// SortByB orders intersections by their position along path b.
func SortByB(intersections []PathIntersection) {
	sort.SliceStable(intersections, func(i, j int) bool {
		if intersections[i].BIndex == intersections[j].BIndex {
			return intersections[i].BDistanceSquare < intersections[j].BDistanceSquare
		}
		return intersections[i].BIndex < intersections[j].BIndex
	})
}

// CutPath appends the points of the ring src from index start up to (but not
// including) end to dst. Indexes wrap around; when start lies after end, or
// both are equal and the start distance is larger, the copy wraps past the
// last point.
func CutPath[T any](dst, src []T, start, end int, startDistance, endDistance float64) []T {
	if len(src) == 0 {
		return dst
	}
	start %= len(src)
	end %= len(src)

	if start > end || (start == end && startDistance > endDistance) {
		dst = append(dst, src[start:]...)
		return append(dst, src[:end]...)
	}
	return append(dst, src[start:end]...)
}
