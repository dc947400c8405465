package geo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

func TestLinesIntersect(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 orb.Point
		want           bool
	}{
		{"crossing", orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}, true},
		{"parallel", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{0, 1}, orb.Point{2, 1}, false},
		{"shared end point", orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{3, 0}, true},
		{"collinear overlap", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}, true},
		{"collinear apart", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}, false},
		{"t junction", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{1, 2}, true},
		{"miss", orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{2, 0}, orb.Point{3, -1}, false},
		{"two points", orb.Point{0, 0}, orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{1, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinesIntersect(tt.a1, tt.a2, tt.b1, tt.b2); got != tt.want {
				t.Errorf("LinesIntersect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineIntersection(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 orb.Point
		want           orb.Point
		wantOK         bool
	}{
		{"crossing", orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}, orb.Point{1, 1}, true},
		{"end point", orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{3, 0}, orb.Point{1, 1}, true},
		{"collinear returns first contained", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}, orb.Point{2, 0}, true},
		{"parallel", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{0, 1}, orb.Point{2, 1}, orb.Point{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LineIntersection(tt.a1, tt.a2, tt.b1, tt.b2)
			if ok != tt.wantOK {
				t.Fatalf("LineIntersection() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("LineIntersection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelationOfPointToArea(t *testing.T) {
	square := []orb.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}

	tests := []struct {
		name  string
		point orb.Point
		want  int
	}{
		{"inside", orb.Point{2, 2}, Inside},
		{"outside", orb.Point{5, 5}, Outside},
		{"left of ring", orb.Point{-1, 2}, Outside},
		{"vertex", orb.Point{4, 4}, OnBorder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelationOfPointToArea(tt.point, square); got != tt.want {
				t.Errorf("RelationOfPointToArea() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsAreaAtLeastPartlyInArea(t *testing.T) {
	big := []orb.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	small := []orb.Point{{2, 2}, {3, 2}, {3, 3}, {2, 3}}
	far := []orb.Point{{20, 20}, {21, 20}, {21, 21}, {20, 21}}
	overlapping := []orb.Point{{8, 8}, {12, 8}, {12, 12}, {8, 12}}

	if !IsAreaAtLeastPartlyInArea(small, big) {
		t.Error("small square should be inside big square")
	}
	if IsAreaAtLeastPartlyInArea(far, big) {
		t.Error("far square should not be inside big square")
	}
	if !IsAreaAtLeastPartlyInArea(overlapping, big) {
		t.Error("overlapping square should be partly inside big square")
	}
	if IsAreaAtLeastPartlyInArea(big, small) {
		t.Error("no vertex of the big square is inside the small one")
	}
}

func TestFindPathIntersections(t *testing.T) {
	ring := []orb.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	line := []orb.Point{{2, -1}, {2, 5}}

	got := FindPathIntersections(ring, line, true, false)
	if len(got) != 2 {
		t.Fatalf("len(intersections) = %d, want 2", len(got))
	}

	if got[0].AIndex != 0 || !got[0].Point.Equal(orb.Point{2, 0}) {
		t.Errorf("first intersection = %+v, want segment 0 at (2,0)", got[0])
	}
	if got[1].AIndex != 2 || !got[1].Point.Equal(orb.Point{2, 4}) {
		t.Errorf("second intersection = %+v, want segment 2 at (2,4)", got[1])
	}
	if got[0].Orientation <= 0 || got[1].Orientation >= 0 {
		t.Errorf("orientations = %v, %v, want opposite signs", got[0].Orientation, got[1].Orientation)
	}
	if got[0].BDistanceSquare != 1 || got[1].BDistanceSquare != 25 {
		t.Errorf("b distances = %v, %v, want 1, 25", got[0].BDistanceSquare, got[1].BDistanceSquare)
	}

	// the open ring misses its closing segment
	open := FindPathIntersections([]orb.Point{{0, 4}, {0, 0}, {4, 0}, {4, 4}}, line, false, false)
	if len(open) != 1 {
		t.Errorf("open path intersections = %d, want 1", len(open))
	}
}

func TestSortByB(t *testing.T) {
	in := []PathIntersection{
		{BIndex: 3, BDistanceSquare: 1},
		{BIndex: 1, BDistanceSquare: 5},
		{BIndex: 1, BDistanceSquare: 2},
	}
	SortByB(in)

	want := []PathIntersection{
		{BIndex: 1, BDistanceSquare: 2},
		{BIndex: 1, BDistanceSquare: 5},
		{BIndex: 3, BDistanceSquare: 1},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("SortByB() mismatch (-want +got):\n%s", diff)
	}
}

func TestCutPath(t *testing.T) {
	src := []int{0, 1, 2, 3, 4}

	tests := []struct {
		name       string
		start, end int
		sd, ed     float64
		want       []int
	}{
		{"forward", 1, 3, 0, 0, []int{1, 2}},
		{"wrap", 3, 1, 0, 0, []int{3, 4, 0}},
		{"same segment ahead", 2, 2, 1, 2, []int{}},
		{"same segment behind", 2, 2, 2, 1, []int{2, 3, 4, 0, 1}},
		{"indexes wrap", 7, 4, 0, 0, []int{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CutPath([]int{}, src, tt.start, tt.end, tt.sd, tt.ed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CutPath() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
