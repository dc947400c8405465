package osmsrc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/landrules"
	"github.com/wegman-software/waterindex-go/internal/nodeindex"
	"github.com/wegman-software/waterindex-go/internal/progress"
)

const testPoly = `europe
1
   -10.0   35.0
    30.0   35.0
    30.0   70.0
   -10.0   70.0
   -10.0   35.0
END
!2
     0.0   40.0
     1.0   40.0
     1.0   41.0
END
3
     0.0    0.0
     1.0    1.0
END
END
`

func TestReadPoly(t *testing.T) {
	rec := &progress.Recorder{}
	polygons, err := ReadPoly(strings.NewReader(testPoly), rec)
	if err != nil {
		t.Fatalf("ReadPoly() error = %v", err)
	}
	if len(polygons) != 1 {
		t.Fatalf("len(polygons) = %d, want 1", len(polygons))
	}

	p := polygons[0]
	if p.ID != -1 || !p.IsArea || p.Left != coast.Undefined || p.Right != coast.Unknown {
		t.Errorf("polygon = {ID: %d, IsArea: %v, Left: %v, Right: %v}, want {-1 true undefined unknown}",
			p.ID, p.IsArea, p.Left, p.Right)
	}
	want := []orb.Point{{-10, 35}, {30, 35}, {30, 70}, {-10, 70}}
	if diff := cmp.Diff(want, p.Coords()); diff != "" {
		t.Errorf("Coords() mismatch (-want +got):\n%s", diff)
	}

	if !rec.HasWarning("Ignoring hole !2") {
		t.Errorf("warnings = %v, want hole warning", rec.Warnings())
	}
	if !rec.HasWarning("with 2 points") {
		t.Errorf("warnings = %v, want degenerate section warning", rec.Warnings())
	}
}

func TestReadPolyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing final end", "x\n1\n 0 0\n 1 0\n 1 1\nEND\n"},
		{"unterminated section", "x\n1\n 0 0\n"},
		{"bad point", "x\n1\n 0 zero\nEND\nEND\n"},
		{"out of range", "x\n1\n 200 0\nEND\nEND\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPoly(strings.NewReader(tt.input), &progress.Recorder{}); err == nil {
				t.Error("ReadPoly() error = nil, want error")
			}
		})
	}
}

func newTestReader(t *testing.T, classifier landrules.Classifier) (*Reader, *progress.Recorder) {
	t.Helper()

	rec := &progress.Recorder{}
	r, err := NewReader(Options{TempDir: t.TempDir(), MaxNodeID: 100, Classifier: classifier}, rec, nil)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	idx, err := nodeindex.NewMmapIndex(r.nodeIndexPath, 100)
	if err != nil {
		t.Fatalf("NewMmapIndex() error = %v", err)
	}
	r.nodeIndex = idx
	t.Cleanup(func() { r.Close() })

	for id := int64(1); id <= 5; id++ {
		idx.Put(id, orb.Point{float64(id), float64(id)})
	}
	return r, rec
}

func way(id osm.WayID, tags osm.Tags, nodes ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id, Tags: tags}
	for _, n := range nodes {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: n})
	}
	return w
}

func TestAddWay(t *testing.T) {
	r, rec := newTestReader(t, landrules.DefaultRules())
	src := &Source{}

	ways := []*osm.Way{
		way(1, osm.Tags{{Key: "natural", Value: "coastline"}}, 1, 2, 3),
		way(2, osm.Tags{{Key: "natural", Value: "coastline"}}, 1, 2, 3, 1),
		way(3, osm.Tags{{Key: "datapolygon", Value: "yes"}}, 2, 3, 4, 2),
		way(4, osm.Tags{{Key: "highway", Value: "primary"}}, 1, 2),
		way(5, osm.Tags{{Key: "highway", Value: "primary"}}, 1, 99),
		way(6, osm.Tags{{Key: "highway", Value: "primary"}}, 1),
		way(7, osm.Tags{{Key: "waterway", Value: "river"}}, 1, 2),
	}
	for _, w := range ways {
		if err := r.addWay(w, src); err != nil {
			t.Fatalf("addWay(%d) error = %v", w.ID, err)
		}
	}

	wantCoastlines := []coast.RawBoundary{
		{ID: 1, Nodes: []int64{1, 2, 3}},
		{ID: 2, IsArea: true, Nodes: []int64{1, 2, 3}},
	}
	if diff := cmp.Diff(wantCoastlines, src.Coastlines); diff != "" {
		t.Errorf("Coastlines mismatch (-want +got):\n%s", diff)
	}

	wantPolygons := []coast.RawBoundary{{ID: 3, IsArea: true, Nodes: []int64{2, 3, 4}}}
	if diff := cmp.Diff(wantPolygons, src.DataPolygons); diff != "" {
		t.Errorf("DataPolygons mismatch (-want +got):\n%s", diff)
	}

	if len(src.LandWays) != 1 {
		t.Fatalf("len(LandWays) = %d, want 1", len(src.LandWays))
	}
	lw := src.LandWays[0]
	if lw.ID != 4 || !lw.CertifiesLand() {
		t.Errorf("land way = %+v, want way 4 certifying land", lw)
	}
	if diff := cmp.Diff([]orb.Point{{1, 1}, {2, 2}}, lw.Points); diff != "" {
		t.Errorf("Points mismatch (-want +got):\n%s", diff)
	}

	if src.Stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", src.Stats.Skipped)
	}
	if !rec.HasWarning("Way 6 has less than two nodes") {
		t.Errorf("warnings = %v, want short way warning", rec.Warnings())
	}
}

func TestRawBoundaryKeepsOpenWays(t *testing.T) {
	got := rawBoundary(9, []int64{1, 2, 1}, true)
	if diff := cmp.Diff([]int64{1, 2, 1}, got.Nodes); diff != "" {
		t.Errorf("Nodes mismatch (-want +got):\n%s", diff)
	}
}
