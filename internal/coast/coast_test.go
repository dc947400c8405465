package coast

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/progress"
)

func way(id int64, nodes ...int64) *Coast {
	c := &Coast{
		ID:          id,
		FrontNodeID: nodes[0],
		BackNodeID:  nodes[len(nodes)-1],
		Left:        Land,
		Right:       Water,
	}
	for _, n := range nodes {
		c.Points = append(c.Points, Point{ID: n, Coord: orb.Point{float64(n), float64(n)}})
	}
	return c
}

func nodeIDs(c *Coast) []int64 {
	ids := make([]int64, len(c.Points))
	for i, p := range c.Points {
		ids[i] = p.ID
	}
	return ids
}

func TestMergeCoastlinesClosesRing(t *testing.T) {
	var rec progress.Recorder
	got := MergeCoastlines(&rec, []*Coast{way(1, 1, 2, 3), way(2, 3, 4, 1)})

	if len(got) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(got))
	}
	if !got[0].IsArea {
		t.Error("IsArea = false, want true")
	}
	if diff := cmp.Diff([]int64{1, 2, 3, 4}, nodeIDs(got[0])); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCoastlinesChain(t *testing.T) {
	var rec progress.Recorder
	// out of order fragments of one open way
	got := MergeCoastlines(&rec, []*Coast{way(3, 5, 6), way(1, 1, 2, 3), way(2, 3, 4, 5)})

	if len(got) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(got))
	}
	if got[0].IsArea {
		t.Error("IsArea = true, want false")
	}
	if diff := cmp.Diff([]int64{1, 2, 3, 4, 5, 6}, nodeIDs(got[0])); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if got[0].BackNodeID != 6 {
		t.Errorf("BackNodeID = %d, want 6", got[0].BackNodeID)
	}
}

func TestMergeCoastlinesDropsShort(t *testing.T) {
	var rec progress.Recorder
	area := way(9, 10, 11, 12)
	area.IsArea = true

	got := MergeCoastlines(&rec, []*Coast{way(1, 1), way(2, 7, 8, 7), area})

	if len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("merged = %v, want only area 9", got)
	}
	if !rec.HasWarning("Dropping to short coastline with id 1") {
		t.Errorf("warnings = %v, want drop of 1", rec.Warnings())
	}
	if !rec.HasWarning("Dropping to short coastline with id 2") {
		t.Errorf("warnings = %v, want drop of 2", rec.Warnings())
	}
}

func square(id int64, minX, minY, maxX, maxY float64) *Coast {
	return &Coast{
		ID:     id,
		IsArea: true,
		Points: []Point{
			{Coord: orb.Point{minX, minY}},
			{Coord: orb.Point{maxX, minY}},
			{Coord: orb.Point{maxX, maxY}},
			{Coord: orb.Point{minX, maxY}},
		},
		Left:  Undefined,
		Right: Unknown,
	}
}

func line(id int64, left, right State, coords ...orb.Point) *Coast {
	c := &Coast{ID: id, Left: left, Right: right}
	for _, p := range coords {
		c.Points = append(c.Points, Point{Coord: p})
	}
	return c
}

func TestSynthesizeCoastlinesCutsPolygon(t *testing.T) {
	var rec progress.Recorder
	polygon := square(100, 0, 0, 10, 10)
	coastline := line(1, Land, Water, orb.Point{5, -5}, orb.Point{5, 15})

	got := SynthesizeCoastlines(&rec, []*Coast{coastline}, []*Coast{polygon})
	if len(got) != 3 {
		t.Fatalf("len(synthesized) = %d, want 3", len(got))
	}

	want := []struct {
		id          int64
		left, right State
		coords      []orb.Point
	}{
		{100, Water, Unknown, []orb.Point{{5, 0}, {10, 0}, {10, 10}, {5, 10}}},
		{100, Land, Unknown, []orb.Point{{5, 10}, {0, 10}, {0, 0}, {5, 0}}},
		{1, Land, Water, []orb.Point{{5, 0}, {5, 10}}},
	}

	for i, w := range want {
		if got[i].ID != w.id {
			t.Errorf("part %d ID = %d, want %d", i, got[i].ID, w.id)
		}
		if got[i].IsArea {
			t.Errorf("part %d IsArea = true, want false", i)
		}
		if got[i].Left != w.left || got[i].Right != w.right {
			t.Errorf("part %d sides = %v/%v, want %v/%v", i, got[i].Left, got[i].Right, w.left, w.right)
		}
		if diff := cmp.Diff(w.coords, got[i].Coords()); diff != "" {
			t.Errorf("part %d coords mismatch (-want +got):\n%s", i, diff)
		}
	}

	if len(rec.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", rec.Warnings())
	}
}

func TestSynthesizeCoastlinesOddCount(t *testing.T) {
	var rec progress.Recorder
	polygon := square(100, 0, 0, 10, 10)
	coastline := line(2, Land, Water, orb.Point{5, 5}, orb.Point{5, 15})

	got := SynthesizeCoastlines(&rec, []*Coast{coastline}, []*Coast{polygon})
	if len(got) != 0 {
		t.Errorf("len(synthesized) = %d, want 0", len(got))
	}
	if !rec.HasWarning("Odd count (1) of valid intersections. Coastline 2") {
		t.Errorf("warnings = %v, want odd count warning", rec.Warnings())
	}
}

func TestSynthesizeCoastlinesIslands(t *testing.T) {
	var rec progress.Recorder
	polygon := square(100, 0, 0, 10, 10)

	inside := square(1, 2, 2, 3, 3)
	inside.Left, inside.Right = Land, Water
	outside := square(2, 20, 20, 21, 21)
	outside.Left, outside.Right = Land, Water

	got := SynthesizeCoastlines(&rec, []*Coast{inside, outside}, []*Coast{polygon})
	if len(got) != 2 {
		t.Fatalf("len(synthesized) = %d, want 2", len(got))
	}

	// the untouched data polygon contains an island with water around it
	if got[0].ID != 100 || got[0].Left != Water {
		t.Errorf("polygon = id %d left %v, want id 100 left water", got[0].ID, got[0].Left)
	}
	if got[1].ID != 1 {
		t.Errorf("island id = %d, want 1", got[1].ID)
	}
	if polygon.Left != Undefined {
		t.Error("synthesis modified the input polygon")
	}
}

func TestSynthesizeCoastlinesDefaultsToLand(t *testing.T) {
	var rec progress.Recorder
	polygon := square(100, 0, 0, 10, 10)

	got := SynthesizeCoastlines(&rec, nil, []*Coast{polygon})
	if len(got) != 1 || got[0].Left != Land || got[0].Right != Unknown {
		t.Errorf("synthesized = %+v, want one land/unknown polygon", got)
	}
}

type mapResolver map[int64]orb.Point

func (m mapResolver) Resolve(ids []int64) (map[int64]orb.Point, error) {
	out := make(map[int64]orb.Point)
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type failingResolver struct{}

func (failingResolver) Resolve([]int64) (map[int64]orb.Point, error) {
	return nil, errors.New("disk gone")
}

func TestLoadRawBoundaries(t *testing.T) {
	var rec progress.Recorder
	resolver := mapResolver{1: {0, 0}, 2: {1, 0}, 3: {1, 1}, 4: {0, 1}}

	raw := []RawBoundary{
		{ID: 10, Nodes: []int64{1, 2, 3}},
		{ID: 11, IsArea: true, Nodes: []int64{1, 2, 3, 4}},
		{ID: 12, Nodes: []int64{3, 99}},
	}

	got, err := LoadRawBoundaries(&rec, raw, resolver, Land, Water)
	if err != nil {
		t.Fatalf("LoadRawBoundaries() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(coasts) = %d, want 2", len(got))
	}
	if got[0].FrontNodeID != 1 || got[0].BackNodeID != 3 {
		t.Errorf("front/back = %d/%d, want 1/3", got[0].FrontNodeID, got[0].BackNodeID)
	}
	if !got[1].IsArea || got[1].Left != Land || got[1].Right != Water {
		t.Errorf("area = %+v", got[1])
	}
	if errs := rec.Errors(); len(errs) != 1 || errs[0] != "Cannot resolve node with id 99 for coastline 12" {
		t.Errorf("errors = %v", errs)
	}

	if _, err := LoadRawBoundaries(&rec, raw, failingResolver{}, Land, Water); err == nil {
		t.Error("LoadRawBoundaries() with failing resolver returned nil error")
	}
}

func TestCloseWorldCoastlines(t *testing.T) {
	var rec progress.Recorder

	antimeridian := line(1, Land, Water, orb.Point{180, 10}, orb.Point{170, 12}, orb.Point{179.9995, 14})
	antarctica := line(2, Land, Water, orb.Point{180, -70}, orb.Point{0, -68}, orb.Point{-180, -70})
	dangling := line(3, Land, Water, orb.Point{10, 10}, orb.Point{11, 11})
	island := square(4, 0, 0, 1, 1)

	got := CloseWorldCoastlines(&rec, []*Coast{antimeridian, antarctica, dangling, island})
	if len(got) != 3 {
		t.Fatalf("len(coasts) = %d, want 3", len(got))
	}
	for _, c := range got {
		if !c.IsArea {
			t.Errorf("coast %d IsArea = false", c.ID)
		}
	}
	if len(antimeridian.Points) != 3 {
		t.Errorf("antimeridian points = %d, want 3", len(antimeridian.Points))
	}
	wantPole := []orb.Point{{180, -70}, {0, -68}, {-180, -70}, {-180, -90}, {180, -90}}
	if diff := cmp.Diff(wantPole, antarctica.Coords()); diff != "" {
		t.Errorf("antarctica mismatch (-want +got):\n%s", diff)
	}
	if !rec.HasWarning("Removed 1 unclosed coastlines") {
		t.Errorf("warnings = %v", rec.Warnings())
	}
}
