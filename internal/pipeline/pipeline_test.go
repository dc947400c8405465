package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/config"
	"github.com/wegman-software/waterindex-go/internal/osmsrc"
	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/water"
	"github.com/wegman-software/waterindex-go/internal/waterindex"
)

type mapResolver map[int64]orb.Point

func (m mapResolver) Resolve(ids []int64) (map[int64]orb.Point, error) {
	coords := make(map[int64]orb.Point, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			coords[id] = p
		}
	}
	return coords, nil
}

var islandNodes = mapResolver{
	1: {5, 3},
	2: {10, 3},
	3: {10, 6},
	4: {5, 6},
	9: {30, 15},
}

func TestPrepareInputMergesFragments(t *testing.T) {
	rec := &progress.Recorder{}
	src := &osmsrc.Source{
		Coastlines: []coast.RawBoundary{
			{ID: 100, Nodes: []int64{1, 2, 3}},
			{ID: 101, Nodes: []int64{3, 4, 1}},
		},
	}
	bbox := &config.BBox{MinLon: 0, MinLat: 0, MaxLon: 40, MaxLat: 20, IsSet: true}

	in, err := PrepareInput(rec, src, islandNodes, nil, bbox)
	if err != nil {
		t.Fatalf("PrepareInput() error = %v", err)
	}
	if len(in.Coastlines) != 1 {
		t.Fatalf("len(Coastlines) = %d, want 1", len(in.Coastlines))
	}
	c := in.Coastlines[0]
	if !c.IsArea || len(c.Points) != 4 {
		t.Errorf("coastline = area %v with %d points, want area with 4 points", c.IsArea, len(c.Points))
	}
	if c.Left != coast.Land || c.Right != coast.Water {
		t.Errorf("sides = %v/%v, want land/water", c.Left, c.Right)
	}
	if in.Box != bbox.Bound() {
		t.Errorf("Box = %v, want %v", in.Box, bbox.Bound())
	}
}

func TestPrepareInputWorldDropsOpenWays(t *testing.T) {
	rec := &progress.Recorder{}
	src := &osmsrc.Source{
		Coastlines: []coast.RawBoundary{
			{ID: 100, IsArea: true, Nodes: []int64{1, 2, 3, 4}},
			{ID: 101, Nodes: []int64{9, 1}},
		},
	}

	in, err := PrepareInput(rec, src, islandNodes, nil, &config.BBox{})
	if err != nil {
		t.Fatalf("PrepareInput() error = %v", err)
	}
	if len(in.Coastlines) != 1 || in.Coastlines[0].ID != 100 {
		t.Errorf("Coastlines = %d, want only the island", len(in.Coastlines))
	}
	if !rec.HasWarning("Removed 1 unclosed coastlines") {
		t.Errorf("warnings = %v", rec.Warnings())
	}
}

func islandInput() *water.Input {
	island := &coast.Coast{
		ID:     1,
		IsArea: true,
		Left:   coast.Land,
		Right:  coast.Water,
	}
	for id := int64(1); id <= 4; id++ {
		island.Points = append(island.Points, coast.Point{ID: id, Coord: islandNodes[id]})
	}
	return &water.Input{
		Box:        orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{40, 20}},
		Coastlines: []*coast.Coast{island},
	}
}

func TestBuilderWritesLevelsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.idx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	b := &Builder{
		Options:  water.DefaultOptions(),
		Workers:  2,
		Reporter: &progress.Recorder{},
	}
	stats, err := b.Build(context.Background(), islandInput(), 4, 6, f)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("len(stats) = %d, want 3", len(stats))
	}
	for i, st := range stats {
		if st.Level != 4+i {
			t.Errorf("stats[%d].Level = %d, want %d", i, st.Level, 4+i)
		}
	}
	if stats[0].Tiles != 2 {
		t.Errorf("level 4 tiles = %d, want 2", stats[0].Tiles)
	}
	f.Close()

	idx, err := waterindex.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer idx.Close()

	if idx.MinLevel != 4 || idx.MaxLevel != 6 {
		t.Errorf("levels = %d..%d, want 4..6", idx.MinLevel, idx.MaxLevel)
	}

	r, err := idx.Lookup(orb.Point{7.5, 4.5}, 4)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if r.State != statemap.Coast {
		t.Fatalf("island cell state = %v, want coast", r.State)
	}
	if got := r.StateAt(orb.Point{7.5, 4.5}); got != statemap.Land {
		t.Errorf("StateAt(island) = %v, want land", got)
	}
	if got := r.StateAt(orb.Point{20, 10}); got != statemap.Water {
		t.Errorf("StateAt(sea) = %v, want water", got)
	}
}

func TestBuilderCancelled(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "water.idx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &Builder{Options: water.DefaultOptions(), Workers: 1, Reporter: &progress.Recorder{}}
	_, err = b.Build(ctx, islandInput(), 4, 5, f)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestLevelTracker(t *testing.T) {
	tr := NewLevelTracker(4, 6)
	tr.startTime = time.Now().Add(-21 * time.Second)

	p := tr.Finish(4)
	if p.Finished != 1 || p.Total != 3 {
		t.Errorf("progress = %d/%d, want 1/3", p.Finished, p.Total)
	}
	// weights 1, 4, 16
	if p.Percentage < 4.7 || p.Percentage > 4.8 {
		t.Errorf("Percentage = %v, want 1/21", p.Percentage)
	}
	if p.ETA < 419*time.Second || p.ETA > 421*time.Second {
		t.Errorf("ETA = %v, want about 420s", p.ETA)
	}

	tr.Finish(5)
	if p := tr.Finish(6); p.Percentage != 100 || p.ETA != 0 {
		t.Errorf("final progress = %+v, want 100%% without ETA", p)
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "calculating..."},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 1*time.Minute, "2h 1m 0s"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.in); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
