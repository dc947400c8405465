package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

func TestGeoJSONCollects(t *testing.T) {
	g := NewGeoJSON(statemap.Unknown)
	cell := Cell{
		Level: 5,
		Pixel: statemap.Pixel{X: 1, Y: 2},
		Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}},
	}

	g.CellClassified(cell, statemap.Unknown)
	g.CellClassified(cell, statemap.Water)
	g.TileClosed(cell, tile.GroundTile{Type: tile.Land, Coords: tile.Corners[:]})
	g.WalkAborted(cell, "no sibling")

	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}

	path := filepath.Join(t.TempDir(), "trace.geojson")
	if err := g.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("UnmarshalFeatureCollection() error = %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features = %d, want 3", len(fc.Features))
	}
	if got := fc.Features[1].Properties.MustString("type"); got != "land" {
		t.Errorf("tile type = %q, want land", got)
	}
	if got := fc.Features[2].Properties.MustString("reason"); got != "no sibling" {
		t.Errorf("reason = %q, want no sibling", got)
	}
}
