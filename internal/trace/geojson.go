package trace

import (
	"fmt"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
)

// GeoJSON collects events as GeoJSON features: classified cells and
// aborted walks as cell boxes, closed tiles as polygons.
type GeoJSON struct {
	mu         sync.Mutex
	fc         *geojson.FeatureCollection
	skipStates map[statemap.State]bool
}

// NewGeoJSON creates a collector. Cells classified with one of the skip
// states are not recorded.
func NewGeoJSON(skip ...statemap.State) *GeoJSON {
	g := &GeoJSON{
		fc:         geojson.NewFeatureCollection(),
		skipStates: make(map[statemap.State]bool),
	}
	for _, s := range skip {
		g.skipStates[s] = true
	}
	return g
}

func newCellFeature(cell Cell, geom orb.Geometry, kind string) *geojson.Feature {
	f := geojson.NewFeature(geom)
	f.Properties["kind"] = kind
	f.Properties["level"] = cell.Level
	f.Properties["x"] = cell.Pixel.X
	f.Properties["y"] = cell.Pixel.Y
	return f
}

func (g *GeoJSON) append(f *geojson.Feature) {
	g.mu.Lock()
	g.fc.Append(f)
	g.mu.Unlock()
}

func (g *GeoJSON) CellClassified(cell Cell, state statemap.State) {
	if g.skipStates[state] {
		return
	}
	f := newCellFeature(cell, cell.Bound.ToPolygon(), "cell")
	f.Properties["state"] = state.String()
	g.append(f)
}

func (g *GeoJSON) TileClosed(cell Cell, t tile.GroundTile) {
	f := newCellFeature(cell, orb.Polygon{t.Ring(cell.Bound)}, "tile")
	f.Properties["type"] = t.Type.String()
	f.Properties["coords"] = len(t.Coords)
	g.append(f)
}

func (g *GeoJSON) WalkAborted(cell Cell, reason string) {
	f := newCellFeature(cell, cell.Bound.ToPolygon(), "aborted")
	f.Properties["reason"] = reason
	g.append(f)
}

// Len returns the number of collected features.
func (g *GeoJSON) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.fc.Features)
}

// WriteFile writes the collected features as a FeatureCollection.
func (g *GeoJSON) WriteFile(path string) error {
	g.mu.Lock()
	data, err := g.fc.MarshalJSON()
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trace file: %w", err)
	}
	return nil
}
