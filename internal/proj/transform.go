package proj

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Supported SRIDs of exported geometries.
const (
	SRID4326 = 4326 // WGS84 lon/lat
	SRID3857 = 3857 // Web Mercator
)

// Transformer projects WGS84 coordinates into the SRID of an export.
type Transformer struct {
	SourceSRID int
	TargetSRID int
}

// NewTransformer returns a transformer from sourceSRID, which must be 4326,
// to targetSRID.
func NewTransformer(sourceSRID, targetSRID int) (*Transformer, error) {
	if sourceSRID != SRID4326 {
		return nil, fmt.Errorf("unsupported source SRID: %d (only 4326 supported)", sourceSRID)
	}
	switch targetSRID {
	case SRID4326, SRID3857:
	default:
		return nil, fmt.Errorf("unsupported target SRID: %d (only 4326 and 3857 supported)", targetSRID)
	}
	return &Transformer{SourceSRID: sourceSRID, TargetSRID: targetSRID}, nil
}

// Transform projects one coordinate.
func (t *Transformer) Transform(lon, lat float64) (x, y float64) {
	if t.TargetSRID == SRID3857 {
		return lonLatToWebMercator(lon, lat)
	}
	return lon, lat
}

// TransformRing returns r in the target projection. The ring is copied
// when a transformation is needed.
func (t *Transformer) TransformRing(r orb.Ring) orb.Ring {
	if !t.NeedsTransform() {
		return r
	}
	out := make(orb.Ring, len(r))
	for i, p := range r {
		x, y := t.Transform(p[0], p[1])
		out[i] = orb.Point{x, y}
	}
	return out
}

// NeedsTransform returns true if transformation is required
func (t *Transformer) NeedsTransform() bool {
	return t.SourceSRID != t.TargetSRID
}

const (
	earthRadius = 6378137.0          // WGS84 semi-major axis, meters
	maxExtent   = 20037508.342789244 // half the Web Mercator world width
	maxLat      = 85.06
)

func lonLatToWebMercator(lon, lat float64) (x, y float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	x = lon * maxExtent / 180.0
	y = math.Log(math.Tan(math.Pi/4.0+lat*math.Pi/360.0)) * earthRadius
	return x, y
}

// TileSize is the pixel width of one web map tile at zoom level 0.
const TileSize = 256.0

// ToPixel projects lon/lat onto the Web Mercator pixel plane of a zoom
// level, where the world is TileSize*2^level pixels wide.
func ToPixel(lon, lat float64, level int) (x, y float64) {
	mx, my := lonLatToWebMercator(lon, lat)
	resolution := 2 * maxExtent / (TileSize * math.Exp2(float64(level)))
	return mx / resolution, my / resolution
}

// ParseSRID accepts "4326", "3857" and their "EPSG:" forms.
func ParseSRID(s string) (int, error) {
	switch strings.TrimPrefix(strings.ToUpper(s), "EPSG:") {
	case "4326":
		return SRID4326, nil
	case "3857", "900913":
		return SRID3857, nil
	}
	return 0, fmt.Errorf("unsupported projection: %s (supported: 4326, 3857)", s)
}
