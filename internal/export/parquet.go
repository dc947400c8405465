package export

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/parquet"
	"github.com/wegman-software/waterindex-go/internal/wkb"
)

// ParquetSink writes features to a Parquet file with EWKB geometries.
type ParquetSink struct {
	w   *parquet.FeatureWriter
	enc *wkb.Encoder
}

// NewParquetSink creates the Parquet file at path.
func NewParquetSink(path string, srid int) (*ParquetSink, error) {
	w, err := parquet.NewFeatureWriter(path, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	return &ParquetSink{w: w, enc: wkb.NewEncoder(srid)}, nil
}

func (s *ParquetSink) Write(f *Feature) error {
	// the encoder buffer is reused, the arrow builder copies it
	geom := s.enc.EncodePolygon(orb.Polygon{f.Geometry})
	return s.w.Write(parquet.Row{
		Kind:       string(f.Kind),
		Level:      int32(f.Level),
		X:          f.X,
		Y:          f.Y,
		Tile:       int32(f.Tile),
		State:      f.State,
		CoastEdges: int32(f.CoastEdges),
		GeomWKB:    geom,
	})
}

// Count returns the number of written features.
func (s *ParquetSink) Count() int64 {
	return s.w.Count()
}

func (s *ParquetSink) Close() error {
	return s.w.Close()
}
