package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

type fgbColumn struct {
	name string
	typ  flattypes.ColumnType
}

var fgbColumns = []fgbColumn{
	{"kind", flattypes.ColumnTypeString},
	{"level", flattypes.ColumnTypeInt},
	{"x", flattypes.ColumnTypeUInt},
	{"y", flattypes.ColumnTypeUInt},
	{"tile", flattypes.ColumnTypeInt},
	{"state", flattypes.ColumnTypeString},
	{"coast_edges", flattypes.ColumnTypeInt},
}

// FlatGeobufSink collects features and writes them with a spatial index
// on Close.
type FlatGeobufSink struct {
	path     string
	srid     int
	features []*Feature
}

// NewFlatGeobufSink creates a sink writing to path.
func NewFlatGeobufSink(path string, srid int) *FlatGeobufSink {
	return &FlatGeobufSink{path: path, srid: srid}
}

func (s *FlatGeobufSink) Write(f *Feature) error {
	s.features = append(s.features, f)
	return nil
}

func (s *FlatGeobufSink) Close() error {
	if len(s.features) == 0 {
		return nil
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create flatgeobuf file: %w", err)
	}
	defer f.Close()

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetName("water")
	header.SetGeometryType(flattypes.GeometryTypePolygon)

	columns := make([]*writer.Column, len(fgbColumns))
	for i, c := range fgbColumns {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name)
		col.SetType(c.typ)
		columns[i] = col
	}
	header.SetColumns(columns)

	crs := writer.NewCrs(builder)
	crs.SetOrg("EPSG")
	crs.SetCode(int32(s.srid))
	header.SetCrs(crs)

	gen := &featureGenerator{features: s.features}
	if _, err := writer.NewWriter(header, true, gen, nil).Write(f); err != nil {
		return fmt.Errorf("failed to write flatgeobuf file: %w", err)
	}
	s.features = nil
	return f.Close()
}

type featureGenerator struct {
	features []*Feature
	next     int
}

func (g *featureGenerator) Generate() *writer.Feature {
	if g.next >= len(g.features) {
		return nil
	}
	f := g.features[g.next]
	g.next++

	builder := flatbuffers.NewBuilder(1024)

	xy := make([]float64, 0, len(f.Geometry)*2)
	for _, p := range f.Geometry {
		xy = append(xy, p[0], p[1])
	}
	geom := writer.NewGeometry(builder)
	geom.SetType(flattypes.GeometryTypePolygon)
	geom.SetXY(xy)
	geom.SetEnds([]uint32{uint32(len(f.Geometry))})

	feature := writer.NewFeature(builder)
	feature.SetGeometry(geom)
	feature.SetProperties(encodeProperties(f))
	return feature
}

// encodeProperties writes each column as its uint16 index followed by the
// little-endian value. Strings carry a uint32 length prefix.
func encodeProperties(f *Feature) []byte {
	var buf bytes.Buffer
	for i, c := range fgbColumns {
		binary.Write(&buf, binary.LittleEndian, uint16(i))
		switch c.name {
		case "kind":
			writeString(&buf, string(f.Kind))
		case "level":
			binary.Write(&buf, binary.LittleEndian, int32(f.Level))
		case "x":
			binary.Write(&buf, binary.LittleEndian, f.X)
		case "y":
			binary.Write(&buf, binary.LittleEndian, f.Y)
		case "tile":
			binary.Write(&buf, binary.LittleEndian, int32(f.Tile))
		case "state":
			writeString(&buf, f.State)
		case "coast_edges":
			binary.Write(&buf, binary.LittleEndian, int32(f.CoastEdges))
		}
	}
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}
