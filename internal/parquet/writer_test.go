package parquet

import (
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/parquet/file"
)

func TestFeatureWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "water.parquet")

	w, err := NewFeatureWriter(path, 2)
	if err != nil {
		t.Fatalf("NewFeatureWriter() error = %v", err)
	}
	rows := []Row{
		{Kind: "cell", Level: 4, X: 1, Y: 2, Tile: -1, State: "land", GeomWKB: []byte{1}},
		{Kind: "tile", Level: 4, X: 1, Y: 3, Tile: 0, State: "water", CoastEdges: 2, GeomWKB: []byte{1, 2}},
		{Kind: "tile", Level: 4, X: 1, Y: 3, Tile: 1, State: "land", CoastEdges: 2, GeomWKB: []byte{1, 2, 3}},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		t.Fatalf("OpenParquetFile() error = %v", err)
	}
	defer rdr.Close()

	if rdr.NumRows() != 3 {
		t.Errorf("NumRows() = %d, want 3", rdr.NumRows())
	}
	if n := rdr.MetaData().Schema.NumColumns(); n != len(Schema.Fields()) {
		t.Errorf("NumColumns() = %d, want %d", n, len(Schema.Fields()))
	}
}
