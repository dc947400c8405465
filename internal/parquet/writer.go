// Package parquet writes water index features as Parquet files with WKB
// geometries.
package parquet

import (
	"errors"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// Schema is the layout of a feature file.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "kind", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "level", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "x", Type: arrow.PrimitiveTypes.Uint32, Nullable: false},
	{Name: "y", Type: arrow.PrimitiveTypes.Uint32, Nullable: false},
	{Name: "tile", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "state", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "coast_edges", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "geom_wkb", Type: arrow.BinaryTypes.Binary, Nullable: false},
}, nil)

// Row is one feature record.
type Row struct {
	Kind       string
	Level      int32
	X, Y       uint32
	Tile       int32
	State      string
	CoastEdges int32
	GeomWKB    []byte
}

// FeatureWriter writes rows in record batches
type FeatureWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	batchSize int
	count     int
	total     int64
}

// NewFeatureWriter creates a Parquet feature writer
func NewFeatureWriter(path string, batchSize int) (*FeatureWriter, error) {
	if batchSize <= 0 {
		batchSize = 65536
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)

	writer, err := pqarrow.NewFileWriter(Schema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FeatureWriter{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, Schema),
		batchSize: batchSize,
	}, nil
}

// Write appends a row
func (w *FeatureWriter) Write(r Row) error {
	w.builder.Field(0).(*array.StringBuilder).Append(r.Kind)
	w.builder.Field(1).(*array.Int32Builder).Append(r.Level)
	w.builder.Field(2).(*array.Uint32Builder).Append(r.X)
	w.builder.Field(3).(*array.Uint32Builder).Append(r.Y)
	w.builder.Field(4).(*array.Int32Builder).Append(r.Tile)
	w.builder.Field(5).(*array.StringBuilder).Append(r.State)
	w.builder.Field(6).(*array.Int32Builder).Append(r.CoastEdges)
	w.builder.Field(7).(*array.BinaryBuilder).Append(r.GeomWKB)

	w.count++
	w.total++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

// Count returns the number of rows written
func (w *FeatureWriter) Count() int64 {
	return w.total
}

func (w *FeatureWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

// Close flushes pending rows and closes the file
func (w *FeatureWriter) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		w.writer.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		return err
	}
	// the parquet writer may already have closed the file
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
