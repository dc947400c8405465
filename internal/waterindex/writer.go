package waterindex

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
	"github.com/wegman-software/waterindex-go/internal/water"
)

// coastFlag marks coastline coordinates in the serialized x value.
const coastFlag = 0x8000

// firstDataOffset is the smallest data offset of a cell entry. Smaller
// entries are cell states.
const firstDataOffset = 4

// Writer writes a water index. The header is written first, then the
// levels in ascending order.
type Writer struct {
	w        *FileWriter
	reporter progress.Reporter

	minLevel, maxLevel int
	entries            []int64 // indexEntryOffset per level
	next               int
}

// NewWriter creates a writer on ws, which must be positioned at the start
// of the index.
func NewWriter(ws io.WriteSeeker, reporter progress.Reporter) (*Writer, error) {
	fw, err := NewFileWriter(ws)
	if err != nil {
		return nil, err
	}
	return &Writer{w: fw, reporter: reporter}, nil
}

// WriteHeader writes the level range and a placeholder entry for every level
// covering box.
func (w *Writer) WriteHeader(box orb.Bound, minLevel, maxLevel int) error {
	if minLevel < 0 || maxLevel < minLevel {
		return fmt.Errorf("invalid level range %d..%d", minLevel, maxLevel)
	}

	w.minLevel, w.maxLevel = minLevel, maxLevel
	w.next = minLevel
	w.entries = make([]int64, 0, maxLevel-minLevel+1)

	if err := w.w.WriteNumber(uint64(minLevel)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.w.WriteNumber(uint64(maxLevel)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for level := minLevel; level <= maxLevel; level++ {
		cw, ch := water.CellSize(level)
		xStart, xEnd, yStart, yEnd := statemap.Window(box, cw, ch)

		w.entries = append(w.entries, w.w.GetPos())
		if err := w.writeEntry(false, 0, statemap.Unknown, 0); err != nil {
			return fmt.Errorf("failed to write header of level %d: %w", level, err)
		}
		for _, v := range []uint32{xStart, xEnd, yStart, yEnd} {
			if err := w.w.WriteNumber(uint64(v)); err != nil {
				return fmt.Errorf("failed to write header of level %d: %w", level, err)
			}
		}
	}
	return nil
}

func (w *Writer) writeEntry(hasCellData bool, dataOffsetBytes uint8, defaultCellData statemap.State, indexDataOffset int64) error {
	if err := w.w.WriteBool(hasCellData); err != nil {
		return err
	}
	if err := w.w.WriteUint8(dataOffsetBytes); err != nil {
		return err
	}
	if err := w.w.WriteUint8(uint8(defaultCellData)); err != nil {
		return err
	}
	return w.w.WriteFileOffset(indexDataOffset)
}

// tileSize is the serialized size of the tiles of one cell.
func tileSize(tiles []tile.GroundTile) int64 {
	size := NumberSize(uint64(len(tiles)))
	for _, t := range tiles {
		size += 1 + NumberSize(uint64(len(t.Coords))) + 4*int64(len(t.Coords))
	}
	return size
}

// WriteLevel writes the cell index and ground tiles of l and patches its
// header entry. Levels must be written in ascending order.
func (w *Writer) WriteLevel(l *water.Level) error {
	if l.Level != w.next || l.Level > w.maxLevel {
		return fmt.Errorf("level %d written out of order, expected %d", l.Level, w.next)
	}

	var (
		sm              = l.StateMap
		dataOffsetBytes uint8
		indexDataOffset int64
	)

	if !l.HasCellData {
		w.reporter.Info(fmt.Sprintf("All cells have state '%s' and no coastlines, no cell index needed", l.DefaultCellData))
	} else {
		cells := l.Cells()

		// offsets relative to the data blob, in cell order
		offsets := make(map[statemap.Pixel]uint64, len(cells))
		dataSize := int64(firstDataOffset)
		for _, cell := range cells {
			offsets[cell] = uint64(dataSize)
			dataSize += tileSize(l.Tiles[cell])
		}

		dataOffsetBytes = BytesNeeded(uint64(dataSize))
		indexDataOffset = w.w.GetPos()

		w.reporter.Info(fmt.Sprintf("Writing index for level %d, %d cells, %d entries, %d bytes/entry, %s",
			l.Level, sm.Len(), len(cells), dataOffsetBytes,
			progress.FormatBytes(int64(sm.Len())*int64(dataOffsetBytes)+dataSize)))

		for y := uint32(0); y < sm.YCount(); y++ {
			for x := uint32(0); x < sm.XCount(); x++ {
				v := uint64(sm.GetState(x, y))
				if off, ok := offsets[statemap.Pixel{X: x, Y: y}]; ok {
					v = off
				}
				if err := w.w.WriteFileOffsetBytes(v, dataOffsetBytes); err != nil {
					return fmt.Errorf("failed to write cell index of level %d: %w", l.Level, err)
				}
			}
		}

		dataOffset := w.w.GetPos()
		if err := w.w.WriteUint32(0); err != nil {
			return fmt.Errorf("failed to write tiles of level %d: %w", l.Level, err)
		}

		for _, cell := range cells {
			if got, want := uint64(w.w.GetPos()-dataOffset), offsets[cell]; got != want {
				return fmt.Errorf("tile data of cell %d,%d at offset %d, expected %d", cell.X, cell.Y, got, want)
			}
			if err := w.writeTiles(l.Tiles[cell]); err != nil {
				return fmt.Errorf("failed to write tiles of level %d: %w", l.Level, err)
			}
		}
	}

	end := w.w.GetPos()
	if err := w.w.SetPos(w.entries[l.Level-w.minLevel]); err != nil {
		return err
	}
	if err := w.writeEntry(l.HasCellData, dataOffsetBytes, l.DefaultCellData, indexDataOffset); err != nil {
		return fmt.Errorf("failed to patch header of level %d: %w", l.Level, err)
	}
	if err := w.w.SetPos(end); err != nil {
		return err
	}

	w.next++
	return nil
}

func (w *Writer) writeTiles(tiles []tile.GroundTile) error {
	if err := w.w.WriteNumber(uint64(len(tiles))); err != nil {
		return err
	}
	for _, t := range tiles {
		if err := w.w.WriteUint8(uint8(t.Type)); err != nil {
			return err
		}
		if err := w.w.WriteNumber(uint64(len(t.Coords))); err != nil {
			return err
		}
		for _, c := range t.Coords {
			x := c.X
			if c.Coast {
				x |= coastFlag
			}
			if err := w.w.WriteUint16(x); err != nil {
				return err
			}
			if err := w.w.WriteUint16(c.Y); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes the index. It fails if not all levels were written.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush index: %w", err)
	}
	if w.next <= w.maxLevel && w.entries != nil {
		return fmt.Errorf("index incomplete, level %d not written", w.next)
	}
	return nil
}
