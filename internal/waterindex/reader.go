package waterindex

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/tile"
	"github.com/wegman-software/waterindex-go/internal/water"
)

// ErrCorrupt is returned for index files that cannot be decoded.
var ErrCorrupt = errors.New("corrupt water index")

// maxLevel bounds the levels accepted by the reader.
const maxLevel = 30

// LevelEntry is the header of one level.
type LevelEntry struct {
	Level           int
	HasCellData     bool
	DataOffsetBytes uint8
	DefaultCellData statemap.State
	IndexDataOffset int64
	DataOffset      int64

	CellWidth, CellHeight float64
	XStart, XEnd          uint32
	YStart, YEnd          uint32
}

// XCount is the number of cells per row.
func (e *LevelEntry) XCount() uint32 { return e.XEnd - e.XStart + 1 }

// YCount is the number of rows.
func (e *LevelEntry) YCount() uint32 { return e.YEnd - e.YStart + 1 }

// Contains reports whether the absolute cell lies in the stored window.
func (e *LevelEntry) Contains(x, y uint32) bool {
	return x >= e.XStart && x <= e.XEnd && y >= e.YStart && y <= e.YEnd
}

// Region is the content of one cell.
type Region struct {
	Level int
	Cell  statemap.Pixel // absolute
	Bound orb.Bound
	State statemap.State
	Tiles []tile.GroundTile
}

// StateAt classifies p inside the cell. For coast cells the last ground
// tile containing p decides; tiles are stored bottom up.
func (r *Region) StateAt(p orb.Point) statemap.State {
	if r.State != statemap.Coast {
		return r.State
	}

	state := statemap.Unknown
	for _, t := range r.Tiles {
		if !planar.RingContains(t.Ring(r.Bound), p) {
			continue
		}
		switch t.Type {
		case tile.Land:
			state = statemap.Land
		case tile.Water:
			state = statemap.Water
		case tile.Coast:
			state = statemap.Coast
		}
	}
	return state
}

// Index reads a water index file. It is safe for concurrent use.
type Index struct {
	MinLevel, MaxLevel int
	Levels             []LevelEntry

	mu sync.Mutex
	f  *os.File
	s  *FileScanner
}

// Open opens the index at path and reads its header.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	ix := &Index{f: f}
	if err := ix.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return ix, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func (ix *Index) readHeader() error {
	s, err := NewFileScanner(ix.f)
	if err != nil {
		return err
	}
	ix.s = s

	minLevel, err := s.ReadNumber()
	if err != nil {
		return corrupt("level range: %v", err)
	}
	maxLvl, err := s.ReadNumber()
	if err != nil {
		return corrupt("level range: %v", err)
	}
	if minLevel > maxLvl || maxLvl > maxLevel {
		return corrupt("level range %d..%d", minLevel, maxLvl)
	}
	ix.MinLevel, ix.MaxLevel = int(minLevel), int(maxLvl)

	for level := ix.MinLevel; level <= ix.MaxLevel; level++ {
		e, err := ix.readEntry(level)
		if err != nil {
			return corrupt("level %d: %v", level, err)
		}
		ix.Levels = append(ix.Levels, e)
	}
	return nil
}

func (ix *Index) readEntry(level int) (LevelEntry, error) {
	s := ix.s
	e := LevelEntry{Level: level}
	e.CellWidth, e.CellHeight = water.CellSize(level)

	var err error
	if e.HasCellData, err = s.ReadBool(); err != nil {
		return e, err
	}
	if e.DataOffsetBytes, err = s.ReadUint8(); err != nil {
		return e, err
	}
	state, err := s.ReadUint8()
	if err != nil {
		return e, err
	}
	if state > uint8(statemap.Coast) {
		return e, fmt.Errorf("default state %d", state)
	}
	e.DefaultCellData = statemap.State(state)
	if e.IndexDataOffset, err = s.ReadFileOffset(); err != nil {
		return e, err
	}

	var window [4]uint64
	for i := range window {
		if window[i], err = s.ReadNumber(); err != nil {
			return e, err
		}
		if window[i] > math.MaxUint32 {
			return e, fmt.Errorf("cell window value %d", window[i])
		}
	}
	e.XStart, e.XEnd = uint32(window[0]), uint32(window[1])
	e.YStart, e.YEnd = uint32(window[2]), uint32(window[3])
	if e.XStart > e.XEnd || e.YStart > e.YEnd {
		return e, fmt.Errorf("cell window %d..%d x %d..%d", e.XStart, e.XEnd, e.YStart, e.YEnd)
	}

	if e.HasCellData {
		if e.DataOffsetBytes == 0 || e.DataOffsetBytes > FileOffsetSize {
			return e, fmt.Errorf("data offset width %d", e.DataOffsetBytes)
		}
		e.DataOffset = e.IndexDataOffset + int64(e.XCount())*int64(e.YCount())*int64(e.DataOffsetBytes)
	}
	return e, nil
}

// Close closes the index file.
func (ix *Index) Close() error {
	return ix.f.Close()
}

// Entry returns the header of level, or nil if the index does not hold it.
func (ix *Index) Entry(level int) *LevelEntry {
	if level < ix.MinLevel || level > ix.MaxLevel {
		return nil
	}
	return &ix.Levels[level-ix.MinLevel]
}

// LevelFor maps a map magnification level to the index level used to draw
// it.
func (ix *Index) LevelFor(magnification int) int {
	level := magnification + 4
	if level < ix.MinLevel {
		level = ix.MinLevel
	}
	if level > ix.MaxLevel {
		level = ix.MaxLevel
	}
	return level
}

// Cell reads the state and ground tiles of an absolute cell.
func (ix *Index) Cell(level int, x, y uint32) (Region, error) {
	e := ix.Entry(level)
	if e == nil {
		return Region{}, fmt.Errorf("level %d not in index (%d..%d)", level, ix.MinLevel, ix.MaxLevel)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.readCell(e, x, y)
}

func (ix *Index) readCell(e *LevelEntry, x, y uint32) (Region, error) {
	r := Region{
		Level: e.Level,
		Cell:  statemap.Pixel{X: x, Y: y},
		Bound: orb.Bound{
			Min: orb.Point{float64(x)*e.CellWidth - 180.0, float64(y)*e.CellHeight - 90.0},
			Max: orb.Point{float64(x+1)*e.CellWidth - 180.0, float64(y+1)*e.CellHeight - 90.0},
		},
	}

	if !e.Contains(x, y) {
		r.State = statemap.Unknown
		return r, nil
	}
	if !e.HasCellData {
		r.State = e.DefaultCellData
		return r, nil
	}

	cellID := int64(y-e.YStart)*int64(e.XCount()) + int64(x-e.XStart)
	if err := ix.s.SetPos(e.IndexDataOffset + cellID*int64(e.DataOffsetBytes)); err != nil {
		return r, err
	}
	v, err := ix.s.ReadFileOffsetBytes(e.DataOffsetBytes)
	if err != nil {
		return r, corrupt("cell %d,%d of level %d: %v", x, y, e.Level, err)
	}

	if v < firstDataOffset {
		r.State = statemap.State(v)
		return r, nil
	}

	r.State = statemap.Coast
	if err := ix.s.SetPos(e.DataOffset + int64(v)); err != nil {
		return r, err
	}
	if r.Tiles, err = ix.readTiles(); err != nil {
		return r, corrupt("tiles of cell %d,%d of level %d: %v", x, y, e.Level, err)
	}
	return r, nil
}

// maxCount bounds tile and coordinate counts of a cell.
const maxCount = 1 << 24

func (ix *Index) readTiles() ([]tile.GroundTile, error) {
	s := ix.s
	count, err := s.ReadNumber()
	if err != nil {
		return nil, err
	}
	if count > maxCount {
		return nil, fmt.Errorf("tile count %d", count)
	}

	tiles := make([]tile.GroundTile, 0, count)
	for i := uint64(0); i < count; i++ {
		typ, err := s.ReadUint8()
		if err != nil {
			return nil, err
		}
		if typ > uint8(tile.Coast) {
			return nil, fmt.Errorf("tile type %d", typ)
		}

		n, err := s.ReadNumber()
		if err != nil {
			return nil, err
		}
		if n > maxCount {
			return nil, fmt.Errorf("coordinate count %d", n)
		}

		t := tile.GroundTile{Type: tile.Type(typ), Coords: make([]tile.Coord, n)}
		for j := range t.Coords {
			x, err := s.ReadUint16()
			if err != nil {
				return nil, err
			}
			y, err := s.ReadUint16()
			if err != nil {
				return nil, err
			}
			t.Coords[j] = tile.Coord{X: x &^ coastFlag, Y: y, Coast: x&coastFlag != 0}
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

// GetRegions returns the cells of the level drawn at magnification that
// intersect box, in row order.
func (ix *Index) GetRegions(box orb.Bound, magnification int) ([]Region, error) {
	e := ix.Entry(ix.LevelFor(magnification))

	cx1 := cellFloor(box.Min.Lon()+180.0, e.CellWidth)
	cx2 := cellFloor(box.Max.Lon()+180.0, e.CellWidth)
	cy1 := cellFloor(box.Min.Lat()+90.0, e.CellHeight)
	cy2 := cellFloor(box.Max.Lat()+90.0, e.CellHeight)
	if cx2 < cx1 || cy2 < cy1 {
		return nil, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	regions := make([]Region, 0, int(cx2-cx1+1)*int(cy2-cy1+1))
	for y := cy1; y <= cy2; y++ {
		for x := cx1; x <= cx2; x++ {
			r, err := ix.readCell(e, x, y)
			if err != nil {
				return nil, err
			}
			regions = append(regions, r)
		}
	}
	return regions, nil
}

// Lookup returns the cell of level holding p.
func (ix *Index) Lookup(p orb.Point, level int) (Region, error) {
	e := ix.Entry(level)
	if e == nil {
		return Region{}, fmt.Errorf("level %d not in index (%d..%d)", level, ix.MinLevel, ix.MaxLevel)
	}
	return ix.Cell(level, cellFloor(p.Lon()+180.0, e.CellWidth), cellFloor(p.Lat()+90.0, e.CellHeight))
}

func cellFloor(v, size float64) uint32 {
	c := math.Floor(v / size)
	if c < 0 {
		return 0
	}
	return uint32(c)
}
