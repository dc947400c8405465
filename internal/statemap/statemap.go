// Package statemap implements the packed 2-bit-per-cell classification grid
// of one magnification level.
//
// Cell coordinates passed to GetState and SetState are relative to the
// window and must lie inside it. Builds with the waterdebug tag panic on a
// violation; other builds leave the result undefined.
package statemap

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// State is the classification of one cell.
type State uint8

const (
	Unknown State = 0
	Land    State = 1
	Water   State = 2
	Coast   State = 3
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Land:
		return "land"
	case Water:
		return "water"
	case Coast:
		return "coast"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Pixel addresses a cell, either absolute or relative to a window.
type Pixel struct {
	X, Y uint32
}

// Less orders pixels row by row.
func (p Pixel) Less(o Pixel) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

// StateMap is a window of cells with a packed state per cell.
type StateMap struct {
	cellWidth  float64
	cellHeight float64

	xStart, xEnd uint32
	yStart, yEnd uint32
	xCount       uint32
	yCount       uint32

	area []byte
}

// New creates a map covering box with cells of the given size in degrees.
// All cells start as Unknown.
func New(box orb.Bound, cellWidth, cellHeight float64) *StateMap {
	xStart, xEnd, yStart, yEnd := Window(box, cellWidth, cellHeight)
	return NewWindow(xStart, xEnd, yStart, yEnd, cellWidth, cellHeight)
}

// Window returns the absolute cell window covering box.
func Window(box orb.Bound, cellWidth, cellHeight float64) (xStart, xEnd, yStart, yEnd uint32) {
	xStart = uint32(math.Floor((box.Min.Lon() + 180.0) / cellWidth))
	xEnd = uint32(math.Floor((box.Max.Lon() + 180.0) / cellWidth))
	yStart = uint32(math.Floor((box.Min.Lat() + 90.0) / cellHeight))
	yEnd = uint32(math.Floor((box.Max.Lat() + 90.0) / cellHeight))
	return
}

// NewWindow creates a map for the absolute cell window [xStart,xEnd]x[yStart,yEnd].
func NewWindow(xStart, xEnd, yStart, yEnd uint32, cellWidth, cellHeight float64) *StateMap {
	m := &StateMap{
		cellWidth:  cellWidth,
		cellHeight: cellHeight,
		xStart:     xStart,
		xEnd:       xEnd,
		yStart:     yStart,
		yEnd:       yEnd,
		xCount:     xEnd - xStart + 1,
		yCount:     yEnd - yStart + 1,
	}
	cells := uint64(m.xCount) * uint64(m.yCount)
	m.area = make([]byte, (cells+3)/4)
	return m
}

func (m *StateMap) CellWidth() float64  { return m.cellWidth }
func (m *StateMap) CellHeight() float64 { return m.cellHeight }
func (m *StateMap) XStart() uint32      { return m.xStart }
func (m *StateMap) XEnd() uint32        { return m.xEnd }
func (m *StateMap) YStart() uint32      { return m.yStart }
func (m *StateMap) YEnd() uint32        { return m.yEnd }
func (m *StateMap) XCount() uint32      { return m.xCount }
func (m *StateMap) YCount() uint32      { return m.yCount }

// Len is the number of cells in the window.
func (m *StateMap) Len() int {
	return int(m.xCount) * int(m.yCount)
}

func (m *StateMap) check(x, y uint32) {
	if boundsChecks && (x >= m.xCount || y >= m.yCount) {
		panic(fmt.Sprintf("statemap: cell %d,%d outside %dx%d window", x, y, m.xCount, m.yCount))
	}
}

// GetState returns the state of the relative cell x,y.
func (m *StateMap) GetState(x, y uint32) State {
	m.check(x, y)
	cellID := uint64(y)*uint64(m.xCount) + uint64(x)
	index := cellID / 4
	offset := 2 * (cellID % 4)
	return State((m.area[index] >> offset) & 3)
}

// SetState sets the state of the relative cell x,y.
func (m *StateMap) SetState(x, y uint32, state State) {
	m.check(x, y)
	cellID := uint64(y)*uint64(m.xCount) + uint64(x)
	index := cellID / 4
	offset := 2 * (cellID % 4)
	m.area[index] = (m.area[index] &^ (3 << offset)) | (byte(state&3) << offset)
}

// IsInAbsolute reports whether the absolute cell x,y lies inside the window.
func (m *StateMap) IsInAbsolute(x, y uint32) bool {
	return x >= m.xStart && x <= m.xEnd && y >= m.yStart && y <= m.yEnd
}

// GetStateAbsolute returns the state of an absolute cell inside the window.
func (m *StateMap) GetStateAbsolute(x, y uint32) State {
	return m.GetState(x-m.xStart, y-m.yStart)
}

// SetStateAbsolute sets the state of an absolute cell inside the window.
func (m *StateMap) SetStateAbsolute(x, y uint32, state State) {
	m.SetState(x-m.xStart, y-m.yStart, state)
}

// Relative converts an absolute pixel into window coordinates.
func (m *StateMap) Relative(p Pixel) Pixel {
	return Pixel{X: p.X - m.xStart, Y: p.Y - m.yStart}
}

// Absolute converts a window pixel into absolute coordinates.
func (m *StateMap) Absolute(p Pixel) Pixel {
	return Pixel{X: p.X + m.xStart, Y: p.Y + m.yStart}
}

// CellBound returns the geographic box of the relative cell.
func (m *StateMap) CellBound(p Pixel) orb.Bound {
	lonMin := float64(m.xStart+p.X)*m.cellWidth - 180.0
	latMin := float64(m.yStart+p.Y)*m.cellHeight - 90.0
	return orb.Bound{
		Min: orb.Point{lonMin, latMin},
		Max: orb.Point{lonMin + m.cellWidth, latMin + m.cellHeight},
	}
}

// Clone returns an independent copy of the map.
func (m *StateMap) Clone() *StateMap {
	c := *m
	c.area = make([]byte, len(m.area))
	copy(c.area, m.area)
	return &c
}

// Counts returns the number of cells per state.
func (m *StateMap) Counts() [4]int {
	var counts [4]int
	for y := uint32(0); y < m.yCount; y++ {
		for x := uint32(0); x < m.xCount; x++ {
			counts[m.GetState(x, y)]++
		}
	}
	return counts
}
