// Package nodeindex stores node coordinates in a memory mapped sparse file
// indexed by node id.
package nodeindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/paulmach/orb"
)

const (
	// Each node entry: lat (int32) + lon (int32) = 8 bytes
	// Using fixed-point: value * 1e7 to store as int32
	entrySize = 8

	// DefaultMaxNodeID covers the current OSM node id space.
	DefaultMaxNodeID = 16_000_000_000

	// the sign bit is flipped on disk so that never written entries of the
	// sparse file decode as missing
	signFlip = 0x80000000
)

// MmapIndex is a memory-mapped node coordinate index.
// Node coordinates are stored at offset = nodeID * 8.
type MmapIndex struct {
	file      *os.File
	data      mmap.MMap
	maxNodeID int64
	writer    bool
}

// NewMmapIndex creates a new index for writing node ids below maxNodeID.
func NewMmapIndex(path string, maxNodeID int64) (*MmapIndex, error) {
	size := maxNodeID * entrySize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create mmap file: %w", err)
	}

	// Truncate to full size (creates sparse file on Linux)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to truncate file: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	return &MmapIndex{
		file:      f,
		data:      data,
		maxNodeID: maxNodeID,
		writer:    true,
	}, nil
}

// OpenMmapIndex opens an existing index for reading.
func OpenMmapIndex(path string) (*MmapIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmap file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() < entrySize {
		f.Close()
		return nil, fmt.Errorf("node index %s is empty", path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	return &MmapIndex{
		file:      f,
		data:      data,
		maxNodeID: info.Size() / entrySize,
	}, nil
}

// Put stores a node's coordinates. Ids outside the index are ignored.
// Concurrent puts of different ids are safe.
func (m *MmapIndex) Put(nodeID int64, p orb.Point) {
	if !m.writer || nodeID < 0 || nodeID >= m.maxNodeID {
		return
	}

	offset := nodeID * entrySize
	latInt := int32(math.Round(p.Lat() * 1e7))
	lonInt := int32(math.Round(p.Lon() * 1e7))

	binary.LittleEndian.PutUint32(m.data[offset:], uint32(latInt)^signFlip)
	binary.LittleEndian.PutUint32(m.data[offset+4:], uint32(lonInt)^signFlip)
}

// Get retrieves a node's coordinates.
func (m *MmapIndex) Get(nodeID int64) (orb.Point, bool) {
	if nodeID < 0 || nodeID >= m.maxNodeID {
		return orb.Point{}, false
	}

	offset := nodeID * entrySize
	latRaw := binary.LittleEndian.Uint32(m.data[offset:])
	lonRaw := binary.LittleEndian.Uint32(m.data[offset+4:])
	if latRaw == 0 && lonRaw == 0 {
		return orb.Point{}, false
	}

	lat := float64(int32(latRaw^signFlip)) / 1e7
	lon := float64(int32(lonRaw^signFlip)) / 1e7
	return orb.Point{lon, lat}, true
}

// Resolve returns the coordinates of the known ids.
func (m *MmapIndex) Resolve(ids []int64) (map[int64]orb.Point, error) {
	coords := make(map[int64]orb.Point, len(ids))
	for _, id := range ids {
		if p, ok := m.Get(id); ok {
			coords[id] = p
		}
	}
	return coords, nil
}

// Sync flushes changes to disk.
func (m *MmapIndex) Sync() error {
	if !m.writer {
		return nil
	}
	return m.data.Flush()
}

// Close unmaps and closes the index.
func (m *MmapIndex) Close() error {
	if err := m.data.Unmap(); err != nil {
		m.file.Close()
		return fmt.Errorf("failed to unmap: %w", err)
	}
	return m.file.Close()
}
