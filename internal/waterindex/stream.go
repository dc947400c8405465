// Package waterindex writes and reads the water index file.
//
// The file starts with the level range followed by one entry per level:
//
//	hasCellData      bool (1 byte)
//	dataOffsetBytes  uint8
//	defaultCellData  uint8
//	indexDataOffset  FileOffset (8 bytes, little endian)
//	xStart, xEnd     varint
//	yStart, yEnd     varint
//
// The first four fields are patched once the level data is written. A level
// with cell data stores one dataOffsetBytes wide entry per cell in row order
// at indexDataOffset. Entries below 4 are cell states; other entries point
// into the data blob following the cell entries, which holds the ground
// tiles of the coast cells.
package waterindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// FileOffsetSize is the serialized size of a FileOffset.
const FileOffsetSize = 8

// FileWriter is a buffered binary writer that can seek back to patch
// already written data.
type FileWriter struct {
	ws  io.WriteSeeker
	w   *bufio.Writer
	pos int64
	buf [binary.MaxVarintLen64]byte
}

// NewFileWriter starts writing at the current position of ws.
func NewFileWriter(ws io.WriteSeeker) (*FileWriter, error) {
	pos, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to get file position: %w", err)
	}
	return &FileWriter{ws: ws, w: bufio.NewWriterSize(ws, 256*1024), pos: pos}, nil
}

func (fw *FileWriter) write(p []byte) error {
	n, err := fw.w.Write(p)
	fw.pos += int64(n)
	return err
}

// GetPos returns the position the next write goes to.
func (fw *FileWriter) GetPos() int64 {
	return fw.pos
}

// SetPos flushes pending data and moves to the absolute position pos.
func (fw *FileWriter) SetPos(pos int64) error {
	if err := fw.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	if _, err := fw.ws.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to %d: %w", pos, err)
	}
	fw.pos = pos
	return nil
}

// Flush writes buffered data to the underlying writer.
func (fw *FileWriter) Flush() error {
	return fw.w.Flush()
}

func (fw *FileWriter) WriteBool(v bool) error {
	if v {
		return fw.WriteUint8(1)
	}
	return fw.WriteUint8(0)
}

func (fw *FileWriter) WriteUint8(v uint8) error {
	fw.buf[0] = v
	return fw.write(fw.buf[:1])
}

func (fw *FileWriter) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(fw.buf[:], v)
	return fw.write(fw.buf[:2])
}

func (fw *FileWriter) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(fw.buf[:], v)
	return fw.write(fw.buf[:4])
}

// WriteNumber writes v as unsigned LEB128.
func (fw *FileWriter) WriteNumber(v uint64) error {
	n := binary.PutUvarint(fw.buf[:], v)
	return fw.write(fw.buf[:n])
}

// WriteFileOffset writes off as a full width FileOffset.
func (fw *FileWriter) WriteFileOffset(off int64) error {
	binary.LittleEndian.PutUint64(fw.buf[:], uint64(off))
	return fw.write(fw.buf[:FileOffsetSize])
}

// WriteFileOffsetBytes writes the lowest bytes of v in little endian order.
func (fw *FileWriter) WriteFileOffsetBytes(v uint64, bytes uint8) error {
	if bytes == 0 || bytes > FileOffsetSize {
		return fmt.Errorf("invalid offset width %d", bytes)
	}
	binary.LittleEndian.PutUint64(fw.buf[:], v)
	return fw.write(fw.buf[:bytes])
}

// NumberSize returns the encoded size of v as written by WriteNumber.
func NumberSize(v uint64) int64 {
	var buf [binary.MaxVarintLen64]byte
	return int64(binary.PutUvarint(buf[:], v))
}

// BytesNeeded returns the number of bytes needed to store v, at least 1.
func BytesNeeded(v uint64) uint8 {
	n := uint8(1)
	for v > 0xff {
		v >>= 8
		n++
	}
	return n
}

// FileScanner reads what FileWriter wrote.
type FileScanner struct {
	rs  io.ReadSeeker
	r   *bufio.Reader
	pos int64
	buf [FileOffsetSize]byte
}

// NewFileScanner starts reading at the beginning of rs.
func NewFileScanner(rs io.ReadSeeker) (*FileScanner, error) {
	s := &FileScanner{rs: rs, r: bufio.NewReaderSize(rs, 64*1024)}
	if err := s.SetPos(0); err != nil {
		return nil, err
	}
	return s, nil
}

// GetPos returns the position of the next read.
func (s *FileScanner) GetPos() int64 {
	return s.pos
}

// SetPos moves to the absolute position pos and drops buffered data.
func (s *FileScanner) SetPos(pos int64) error {
	if _, err := s.rs.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to %d: %w", pos, err)
	}
	s.r.Reset(s.rs)
	s.pos = pos
	return nil
}

func (s *FileScanner) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:n]); err != nil {
		return nil, err
	}
	s.pos += int64(n)
	return s.buf[:n], nil
}

// ReadByte implements io.ByteReader for the varint decoder.
func (s *FileScanner) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.pos++
	return b, nil
}

func (s *FileScanner) ReadBool() (bool, error) {
	v, err := s.ReadUint8()
	return v != 0, err
}

func (s *FileScanner) ReadUint8() (uint8, error) {
	return s.ReadByte()
}

func (s *FileScanner) ReadUint16() (uint16, error) {
	b, err := s.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *FileScanner) ReadUint32() (uint32, error) {
	b, err := s.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadNumber reads an unsigned LEB128 value.
func (s *FileScanner) ReadNumber() (uint64, error) {
	return binary.ReadUvarint(s)
}

func (s *FileScanner) ReadFileOffset() (int64, error) {
	b, err := s.read(FileOffsetSize)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadFileOffsetBytes reads a little endian value of the given width.
func (s *FileScanner) ReadFileOffsetBytes(bytes uint8) (uint64, error) {
	if bytes == 0 || bytes > FileOffsetSize {
		return 0, fmt.Errorf("invalid offset width %d", bytes)
	}
	b, err := s.read(int(bytes))
	if err != nil {
		return 0, err
	}
	var full [FileOffsetSize]byte
	copy(full[:], b)
	return binary.LittleEndian.Uint64(full[:]), nil
}
