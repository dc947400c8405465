// Package wkb encodes water index geometries as PostGIS extended WKB.
package wkb

import (
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"
)

// WKB type constants (ISO SQL/MM specification)
const (
	wkbPoint   = 1
	wkbPolygon = 3

	// SRID flag for EWKB (PostGIS extended WKB)
	wkbSRIDFlag = 0x20000000
)

// Common SRID constants
const (
	SRID4326 = 4326 // WGS84
	SRID3857 = 3857 // Web Mercator
)

// Encoder encodes geometries as little-endian EWKB with an SRID. The
// returned slices are only valid until the next call.
type Encoder struct {
	buf  []byte
	srid uint32
}

// NewEncoder creates an encoder for geometries in srid.
func NewEncoder(srid int) *Encoder {
	return &Encoder{
		buf:  make([]byte, 0, 256),
		srid: uint32(srid),
	}
}

// SRID returns the encoder's SRID
func (e *Encoder) SRID() int {
	return int(e.srid)
}

func (e *Encoder) header(typ uint32, size int) {
	e.buf = e.buf[:0]
	if cap(e.buf) < size {
		e.buf = make([]byte, 0, size)
	}
	e.buf = append(e.buf, 0x01)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, typ|wkbSRIDFlag)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, e.srid)
}

func (e *Encoder) point(p orb.Point) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(p[0]))
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(p[1]))
}

// EncodePoint encodes a point.
func (e *Encoder) EncodePoint(p orb.Point) []byte {
	e.header(wkbPoint, 25)
	e.point(p)
	return e.buf
}

// EncodePolygon encodes a polygon. Rings are closed if needed.
func (e *Encoder) EncodePolygon(poly orb.Polygon) []byte {
	size := 13
	for _, r := range poly {
		size += 4 + (len(r)+1)*16
	}
	e.header(wkbPolygon, size)

	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(poly)))
	for _, r := range poly {
		closed := len(r) > 0 && r[0] == r[len(r)-1]
		n := len(r)
		if !closed && n > 0 {
			n++
		}
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(n))
		for _, p := range r {
			e.point(p)
		}
		if !closed && len(r) > 0 {
			e.point(r[0])
		}
	}
	return e.buf
}

// EncodeBound encodes a box as a polygon.
func (e *Encoder) EncodeBound(b orb.Bound) []byte {
	return e.EncodePolygon(orb.Polygon{b.ToRing()})
}
