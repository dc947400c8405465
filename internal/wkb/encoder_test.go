package wkb

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestEncodePoint(t *testing.T) {
	e := NewEncoder(SRID4326)
	got := e.EncodePoint(orb.Point{13.5, 52.25})

	if len(got) != 25 {
		t.Fatalf("len = %d, want 25", len(got))
	}
	if got[0] != 0x01 {
		t.Errorf("byte order = %d, want 1", got[0])
	}
	if typ := binary.LittleEndian.Uint32(got[1:]); typ != wkbPoint|wkbSRIDFlag {
		t.Errorf("type = %#x, want %#x", typ, wkbPoint|wkbSRIDFlag)
	}
	if srid := binary.LittleEndian.Uint32(got[5:]); srid != SRID4326 {
		t.Errorf("srid = %d, want %d", srid, SRID4326)
	}
	if x := math.Float64frombits(binary.LittleEndian.Uint64(got[9:])); x != 13.5 {
		t.Errorf("x = %v, want 13.5", x)
	}
	if y := math.Float64frombits(binary.LittleEndian.Uint64(got[17:])); y != 52.25 {
		t.Errorf("y = %v, want 52.25", y)
	}
}

func TestEncodePolygonClosesRings(t *testing.T) {
	e := NewEncoder(SRID3857)

	open := e.EncodePolygon(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}}})
	openLen := len(open)
	if n := binary.LittleEndian.Uint32(open[13:]); n != 1 {
		t.Errorf("rings = %d, want 1", n)
	}
	if n := binary.LittleEndian.Uint32(open[17:]); n != 4 {
		t.Errorf("points = %d, want 4", n)
	}

	closed := e.EncodePolygon(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	if len(closed) != openLen {
		t.Errorf("closed ring len = %d, want %d", len(closed), openLen)
	}
	if want := 1 + 4 + 4 + 4 + 4 + 4*16; openLen != want {
		t.Errorf("len = %d, want %d", openLen, want)
	}

	box := e.EncodeBound(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}})
	if n := binary.LittleEndian.Uint32(box[17:]); n != 5 {
		t.Errorf("bound points = %d, want 5", n)
	}
}
