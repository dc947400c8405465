package proj

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestParseSRID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"4326", SRID4326, false},
		{"EPSG:3857", SRID3857, false},
		{"3857", SRID3857, false},
		{"900913", SRID3857, false},
		{"2154", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSRID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSRID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSRID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewTransformerRejectsUnknown(t *testing.T) {
	if _, err := NewTransformer(SRID3857, SRID4326); err == nil {
		t.Error("NewTransformer(3857, 4326) error = nil")
	}
	if _, err := NewTransformer(SRID4326, 2154); err == nil {
		t.Error("NewTransformer(4326, 2154) error = nil")
	}
}

func TestTransformRing(t *testing.T) {
	tr, err := NewTransformer(SRID4326, SRID3857)
	if err != nil {
		t.Fatal(err)
	}
	r := tr.TransformRing(orb.Ring{{0, 0}, {180, 0}, {-180, 0}})
	if math.Abs(r[0][0]) > 1e-6 || math.Abs(r[0][1]) > 1e-6 {
		t.Errorf("origin = %v, want 0,0", r[0])
	}
	if math.Abs(r[1][0]-maxExtent) > 1e-6 || math.Abs(r[2][0]+maxExtent) > 1e-6 {
		t.Errorf("antimeridian x = %v/%v, want +-%v", r[1][0], r[2][0], maxExtent)
	}

	same, _ := NewTransformer(SRID4326, SRID4326)
	in := orb.Ring{{1, 2}}
	if got := same.TransformRing(in); got[0] != in[0] {
		t.Errorf("identity = %v, want %v", got[0], in[0])
	}
}

func TestToPixel(t *testing.T) {
	x, y := ToPixel(180, 0, 0)
	if math.Abs(x-TileSize/2) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("ToPixel(180, 0, 0) = %v, %v, want %v, 0", x, y, TileSize/2)
	}
	x, _ = ToPixel(180, 0, 2)
	if math.Abs(x-2*TileSize) > 1e-9 {
		t.Errorf("ToPixel(180, 0, 2) x = %v, want %v", x, 2*TileSize)
	}
}
