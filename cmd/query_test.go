package cmd

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		lon, lat string
		want     orb.Point
		wantErr  bool
	}{
		{"7.5", "4.5", orb.Point{7.5, 4.5}, false},
		{"-180", "-90", orb.Point{-180, -90}, false},
		{"181", "0", orb.Point{}, true},
		{"0", "91", orb.Point{}, true},
		{"east", "0", orb.Point{}, true},
	}
	for _, tt := range tests {
		got, err := parsePoint(tt.lon, tt.lat)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePoint(%q, %q) error = %v, wantErr %v", tt.lon, tt.lat, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePoint(%q, %q) = %v, want %v", tt.lon, tt.lat, got, tt.want)
		}
	}
}
