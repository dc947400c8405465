// Package coast prepares coastline and data polygon boundaries for the water
// index: loading, merging of way fragments into rings and synthesis against
// a bounding polygon.
package coast

import (
	"fmt"

	"github.com/paulmach/orb"
)

// State tells what lies on one side of a coast.
type State uint8

const (
	Undefined State = iota // not known yet
	Land
	Water
	Unknown
)

func (s State) String() string {
	switch s {
	case Undefined:
		return "undefined"
	case Land:
		return "land"
	case Water:
		return "water"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Point is a coast vertex. ID is the source node id, 0 for synthesized points.
type Point struct {
	ID    int64
	Coord orb.Point
}

// Coast is a coastline or data polygon fragment. Left and Right describe
// the sides when walking Points in order. Areas do not repeat their first
// point at the end.
type Coast struct {
	// ID is the OSM way ID of a coastline. Pieces cut by
	// SynthesizeCoastlines keep the ID of the coastline or data polygon
	// they were cut from, so an ID is not unique after synthesis and a
	// piece of a data polygon has no coastline way of its own.
	ID           int64
	IsArea       bool
	SortCriteria float64
	FrontNodeID  int64
	BackNodeID   int64
	Points       []Point
	Left         State
	Right        State
}

// Coords returns the coordinates of the coast points.
func (c *Coast) Coords() []orb.Point {
	coords := make([]orb.Point, len(c.Points))
	for i, p := range c.Points {
		coords[i] = p.Coord
	}
	return coords
}

// Clone returns a deep copy.
func (c *Coast) Clone() *Coast {
	clone := *c
	clone.Points = append([]Point(nil), c.Points...)
	return &clone
}
