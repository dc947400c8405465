package pipeline

import (
	"time"

	"github.com/wegman-software/waterindex-go/internal/metrics"
	"github.com/wegman-software/waterindex-go/internal/osmsrc"
	"github.com/wegman-software/waterindex-go/internal/water"
)

// InputStats describes the prepared input
type InputStats struct {
	Coastlines       int // after merging and synthesis
	BoundingPolygons int
	LandWays         int
}

// BuildStats holds combined build statistics
type BuildStats struct {
	Source     osmsrc.Stats
	Input      InputStats
	Levels     []water.Stats
	IndexBytes int64
	Warnings   int64
	Errors     int64
	Metrics    metrics.Summary
	Duration   time.Duration
}

// Tiles returns the number of ground tiles over all levels.
func (s *BuildStats) Tiles() int {
	n := 0
	for _, l := range s.Levels {
		n += l.Tiles
	}
	return n
}
