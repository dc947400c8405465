package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// LevelTracker estimates the remaining build time from finished levels.
// Higher levels have four times the cells of the level below, so work is
// weighted by cell count.
type LevelTracker struct {
	mu        sync.Mutex
	startTime time.Time
	weights   map[int]float64
	total     float64
	done      float64
	finished  int
}

// NewLevelTracker creates a tracker for the levels min..max.
func NewLevelTracker(minLevel, maxLevel int) *LevelTracker {
	t := &LevelTracker{
		startTime: time.Now(),
		weights:   make(map[int]float64),
	}
	w := 1.0
	for l := minLevel; l <= maxLevel; l++ {
		t.weights[l] = w
		t.total += w
		w *= 4
	}
	return t
}

// Progress holds current progress information
type Progress struct {
	Finished   int
	Total      int
	Percentage float64
	Elapsed    time.Duration
	ETA        time.Duration
}

// Finish marks a level as done and returns the progress.
func (t *LevelTracker) Finish(level int) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done += t.weights[level]
	t.finished++

	elapsed := time.Since(t.startTime)
	var percentage float64
	var eta time.Duration
	if t.total > 0 {
		percentage = t.done / t.total * 100
		if t.done > 0 && t.done < t.total {
			eta = time.Duration(float64(elapsed) * (t.total - t.done) / t.done)
		}
	}

	return Progress{
		Finished:   t.finished,
		Total:      len(t.weights),
		Percentage: percentage,
		Elapsed:    elapsed.Round(time.Second),
		ETA:        eta.Round(time.Second),
	}
}

// FormatETA formats the ETA duration in a human-readable format
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "calculating..."
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
