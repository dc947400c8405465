package metrics

import (
	"context"
	"testing"
	"time"
)

func TestCollectorSummary(t *testing.T) {
	c := NewCollector(0, nil)
	if c.interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s", c.interval)
	}
	if c.Last() != nil {
		t.Error("Last() before collecting is not nil")
	}

	c.Collect()
	c.Collect()

	s := c.Summary()
	if s.Samples != 2 {
		t.Errorf("Samples = %d, want 2", s.Samples)
	}
	if s.AvgCPUPercent > s.MaxCPUPercent {
		t.Errorf("AvgCPUPercent = %v exceeds MaxCPUPercent = %v", s.AvgCPUPercent, s.MaxCPUPercent)
	}
	if c.Last() == nil {
		t.Error("Last() after collecting is nil")
	}
}

func TestCollectorStopsOnCancel(t *testing.T) {
	c := NewCollector(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestFormatMB(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0 MB"},
		{12.34, "12.3 MB"},
		{2048, "2.0 GB"},
	}
	for _, tt := range tests {
		if got := formatMB(tt.in); got != tt.want {
			t.Errorf("formatMB(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
