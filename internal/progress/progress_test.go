package progress

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestZapReporterCounts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewZapReporter(zap.New(core))
	level := r.With(zap.Int("level", 5))

	r.SetAction("Merging coastlines")
	r.Warning("Dropping to short coastline with id 7")
	level.Warning("Can't walk around cell boundary!")
	level.Error("broken")

	if r.Warnings() != 2 {
		t.Errorf("Warnings() = %d, want 2", r.Warnings())
	}
	if r.Errors() != 1 {
		t.Errorf("Errors() = %d, want 1", r.Errors())
	}

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warnings) != 2 {
		t.Fatalf("logged warnings = %d, want 2", len(warnings))
	}
	if got := warnings[0].ContextMap()["action"]; got != "Merging coastlines" {
		t.Errorf("action field = %v, want Merging coastlines", got)
	}
	if got := warnings[1].ContextMap()["level"]; got != int64(5) {
		t.Errorf("level field = %v, want 5", got)
	}
}

func TestZapReporterProgressThrottle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewZapReporter(zap.New(core))

	for i := 1; i <= 1000; i++ {
		r.SetProgress(i, 1000)
	}

	if got := logs.FilterMessage("Progress").Len(); got != 101 {
		t.Errorf("progress messages = %d, want 101", got)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Info("a")
	r.Warning("Odd count (3) of valid intersections")
	r.Error("b")

	if !r.HasWarning("Odd count") {
		t.Error("HasWarning(Odd count) = false, want true")
	}
	if r.HasWarning("missing") {
		t.Error("HasWarning(missing) = true, want false")
	}
	if len(r.Infos()) != 1 || len(r.Errors()) != 1 {
		t.Errorf("infos = %v, errors = %v", r.Infos(), r.Errors())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
