package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestBuildLogRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")

	l := newLogger(false, path)
	l.Info("Level written", zap.Int("level", 3))
	l.Debug("hidden")
	_ = l.Sync()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("record %q is not JSON: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r["msg"] != "Level written" {
		t.Errorf("msg = %v, want Level written", r["msg"])
	}
	if r["app"] != "waterindex" {
		t.Errorf("app = %v, want waterindex", r["app"])
	}
	if r["severity"] != "info" {
		t.Errorf("severity = %v, want info", r["severity"])
	}
	if r["level"] != float64(3) {
		t.Errorf("level = %v, want 3", r["level"])
	}
	if r["pid"] != float64(os.Getpid()) {
		t.Errorf("pid = %v, want %d", r["pid"], os.Getpid())
	}
}
