package landrules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name string
		tags map[string]string
		want Flags
	}{
		{
			name: "road",
			tags: map[string]string{"highway": "residential"},
			want: Flags{Land: true},
		},
		{
			name: "road on a bridge",
			tags: map[string]string{"highway": "primary", "bridge": "viaduct"},
			want: Flags{Land: true, Bridge: true},
		},
		{
			name: "bridge no",
			tags: map[string]string{"highway": "primary", "bridge": "no"},
			want: Flags{Land: true},
		},
		{
			name: "road under construction",
			tags: map[string]string{"highway": "construction"},
			want: Flags{},
		},
		{
			name: "ferry",
			tags: map[string]string{"route": "ferry"},
			want: Flags{IgnoreSeaLand: true},
		},
		{
			name: "pier",
			tags: map[string]string{"man_made": "pier", "highway": "footway"},
			want: Flags{IgnoreSeaLand: true},
		},
		{
			name: "building",
			tags: map[string]string{"building": "yes"},
			want: Flags{Land: true, Area: true},
		},
		{
			name: "untagged",
			tags: map[string]string{},
			want: Flags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.Classify(tt.tags)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	f := &Filter{
		Include:    map[string][]string{"highway": nil, "railway": {"rail"}},
		Exclude:    map[string][]string{"access": {"no"}},
		RequireAny: []string{"name", "ref"},
	}

	tests := []struct {
		tags map[string]string
		want bool
	}{
		{map[string]string{"highway": "track", "name": "x"}, true},
		{map[string]string{"highway": "track"}, false},
		{map[string]string{"railway": "tram", "ref": "1"}, false},
		{map[string]string{"railway": "rail", "ref": "1"}, true},
		{map[string]string{"highway": "track", "name": "x", "access": "no"}, false},
	}
	for _, tt := range tests {
		if got := f.Match(tt.tags); got != tt.want {
			t.Errorf("Match(%v) = %v, want %v", tt.tags, got, tt.want)
		}
	}

	var empty *Filter
	if empty.Match(map[string]string{"highway": "track"}) {
		t.Error("nil filter matched")
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := []byte("land:\n  include:\n    highway: [motorway]\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if got, _ := rules.Classify(map[string]string{"highway": "motorway", "bridge": "yes"}); got != (Flags{Land: true}) {
		t.Errorf("Classify() = %+v, want land only", got)
	}

	if _, err := ParseRules([]byte("bridge:\n  include:\n    bridge: []\n")); err == nil {
		t.Error("ParseRules() without land filter returned nil error")
	}
}

func TestLuaClassifier(t *testing.T) {
	c, err := LoadLuaString(`
		function classify_way(tags)
			if tags.highway == nil then
				return nil
			end
			return {
				land = true,
				bridge = tags.bridge ~= nil and tags.bridge ~= "no",
				tunnel = tags.tunnel == "yes",
			}
		end
	`)
	if err != nil {
		t.Fatalf("LoadLuaString() error = %v", err)
	}
	defer c.Close()

	tests := []struct {
		tags map[string]string
		want Flags
	}{
		{map[string]string{"highway": "service"}, Flags{Land: true}},
		{map[string]string{"highway": "service", "bridge": "yes"}, Flags{Land: true, Bridge: true}},
		{map[string]string{"highway": "service", "tunnel": "yes"}, Flags{Land: true, Tunnel: true}},
		{map[string]string{"waterway": "river"}, Flags{}},
	}
	for _, tt := range tests {
		got, err := c.Classify(tt.tags)
		if err != nil {
			t.Fatalf("Classify(%v) error = %v", tt.tags, err)
		}
		if got != tt.want {
			t.Errorf("Classify(%v) = %+v, want %+v", tt.tags, got, tt.want)
		}
	}
}

func TestLuaClassifierErrors(t *testing.T) {
	if _, err := LoadLuaString(`x = 1`); err == nil {
		t.Error("LoadLuaString() without classify_way returned nil error")
	}

	c, err := LoadLuaString(`function classify_way(tags) error("boom") end`)
	if err != nil {
		t.Fatalf("LoadLuaString() error = %v", err)
	}
	defer c.Close()

	if _, err := c.Classify(map[string]string{"highway": "x"}); err == nil {
		t.Error("Classify() with a failing script returned nil error")
	}
}
