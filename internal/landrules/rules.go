// Package landrules decides which OSM ways certify land for the assume
// land phase, either by YAML tag rules or by a Lua script.
package landrules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Flags are the land relevant properties of a way.
type Flags struct {
	Land          bool
	IgnoreSeaLand bool
	Bridge        bool
	Tunnel        bool
	Embankment    bool
	Area          bool
}

// Classifier derives the flags of a way from its tags.
type Classifier interface {
	Classify(tags map[string]string) (Flags, error)
}

// Filter matches tags. A tag listed with no values matches any value, "*"
// matches any value too. Exclude rules win over include rules.
type Filter struct {
	Include map[string][]string `yaml:"include,omitempty"`
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny lists keys of which at least one must be present
	RequireAny []string `yaml:"require_any,omitempty"`
}

// Match reports whether tags pass the filter. An empty filter matches
// nothing.
func (f *Filter) Match(tags map[string]string) bool {
	if f == nil || (len(f.Include) == 0 && len(f.RequireAny) == 0) {
		return false
	}

	if len(f.RequireAny) > 0 {
		found := false
		for _, key := range f.RequireAny {
			if _, ok := tags[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Include) > 0 && !matchAny(f.Include, tags) {
		return false
	}

	return !matchAny(f.Exclude, tags)
}

func matchAny(rules map[string][]string, tags map[string]string) bool {
	for key, values := range rules {
		value, ok := tags[key]
		if !ok {
			continue
		}
		if len(values) == 0 {
			return true
		}
		for _, v := range values {
			if v == value || v == "*" {
				return true
			}
		}
	}
	return false
}

// Rules is a tag rule based classifier.
type Rules struct {
	Land          *Filter `yaml:"land"`
	IgnoreSeaLand *Filter `yaml:"ignore_sea_land"`
	Bridge        *Filter `yaml:"bridge"`
	Tunnel        *Filter `yaml:"tunnel"`
	Embankment    *Filter `yaml:"embankment"`
	Area          *Filter `yaml:"area"`
}

// DefaultRules returns the built in rules.
func DefaultRules() *Rules {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("landrules: invalid default rules: %v", err))
	}
	return rules
}

// ParseRules parses YAML rules.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse land rules YAML: %w", err)
	}
	if rules.Land == nil {
		return nil, fmt.Errorf("land rules define no land filter")
	}
	return &rules, nil
}

// LoadRules loads rules from a YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read land rules file: %w", err)
	}
	return ParseRules(data)
}

func (r *Rules) Classify(tags map[string]string) (Flags, error) {
	return Flags{
		Land:          r.Land.Match(tags),
		IgnoreSeaLand: r.IgnoreSeaLand.Match(tags),
		Bridge:        r.Bridge.Match(tags),
		Tunnel:        r.Tunnel.Match(tags),
		Embankment:    r.Embankment.Match(tags),
		Area:          r.Area.Match(tags),
	}, nil
}
