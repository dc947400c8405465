package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/wegman-software/waterindex-go/internal/water"
)

// ErrInvalidLevels is returned for an empty or out of range level range.
var ErrInvalidLevels = errors.New("invalid level range")

// MaxLevel is the highest magnification level an index can hold.
const MaxLevel = 20

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// World is the box of a whole world import.
var World = BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90, IsSet: true}

// Bound returns the box as an orb bound, the world when unset.
func (b *BBox) Bound() orb.Bound {
	if b == nil || !b.IsSet {
		return World.Bound()
	}
	return orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}
}

// IsWorld reports whether the box covers the whole world.
func (b *BBox) IsWorld() bool {
	return b == nil || !b.IsSet || *b == World
}

func (b *BBox) String() string {
	if b == nil || !b.IsSet {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}
	if bbox.MinLon < -180 || bbox.MaxLon > 180 || bbox.MinLat < -90 || bbox.MaxLat > 90 {
		return nil, fmt.Errorf("bbox %s is outside the world", s)
	}

	return bbox, nil
}

// ParseAssumeLand maps the strategy names enable, automatic and disable.
func ParseAssumeLand(s string) (water.AssumeLand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enable", "yes", "true":
		return water.AssumeLandEnable, nil
	case "", "automatic", "auto":
		return water.AssumeLandAutomatic, nil
	case "disable", "no", "false":
		return water.AssumeLandDisable, nil
	}
	return water.AssumeLandAutomatic, fmt.Errorf("unknown assume land strategy %q (want enable, automatic or disable)", s)
}

// Config holds the configuration of a water index build
type Config struct {
	// Input settings
	InputFile       string `yaml:"input"`
	BBox            *BBox  `yaml:"-"`
	BBoxString      string `yaml:"bbox"`
	BoundingPolygon string `yaml:"bounding_polygon"` // Osmosis .poly file
	LandRulesFile   string `yaml:"land_rules"`       // YAML tag rules, embedded defaults when empty
	LandScript      string `yaml:"land_script"`      // Lua classify_way script, overrides LandRulesFile
	MaxNodeID       int64  `yaml:"max_node_id"`

	// Output settings
	OutputDir string `yaml:"output_dir"`
	IndexFile string `yaml:"index_file"`

	// Level settings
	MinLevel           int     `yaml:"min_level"`
	MaxLevel           int     `yaml:"max_level"`
	TileCount          int     `yaml:"tile_count"` // fill water passes
	AssumeLand         string  `yaml:"assume_land"`
	Simplify           bool    `yaml:"simplify"`
	SimplifyTolerance  float64 `yaml:"simplify_tolerance"`
	MinObjectDimension float64 `yaml:"min_object_dimension"`

	// Processing settings
	Workers int    `yaml:"workers"`
	TempDir string `yaml:"temp_dir"`

	// Export targets
	ParquetFile    string `yaml:"parquet"`
	FlatGeobufFile string `yaml:"flatgeobuf"`
	GeoJSONTrace   string `yaml:"geojson_trace"`
	Projection     int    `yaml:"projection"` // SRID of exported geometries (4326 or 3857)

	// Database settings
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSchema   string `yaml:"db_schema"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose"`
	LogFile         string        `yaml:"log_file"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BBox:               &BBox{},
		OutputDir:          ".",
		IndexFile:          "water.idx",
		MinLevel:           4,
		MaxLevel:           10,
		TileCount:          20,
		AssumeLand:         "automatic",
		Simplify:           true,
		SimplifyTolerance:  water.DefaultSimplification.Tolerance,
		MinObjectDimension: water.DefaultSimplification.MinObjectDimension,
		Workers:            runtime.NumCPU(),
		Projection:         4326,
		DBHost:             "localhost",
		DBPort:             5432,
		DBName:             "osm",
		DBUser:             "postgres",
		DBSchema:           "public",
		MetricsInterval:    30 * time.Second,
	}
}

// LoadFile overrides the configuration with the keys present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if c.BBoxString != "" {
		bbox, err := ParseBBox(c.BBoxString)
		if err != nil {
			return err
		}
		c.BBox = bbox
	}
	return nil
}

// IndexPath returns the path of the produced index file.
func (c *Config) IndexPath() string {
	return filepath.Join(c.OutputDir, c.IndexFile)
}

// ProcessorOptions returns the options of the level processor.
func (c *Config) ProcessorOptions() (water.Options, error) {
	assumeLand, err := ParseAssumeLand(c.AssumeLand)
	if err != nil {
		return water.Options{}, err
	}
	return water.Options{
		FillWaterPasses: c.TileCount,
		AssumeLand:      assumeLand,
		Simplification: water.Simplification{
			Enabled:            c.Simplify,
			Tolerance:          c.SimplifyTolerance,
			MinObjectDimension: c.MinObjectDimension,
		},
	}, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// ValidateLevels checks the level range.
func (c *Config) ValidateLevels() error {
	if c.MinLevel < 0 || c.MaxLevel > MaxLevel || c.MinLevel > c.MaxLevel {
		return fmt.Errorf("%w: %d..%d (allowed 0..%d)", ErrInvalidLevels, c.MinLevel, c.MaxLevel, MaxLevel)
	}
	return nil
}

// Validate checks that the build configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.IndexFile == "" {
		return fmt.Errorf("index file name is required")
	}
	if err := c.ValidateLevels(); err != nil {
		return err
	}
	if c.TileCount < 0 {
		return fmt.Errorf("tile count must not be negative")
	}
	if _, err := ParseAssumeLand(c.AssumeLand); err != nil {
		return err
	}
	if c.Simplify && c.SimplifyTolerance <= 0 {
		return fmt.Errorf("simplify tolerance must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Projection != 4326 && c.Projection != 3857 {
		return fmt.Errorf("projection must be 4326 or 3857, got %d", c.Projection)
	}
	return nil
}
