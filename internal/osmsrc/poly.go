package osmsrc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/progress"
)

// LoadPoly reads an Osmosis polygon file.
func LoadPoly(path string, reporter progress.Reporter) ([]*coast.Coast, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open polygon file: %w", err)
	}
	defer f.Close()

	polygons, err := ReadPoly(f, reporter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return polygons, nil
}

// ReadPoly parses the Osmosis polygon format: a name line, then sections of
// "lon lat" lines each closed by END, then a final END. Sections starting
// with '!' are holes and are skipped. Every ring becomes a data polygon
// with a negative synthetic id.
func ReadPoly(r io.Reader, reporter progress.Reporter) ([]*coast.Coast, error) {
	scanner := bufio.NewScanner(r)

	line := 0
	next := func() (string, bool) {
		for scanner.Scan() {
			line++
			if text := strings.TrimSpace(scanner.Text()); text != "" {
				return text, true
			}
		}
		return "", false
	}

	if _, ok := next(); !ok {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty polygon file")
	}

	var polygons []*coast.Coast
	for {
		section, ok := next()
		if !ok {
			return nil, fmt.Errorf("line %d: missing final END", line)
		}
		if section == "END" {
			break
		}
		hole := strings.HasPrefix(section, "!")

		var ring []orb.Point
		for {
			text, ok := next()
			if !ok {
				return nil, fmt.Errorf("line %d: section %q not terminated", line, section)
			}
			if text == "END" {
				break
			}
			p, err := parsePolyPoint(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			ring = append(ring, p)
		}

		if hole {
			reporter.Warning(fmt.Sprintf("Ignoring hole %s of bounding polygon", section))
			continue
		}
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			reporter.Warning(fmt.Sprintf("Ignoring bounding polygon section %s with %d points", section, len(ring)))
			continue
		}

		id := -int64(len(polygons) + 1)
		c := &coast.Coast{
			ID:           id,
			IsArea:       true,
			SortCriteria: float64(id),
			Points:       make([]coast.Point, len(ring)),
			Left:         coast.Undefined,
			Right:        coast.Unknown,
		}
		for i, p := range ring {
			c.Points[i] = coast.Point{Coord: p}
		}
		polygons = append(polygons, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return polygons, nil
}

func parsePolyPoint(text string) (orb.Point, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return orb.Point{}, fmt.Errorf("expected \"lon lat\", got %q", text)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude: %w", err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("coordinate %q out of range", text)
	}
	return orb.Point{lon, lat}, nil
}
