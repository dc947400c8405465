// Package osmsrc reads the input of a water index build from OSM PBF files
// and Osmosis polygon files.
package osmsrc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/waterindex-go/internal/coast"
	"github.com/wegman-software/waterindex-go/internal/landrules"
	"github.com/wegman-software/waterindex-go/internal/nodeindex"
	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/water"
)

// ErrUnresolvedNode is returned when a way references a node missing from
// the input.
var ErrUnresolvedNode = errors.New("unresolved node")

// Stats holds read statistics
type Stats struct {
	Nodes        int64
	Ways         int64
	Coastlines   int64
	DataPolygons int64
	LandWays     int64
	Skipped      int64
	BytesRead    int64
}

// Options configure a Reader.
type Options struct {
	// TempDir holds the node index while reading.
	TempDir   string
	Workers   int
	MaxNodeID int64

	// Classifier selects land ways; nil skips them.
	Classifier landrules.Classifier
}

// Source is everything a build needs from the input.
type Source struct {
	Coastlines   []coast.RawBoundary
	DataPolygons []coast.RawBoundary
	LandWays     []water.LandWay
	Stats        Stats
}

// Reader reads a PBF file in two passes: node coordinates into a memory
// mapped index, then ways. The index stays available for resolving
// coastline nodes until Close.
type Reader struct {
	opts     Options
	reporter progress.Reporter
	log      *zap.Logger

	nodeIndex     *nodeindex.MmapIndex
	nodeIndexPath string
}

// NewReader creates a reader.
func NewReader(opts Options, reporter progress.Reporter, log *zap.Logger) (*Reader, error) {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(opts.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxNodeID <= 0 {
		opts.MaxNodeID = nodeindex.DefaultMaxNodeID
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Reader{
		opts:          opts,
		reporter:      reporter,
		log:           log,
		nodeIndexPath: filepath.Join(opts.TempDir, "water_node_index.bin"),
	}, nil
}

// Resolver returns the node index filled by Read.
func (r *Reader) Resolver() coast.NodeResolver {
	return r.nodeIndex
}

// Close releases the node index and removes its file.
func (r *Reader) Close() error {
	var err error
	if r.nodeIndex != nil {
		err = r.nodeIndex.Close()
		r.nodeIndex = nil
	}
	os.Remove(r.nodeIndexPath)
	return err
}

// Read scans the PBF file at path.
func (r *Reader) Read(ctx context.Context, path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	src := &Source{}
	src.Stats.BytesRead = info.Size()

	r.reporter.SetAction("Scanning nodes")
	start := time.Now()
	if err := r.indexNodes(ctx, f, &src.Stats); err != nil {
		return nil, err
	}
	r.log.Info("Node pass complete",
		zap.Int64("nodes", src.Stats.Nodes),
		zap.Duration("duration", time.Since(start).Round(time.Second)))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	r.reporter.SetAction("Scanning ways")
	start = time.Now()
	if err := r.scanWays(ctx, f, src); err != nil {
		return nil, err
	}
	r.log.Info("Way pass complete",
		zap.Int64("ways", src.Stats.Ways),
		zap.Int64("coastlines", src.Stats.Coastlines),
		zap.Int64("data_polygons", src.Stats.DataPolygons),
		zap.Int64("land_ways", src.Stats.LandWays),
		zap.Int64("skipped", src.Stats.Skipped),
		zap.Duration("duration", time.Since(start).Round(time.Second)))

	return src, nil
}

func (r *Reader) indexNodes(ctx context.Context, f *os.File, stats *Stats) error {
	idx, err := nodeindex.NewMmapIndex(r.nodeIndexPath, r.opts.MaxNodeID)
	if err != nil {
		return err
	}
	r.nodeIndex = idx

	scanner := osmpbf.New(ctx, f, r.opts.Workers)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	defer scanner.Close()

	var count atomic.Int64
	tickCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go progress.Tick(tickCtx, 2*time.Second, func() {
		r.log.Debug("Node indexing progress", zap.Int64("nodes", count.Load()))
	})

	for scanner.Scan() {
		if n, ok := scanner.Object().(*osm.Node); ok {
			idx.Put(int64(n.ID), orb.Point{n.Lon, n.Lat})
			count.Add(1)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("failed to scan nodes: %w", err)
	}

	stats.Nodes = count.Load()
	return nil
}

func (r *Reader) scanWays(ctx context.Context, f *os.File, src *Source) error {
	scanner := osmpbf.New(ctx, f, r.opts.Workers)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	defer scanner.Close()

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		src.Stats.Ways++

		if err := r.addWay(w, src); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("failed to scan ways: %w", err)
	}
	return nil
}

func nodeIDs(w *osm.Way) []int64 {
	ids := make([]int64, len(w.Nodes))
	for i, n := range w.Nodes {
		ids[i] = int64(n.ID)
	}
	return ids
}

func isClosed(ids []int64) bool {
	return len(ids) > 3 && ids[0] == ids[len(ids)-1]
}

func (r *Reader) addWay(w *osm.Way, src *Source) error {
	if len(w.Nodes) < 2 {
		r.reporter.Warning(fmt.Sprintf("Way %d has less than two nodes", w.ID))
		src.Stats.Skipped++
		return nil
	}

	ids := nodeIDs(w)

	if w.Tags.Find("natural") == "coastline" {
		src.Coastlines = append(src.Coastlines, rawBoundary(int64(w.ID), ids, isClosed(ids)))
		src.Stats.Coastlines++
	}
	if w.Tags.HasTag("datapolygon") {
		src.DataPolygons = append(src.DataPolygons, rawBoundary(int64(w.ID), ids, true))
		src.Stats.DataPolygons++
	}

	if r.opts.Classifier == nil {
		return nil
	}

	flags, err := r.opts.Classifier.Classify(w.Tags.Map())
	if err != nil {
		return fmt.Errorf("failed to classify way %d: %w", w.ID, err)
	}
	if !flags.Land {
		return nil
	}

	points, err := r.resolve(ids)
	if errors.Is(err, ErrUnresolvedNode) {
		r.log.Debug("Skipping land way", zap.Int64("way", int64(w.ID)), zap.Error(err))
		src.Stats.Skipped++
		return nil
	}

	src.LandWays = append(src.LandWays, water.LandWay{
		ID:            int64(w.ID),
		IsCoastline:   w.Tags.Find("natural") == "coastline",
		IgnoreSeaLand: flags.IgnoreSeaLand,
		Bridge:        flags.Bridge,
		Tunnel:        flags.Tunnel,
		Embankment:    flags.Embankment,
		IsArea:        flags.Area && isClosed(ids),
		Points:        points,
	})
	src.Stats.LandWays++
	return nil
}

// rawBoundary drops the closing node of closed areas.
func rawBoundary(id int64, ids []int64, isArea bool) coast.RawBoundary {
	if isArea && isClosed(ids) {
		ids = ids[:len(ids)-1]
	}
	return coast.RawBoundary{ID: id, IsArea: isArea, Nodes: ids}
}

func (r *Reader) resolve(ids []int64) ([]orb.Point, error) {
	points := make([]orb.Point, len(ids))
	for i, id := range ids {
		p, ok := r.nodeIndex.Get(id)
		if !ok {
			return nil, fmt.Errorf("node %d: %w", id, ErrUnresolvedNode)
		}
		points[i] = p
	}
	return points, nil
}
