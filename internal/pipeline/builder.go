package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/trace"
	"github.com/wegman-software/waterindex-go/internal/water"
	"github.com/wegman-software/waterindex-go/internal/waterindex"
)

// Builder processes the levels of an index concurrently and writes them in
// ascending order.
type Builder struct {
	Options  water.Options
	Workers  int
	Reporter progress.Reporter
	Log      *zap.Logger
	Tracer   trace.Tracer
}

func (b *Builder) reporterFor(level int) progress.Reporter {
	if zr, ok := b.Reporter.(*progress.ZapReporter); ok {
		return zr.With(zap.Int("level", level))
	}
	return b.Reporter
}

type levelResult struct {
	level *water.Level
	stats water.Stats
}

// Build writes the index for minLevel..maxLevel of in to ws. Up to Workers
// levels are processed at the same time. The first failing level cancels
// the others.
func (b *Builder) Build(ctx context.Context, in *water.Input, minLevel, maxLevel int, ws io.WriteSeeker) ([]water.Stats, error) {
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	w, err := waterindex.NewWriter(ws, b.Reporter)
	if err != nil {
		return nil, err
	}
	if err := w.WriteHeader(in.Box, minLevel, maxLevel); err != nil {
		return nil, fmt.Errorf("failed to write index header: %w", err)
	}

	count := maxLevel - minLevel + 1
	results := make([]chan levelResult, count)
	for i := range results {
		results[i] = make(chan levelResult, 1)
	}
	stats := make([]water.Stats, count)
	tracker := NewLevelTracker(minLevel, maxLevel)

	g, gctx := errgroup.WithContext(ctx)

	// writer
	g.Go(func() error {
		for i := range results {
			select {
			case r := <-results[i]:
				if err := w.WriteLevel(r.level); err != nil {
					return fmt.Errorf("failed to write level %d: %w", r.level.Level, err)
				}
				stats[i] = r.stats
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	sem := make(chan struct{}, workers)
schedule:
	for i := 0; i < count; i++ {
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break schedule
		}

		level := minLevel + i
		out := results[i]
		g.Go(func() error {
			defer func() { <-sem }()

			processor := water.NewProcessor(b.reporterFor(level), log.With(zap.Int("level", level)), b.Options)
			if b.Tracer != nil {
				processor.WithTracer(b.Tracer)
			}

			l, st, err := processor.BuildLevel(gctx, level, in)
			if err != nil {
				return err
			}

			p := tracker.Finish(level)
			log.Info("Level complete",
				zap.Int("level", level),
				zap.Int("coastlines", st.Coastlines),
				zap.Int("land", st.Cells[statemap.Land]),
				zap.Int("water", st.Cells[statemap.Water]),
				zap.Int("coast", st.Cells[statemap.Coast]),
				zap.Int("unknown", st.Cells[statemap.Unknown]),
				zap.Int("tiles", st.Tiles),
				zap.Duration("duration", st.Duration.Round(time.Millisecond)),
				zap.String("progress", fmt.Sprintf("%d/%d (%.1f%%)", p.Finished, p.Total, p.Percentage)),
				zap.String("eta", FormatETA(p.ETA)))

			out <- levelResult{level: l, stats: st}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return stats, nil
}
