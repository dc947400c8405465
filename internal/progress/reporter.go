// Package progress carries the progress and error reporting used by the
// water index build. Geometry and record level problems are reported here
// instead of being returned as errors.
package progress

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Reporter receives progress and problem reports.
type Reporter interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	SetAction(action string)
	SetProgress(current, total int)
}

type counters struct {
	warnings atomic.Int64
	errors   atomic.Int64
}

// ZapReporter forwards reports to a zap logger and counts warnings and
// errors. Reporters derived with With share the counters.
type ZapReporter struct {
	log    *zap.Logger
	counts *counters

	mu          sync.Mutex
	action      string
	lastPercent int
}

// NewZapReporter creates a reporter logging to log.
func NewZapReporter(log *zap.Logger) *ZapReporter {
	return &ZapReporter{
		log:         log,
		counts:      &counters{},
		lastPercent: -1,
	}
}

// With returns a reporter that adds fields to every message.
func (r *ZapReporter) With(fields ...zap.Field) *ZapReporter {
	return &ZapReporter{
		log:         r.log.With(fields...),
		counts:      r.counts,
		lastPercent: -1,
	}
}

func (r *ZapReporter) fields() []zap.Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.action == "" {
		return nil
	}
	return []zap.Field{zap.String("action", r.action)}
}

func (r *ZapReporter) Info(msg string) {
	r.log.Info(msg, r.fields()...)
}

func (r *ZapReporter) Warning(msg string) {
	r.counts.warnings.Add(1)
	r.log.Warn(msg, r.fields()...)
}

func (r *ZapReporter) Error(msg string) {
	r.counts.errors.Add(1)
	r.log.Error(msg, r.fields()...)
}

func (r *ZapReporter) SetAction(action string) {
	r.mu.Lock()
	r.action = action
	r.lastPercent = -1
	r.mu.Unlock()
	r.log.Info(action)
}

// SetProgress logs at debug level whenever the whole percentage changes.
func (r *ZapReporter) SetProgress(current, total int) {
	if total <= 0 {
		return
	}
	percent := current * 100 / total

	r.mu.Lock()
	if percent == r.lastPercent {
		r.mu.Unlock()
		return
	}
	r.lastPercent = percent
	action := r.action
	r.mu.Unlock()

	if ce := r.log.Check(zap.DebugLevel, "Progress"); ce != nil {
		ce.Write(
			zap.String("action", action),
			zap.Int("current", current),
			zap.Int("total", total),
			zap.Int("percent", percent),
		)
	}
}

// Warnings returns the number of warnings reported so far.
func (r *ZapReporter) Warnings() int64 {
	return r.counts.warnings.Load()
}

// Errors returns the number of errors reported so far.
func (r *ZapReporter) Errors() int64 {
	return r.counts.errors.Load()
}
