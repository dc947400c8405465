// Package metrics samples process and system resource usage during a build.
package metrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Sample is one snapshot of resource usage
type Sample struct {
	CPUPercent        float64 // System-wide CPU usage (0-100%)
	ProcessCPUPercent float64 // Can exceed 100% on multi-core
	ProcessRSS        uint64
	MemoryPercent     float64
	DiskReadMBps      float64
	DiskWriteMBps     float64
	Timestamp         time.Time
}

// Summary aggregates the samples of a build.
type Summary struct {
	Samples       int
	PeakRSS       uint64
	MaxCPUPercent float64
	AvgCPUPercent float64
}

// Collector periodically samples and logs resource usage
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	lastDisk     map[string]disk.IOCountersStat
	lastDiskTime time.Time

	mu      sync.Mutex
	last    *Sample
	summary Summary
	cpuSum  float64
}

// NewCollector creates a collector. Intervals below a second fall back to
// 30 seconds.
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// Start samples until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// first sample sets the disk baseline
	c.Collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.logSample(c.Collect())
		}
	}
}

// Last returns the most recent sample or nil.
func (c *Collector) Last() *Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Summary returns the aggregate of all samples so far.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.summary
	if s.Samples > 0 {
		s.AvgCPUPercent = c.cpuSum / float64(s.Samples)
	}
	return s
}

// Collect takes one sample.
func (c *Collector) Collect() *Sample {
	s := &Sample{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSS = info.RSS
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
	}
	s.DiskReadMBps, s.DiskWriteMBps = c.diskRates(s.Timestamp)

	c.mu.Lock()
	c.last = s
	c.summary.Samples++
	c.cpuSum += s.ProcessCPUPercent
	if s.ProcessRSS > c.summary.PeakRSS {
		c.summary.PeakRSS = s.ProcessRSS
	}
	if s.ProcessCPUPercent > c.summary.MaxCPUPercent {
		c.summary.MaxCPUPercent = s.ProcessCPUPercent
	}
	c.mu.Unlock()

	return s
}

func (c *Collector) logSample(s *Sample) {
	c.logger.Info("System metrics",
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", formatMB(float64(s.ProcessRSS)/(1024*1024))),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("disk_r", formatMB(s.DiskReadMBps)+"/s"),
		zap.String("disk_w", formatMB(s.DiskWriteMBps)+"/s"),
	)
}

func (c *Collector) diskRates(now time.Time) (readMBps, writeMBps float64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}

	last := c.lastDisk
	elapsed := now.Sub(c.lastDiskTime).Seconds()
	c.lastDisk = counters
	c.lastDiskTime = now
	if last == nil || elapsed < 0.1 {
		return 0, 0
	}

	var readDelta, writeDelta uint64
	for name, counter := range counters {
		prev, ok := last[name]
		if !ok {
			continue
		}
		// counters may wrap
		if counter.ReadBytes >= prev.ReadBytes {
			readDelta += counter.ReadBytes - prev.ReadBytes
		}
		if counter.WriteBytes >= prev.WriteBytes {
			writeDelta += counter.WriteBytes - prev.WriteBytes
		}
	}

	return float64(readDelta) / elapsed / (1024 * 1024), float64(writeDelta) / elapsed / (1024 * 1024)
}

func formatMB(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1f GB", mb/1024)
	}
	return fmt.Sprintf("%.1f MB", mb)
}
