// Package telemetry samples host vitals and publishes them on a side
// channel at a fixed interval, alongside serving them to the discovery
// endpoint on demand.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Vitals is a point-in-time snapshot of host resource usage.
type Vitals struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	DiskPercent   float64 `json:"diskPercent"`
	SampledAt     string  `json:"sampledAt"`
}

// Sample collects the current vitals. Individual probe failures zero the
// affected reading rather than failing the snapshot.
func Sample(ctx context.Context) Vitals {
	v := Vitals{SampledAt: time.Now().UTC().Format(time.RFC3339)}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		v.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		v.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		v.DiskPercent = du.UsedPercent
	}
	return v
}

// Publisher receives periodic vitals snapshots.
type Publisher interface {
	Publish(ctx context.Context, v Vitals) error
}

// LogPublisher writes vitals to the structured log.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, v Vitals) error {
	p.logger.InfoContext(ctx, "vitals",
		"cpu_percent", v.CPUPercent,
		"memory_percent", v.MemoryPercent,
		"disk_percent", v.DiskPercent,
	)
	return nil
}

// Monitor drives periodic sampling.
type Monitor struct {
	interval  time.Duration
	publisher Publisher
	logger    *slog.Logger
}

func NewMonitor(interval time.Duration, publisher Publisher, logger *slog.Logger) *Monitor {
	return &Monitor{interval: interval, publisher: publisher, logger: logger}
}

// Run samples and publishes until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.publisher.Publish(ctx, Sample(ctx)); err != nil {
				m.logger.WarnContext(ctx, "vitals publish failed", "error", err.Error())
			}
		}
	}
}
