// Package monitor runs the single background worker that keeps the
// archive fresh: one crawl-then-sweep cycle at a time on a ticker.
//
// There is deliberately no intra-cycle parallelism. The upstream courtesy
// limit is global, so concurrent fetchers would each wait out the same
// interval anyway; one sequential driver is the simplest correct design.
package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Config configures the Monitor.
type Config struct {
	// Interval between cycle starts. Default: 5 minutes.
	Interval time.Duration
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
}

// Monitor drives periodic crawl and sweep cycles.
type Monitor struct {
	crawl  func(ctx context.Context) error
	sweep  func(ctx context.Context) error
	config Config
	logger *slog.Logger
}

// New creates a Monitor from the two cycle phases.
func New(crawl, sweep func(ctx context.Context) error, cfg Config, logger *slog.Logger) *Monitor {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{crawl: crawl, sweep: sweep, config: cfg, logger: logger}
}

// Run executes one cycle immediately, then one per tick, until ctx is
// cancelled. Cancellation propagates into the phases, which stop at their
// next unit boundary; Run itself never interrupts a phase mid-unit.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor: stopped")
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := m.crawl(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn("monitor: crawl cycle", "error", err)
	}
	if ctx.Err() != nil {
		return
	}
	if err := m.sweep(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn("monitor: sweep cycle", "error", err)
	}
	m.logger.Debug("monitor: cycle complete", "duration", time.Since(start))
}
