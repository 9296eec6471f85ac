package analytics

import (
	"context"
	"time"
)

// Run starts the aggregation and cleanup loops and blocks until ctx is
// cancelled. Both loops are independent; a panic inside a tick is logged
// and the loop keeps going.
func (c *Collector) Run(ctx context.Context) {
	aggInterval := time.Duration(c.cfg.AggregationIntervalSeconds) * time.Second
	cleanInterval := time.Duration(c.cfg.CleanupIntervalSeconds) * time.Second

	done := make(chan struct{})
	go func() {
		c.runLoop(ctx, aggInterval, c.aggregateTick)
		close(done)
	}()
	c.runLoop(ctx, cleanInterval, c.cleanupTick)
	<-done
}

// runLoop ticks fn at the given interval until ctx is cancelled.
func (c *Collector) runLoop(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.safeTick(fn)
		}
	}
}

// safeTick runs fn, converting a panic into a log line so a bad tick never
// takes down the process.
func (c *Collector) safeTick(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("analytics loop tick failed", "panic", r)
		}
	}()
	fn()
}

// aggregateTick logs a periodic rollup of the trailing window.
func (c *Collector) aggregateTick() {
	m := c.GetRealTimeMetrics()
	c.logger.Info("analytics rollup",
		"requests_5m", m.TotalRequests,
		"rate_per_min", m.RequestRatePerMin,
		"error_pct", m.ErrorRatePercent,
		"cache_hit_pct", m.CacheHitRatePercent,
		"avg_ms", m.AvgResponseTimeMs,
	)
}

// cleanupTick drops events older than the retention window from every buffer.
func (c *Collector) cleanupTick() {
	cutoff := c.now().Add(-time.Duration(c.cfg.RetentionHours) * time.Hour)
	dropped := 0
	for _, b := range c.buffers {
		dropped += b.DropOlder(cutoff)
	}
	if dropped > 0 {
		c.logger.Debug("analytics cleanup", "dropped", dropped)
	}
}
