package analytics

import (
	"log/slog"
	"sort"
	"time"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/types"
)

// realTimeWindow bounds the hot-path aggregation: real-time metrics only
// ever scan the trailing window, never full history.
const realTimeWindow = 5 * time.Minute

// Collector records gateway events into per-family ring buffers.
// Recording never fails; observability must never break the request path.
type Collector struct {
	buffers map[EventType]*Buffer
	cfg     config.AnalyticsConfig
	logger  *slog.Logger

	now func() time.Time // swapped in tests
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) { c.logger = logger }
}

// WithClock sets the time source (for tests).
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a collector with one buffer per metric family.
func NewCollector(cfg config.AnalyticsConfig, opts ...CollectorOption) *Collector {
	c := &Collector{
		buffers: map[EventType]*Buffer{
			EventRequest:     NewBuffer(cfg.BufferCapacity),
			EventPerformance: NewBuffer(cfg.BufferCapacity),
			EventCost:        NewBuffer(cfg.BufferCapacity),
			EventError:       NewBuffer(cfg.BufferCapacity),
			EventCacheHit:    NewBuffer(cfg.BufferCapacity),
		},
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// RecordRequest records a completed provider-served request.
func (c *Collector) RecordRequest(req *types.LLMRequest, resp *types.LLMResponse) {
	now := c.now()
	c.buffers[EventRequest].Add(Event{
		Type:       EventRequest,
		Timestamp:  now,
		Provider:   resp.Provider,
		Model:      resp.ModelUsed,
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		DurationMs: resp.ResponseTimeMs,
		Cost:       resp.EstimatedCost,
		Tokens:     resp.Usage.TotalTokens,
	})
	c.buffers[EventCost].Add(Event{
		Type:      EventCost,
		Timestamp: now,
		Provider:  resp.Provider,
		Model:     resp.ModelUsed,
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		Cost:      resp.EstimatedCost,
	})
}

// RecordCacheHit records a request served from cache.
func (c *Collector) RecordCacheHit(req *types.LLMRequest, resp *types.LLMResponse) {
	c.buffers[EventCacheHit].Add(Event{
		Type:      EventCacheHit,
		Timestamp: c.now(),
		Provider:  resp.Provider,
		Model:     resp.ModelUsed,
		TenantID:  req.TenantID,
		UserID:    req.UserID,
	})
}

// RecordError records a terminally failed request.
func (c *Collector) RecordError(req *types.LLMRequest, provider, errorKind string) {
	c.buffers[EventError].Add(Event{
		Type:      EventError,
		Timestamp: c.now(),
		Provider:  provider,
		Model:     req.ModelPreference,
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		ErrorKind: errorKind,
	})
}

// RealTimeMetrics is the trailing-five-minute snapshot for dashboards.
type RealTimeMetrics struct {
	WindowSeconds        int                `json:"window_seconds"`
	TotalRequests        int                `json:"total_requests"`
	RequestRatePerMin    float64            `json:"request_rate_per_min"`
	ErrorRatePercent     float64            `json:"error_rate_percent"`
	CacheHitRatePercent  float64            `json:"cache_hit_rate_percent"`
	AvgResponseTimeMs    float64            `json:"avg_response_time_ms"`
	P95ResponseTimeMs    int64              `json:"p95_response_time_ms"`
	ProviderDistribution map[string]int     `json:"provider_distribution"`
}

// GetRealTimeMetrics aggregates the last five minutes. Total traffic is
// provider-served requests plus cache hits plus errors.
func (c *Collector) GetRealTimeMetrics() RealTimeMetrics {
	cutoff := c.now().Add(-realTimeWindow)

	requests := c.buffers[EventRequest].GetRecent(cutoff)
	errors := c.buffers[EventError].GetRecent(cutoff)
	cacheHits := c.buffers[EventCacheHit].GetRecent(cutoff)

	total := len(requests) + len(errors) + len(cacheHits)
	m := RealTimeMetrics{
		WindowSeconds:        int(realTimeWindow / time.Second),
		TotalRequests:        total,
		RequestRatePerMin:    float64(total) / realTimeWindow.Minutes(),
		ProviderDistribution: make(map[string]int),
	}

	if total > 0 {
		m.ErrorRatePercent = float64(len(errors)) / float64(total) * 100
		m.CacheHitRatePercent = float64(len(cacheHits)) / float64(total) * 100
	}

	if len(requests) > 0 {
		durations := make([]int64, 0, len(requests))
		var sum int64
		for _, e := range requests {
			durations = append(durations, e.DurationMs)
			sum += e.DurationMs
			m.ProviderDistribution[e.Provider]++
		}
		m.AvgResponseTimeMs = float64(sum) / float64(len(requests))
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		idx := len(durations) * 95 / 100
		if idx >= len(durations) {
			idx = len(durations) - 1
		}
		m.P95ResponseTimeMs = durations[idx]
	}

	return m
}

// Report aggregates traffic for a tenant or the whole system over a window.
type Report struct {
	TenantID      string             `json:"tenant_id,omitempty"`
	Hours         int                `json:"hours"`
	Requests      int                `json:"requests"`
	Errors        int                `json:"errors"`
	CacheHits     int                `json:"cache_hits"`
	TotalCost     float64            `json:"total_cost"`
	TotalTokens   int                `json:"total_tokens"`
	AvgLatencyMs  float64            `json:"avg_latency_ms"`
	ByModel       map[string]int     `json:"by_model"`
	ByProvider    map[string]int     `json:"by_provider"`
	ErrorsByKind  map[string]int     `json:"errors_by_kind"`
}

// GetTenantAnalytics reports one tenant's traffic over the trailing window.
func (c *Collector) GetTenantAnalytics(tenantID string, hours int) Report {
	return c.report(tenantID, hours)
}

// GetSystemAnalytics reports all traffic over the trailing window.
func (c *Collector) GetSystemAnalytics(hours int) Report {
	return c.report("", hours)
}

func (c *Collector) report(tenantID string, hours int) Report {
	cutoff := c.now().Add(-time.Duration(hours) * time.Hour)
	r := Report{
		TenantID:     tenantID,
		Hours:        hours,
		ByModel:      make(map[string]int),
		ByProvider:   make(map[string]int),
		ErrorsByKind: make(map[string]int),
	}

	var latencySum int64
	for _, e := range c.buffers[EventRequest].GetRecent(cutoff) {
		if tenantID != "" && e.TenantID != tenantID {
			continue
		}
		r.Requests++
		r.TotalCost += e.Cost
		r.TotalTokens += e.Tokens
		latencySum += e.DurationMs
		r.ByModel[e.Model]++
		r.ByProvider[e.Provider]++
	}
	if r.Requests > 0 {
		r.AvgLatencyMs = float64(latencySum) / float64(r.Requests)
	}

	for _, e := range c.buffers[EventError].GetRecent(cutoff) {
		if tenantID != "" && e.TenantID != tenantID {
			continue
		}
		r.Errors++
		r.ErrorsByKind[e.ErrorKind]++
	}

	for _, e := range c.buffers[EventCacheHit].GetRecent(cutoff) {
		if tenantID != "" && e.TenantID != tenantID {
			continue
		}
		r.CacheHits++
	}

	return r
}
