package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/types"
)

func testCollector(now time.Time) *Collector {
	return NewCollector(config.AnalyticsConfig{
		BufferCapacity:             1000,
		AggregationIntervalSeconds: 60,
		CleanupIntervalSeconds:     3600,
		RetentionHours:             24,
	}, WithClock(func() time.Time { return now }))
}

func servedResponse(provider string, latencyMs int64) *types.LLMResponse {
	return &types.LLMResponse{
		Content:        "ok",
		ModelUsed:      "gpt-4o",
		Provider:       provider,
		Usage:          types.TokenUsage{TotalTokens: 100},
		EstimatedCost:  0.01,
		ResponseTimeMs: latencyMs,
	}
}

func TestRealTimeRates(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c := testCollector(now)

	req := &types.LLMRequest{Prompt: "p", UserID: "alice", TenantID: "acme"}

	// 100 total: 70 provider-served, 10 errors, 20 cache hits.
	for i := 0; i < 70; i++ {
		c.RecordRequest(req, servedResponse("openai", 100))
	}
	for i := 0; i < 10; i++ {
		c.RecordError(req, "openai", "service_unavailable")
	}
	for i := 0; i < 20; i++ {
		c.RecordCacheHit(req, servedResponse("openai", 1))
	}

	m := c.GetRealTimeMetrics()
	assert.Equal(t, 100, m.TotalRequests)
	assert.InDelta(t, 10.0, m.ErrorRatePercent, 1e-9)
	assert.InDelta(t, 20.0, m.CacheHitRatePercent, 1e-9)
	assert.InDelta(t, 20.0, m.RequestRatePerMin, 1e-9, "100 over a 5 minute window")
}

func TestRealTimeWindowExcludesOldEvents(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c := testCollector(now)

	req := &types.LLMRequest{Prompt: "p"}
	c.RecordRequest(req, servedResponse("openai", 100))

	// Advance past the five-minute window.
	c.now = func() time.Time { return now.Add(6 * time.Minute) }

	m := c.GetRealTimeMetrics()
	assert.Zero(t, m.TotalRequests)
	assert.Zero(t, m.ErrorRatePercent)
}

func TestRealTimeLatencyPercentiles(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c := testCollector(now)

	req := &types.LLMRequest{Prompt: "p"}
	for i := 1; i <= 100; i++ {
		c.RecordRequest(req, servedResponse("openai", int64(i)))
	}

	m := c.GetRealTimeMetrics()
	assert.InDelta(t, 50.5, m.AvgResponseTimeMs, 1e-9)
	assert.Equal(t, int64(96), m.P95ResponseTimeMs)
	assert.Equal(t, 100, m.ProviderDistribution["openai"])
}

func TestTenantReportFilters(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c := testCollector(now)

	acme := &types.LLMRequest{Prompt: "p", TenantID: "acme"}
	globex := &types.LLMRequest{Prompt: "p", TenantID: "globex"}

	for i := 0; i < 3; i++ {
		c.RecordRequest(acme, servedResponse("openai", 100))
	}
	c.RecordRequest(globex, servedResponse("anthropic", 200))
	c.RecordError(acme, "openai", "rate_limit")
	c.RecordCacheHit(globex, servedResponse("anthropic", 1))

	r := c.GetTenantAnalytics("acme", 24)
	assert.Equal(t, 3, r.Requests)
	assert.Equal(t, 1, r.Errors)
	assert.Zero(t, r.CacheHits)
	assert.Equal(t, 1, r.ErrorsByKind["rate_limit"])
	assert.InDelta(t, 0.03, r.TotalCost, 1e-9)

	sys := c.GetSystemAnalytics(24)
	assert.Equal(t, 4, sys.Requests)
	assert.Equal(t, 1, sys.CacheHits)
	assert.Equal(t, 1, sys.ByProvider["anthropic"])
	assert.Equal(t, 3, sys.ByProvider["openai"])
}

func TestCleanupTickDropsBeyondRetention(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c := testCollector(now)

	old := &types.LLMRequest{Prompt: "old"}
	c.RecordRequest(old, servedResponse("openai", 100))

	// One day plus a minute later, the event is past retention.
	c.now = func() time.Time { return now.Add(24*time.Hour + time.Minute) }
	c.cleanupTick()

	require.Zero(t, c.buffers[EventRequest].Len())
}

func TestRecordingNeverBlocksOnFullBuffers(t *testing.T) {
	c := NewCollector(config.AnalyticsConfig{
		BufferCapacity:             5,
		AggregationIntervalSeconds: 60,
		CleanupIntervalSeconds:     3600,
		RetentionHours:             24,
	})

	req := &types.LLMRequest{Prompt: "p"}
	for i := 0; i < 50; i++ {
		c.RecordRequest(req, servedResponse(fmt.Sprintf("p%d", i), 1))
	}
	assert.Equal(t, 5, c.buffers[EventRequest].Len())
}
