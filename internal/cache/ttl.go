package cache

import (
	"time"

	"github.com/tripflow/llmgate/internal/types"
)

// TTL shaping constants. A policy table, not a hard rule: multipliers get
// recalibrated, the three shaping forces (confidence, success, task type)
// stay.
const (
	highConfidenceFactor = 2.0
	failedTTLCap         = 5 * time.Minute
)

// taskTTLFactor scales TTL by how expensive the task is to recompute versus
// how fast its answer goes stale.
var taskTTLFactor = map[types.TaskType]float64{
	types.TaskPlanGeneration: 1.5, // full plans are expensive to regenerate
	types.TaskOptimization:   0.5, // optimization inputs churn quickly
}

// computeTTL derives a TTL for a response from the configured default.
func computeTTL(req *types.LLMRequest, resp *types.LLMResponse, base time.Duration) time.Duration {
	ttl := base

	if factor, ok := taskTTLFactor[req.TaskType]; ok {
		ttl = time.Duration(float64(ttl) * factor)
	}

	if isHighConfidence(resp) {
		ttl = time.Duration(float64(ttl) * highConfidenceFactor)
	}

	// Failed or empty responses must not linger.
	if resp.Content == "" && ttl > failedTTLCap {
		ttl = failedTTLCap
	}

	return ttl
}

// isHighConfidence reports whether a response is a complete success worth
// keeping longer.
func isHighConfidence(resp *types.LLMResponse) bool {
	return resp.Content != "" && resp.Usage.OutputTokens > 0
}
