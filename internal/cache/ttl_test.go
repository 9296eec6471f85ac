package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tripflow/llmgate/internal/types"
)

func successResponse() *types.LLMResponse {
	return &types.LLMResponse{
		Content: "here is your plan",
		Usage:   types.TokenUsage{InputTokens: 10, OutputTokens: 50, TotalTokens: 60},
	}
}

func TestComputeTTLHighConfidenceDoubles(t *testing.T) {
	req := &types.LLMRequest{Prompt: "p", TaskType: types.TaskChat}
	ttl := computeTTL(req, successResponse(), time.Hour)
	assert.Equal(t, 2*time.Hour, ttl)
}

func TestComputeTTLTaskFactors(t *testing.T) {
	base := time.Hour

	plan := computeTTL(&types.LLMRequest{TaskType: types.TaskPlanGeneration}, successResponse(), base)
	assert.Equal(t, 3*time.Hour, plan, "1.5 task factor times 2.0 confidence")

	opt := computeTTL(&types.LLMRequest{TaskType: types.TaskOptimization}, successResponse(), base)
	assert.Equal(t, time.Hour, opt, "0.5 task factor times 2.0 confidence")

	chat := computeTTL(&types.LLMRequest{TaskType: types.TaskChat}, successResponse(), base)
	assert.Equal(t, 2*time.Hour, chat, "unlisted task keeps the base")
}

func TestComputeTTLFailedResponseCapped(t *testing.T) {
	req := &types.LLMRequest{TaskType: types.TaskPlanGeneration}
	failed := &types.LLMResponse{Content: ""}

	ttl := computeTTL(req, failed, time.Hour)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestComputeTTLFailedNeverOutlivesSuccess(t *testing.T) {
	for _, task := range []types.TaskType{
		types.TaskChat, types.TaskPlanGeneration, types.TaskOptimization,
		types.TaskSummarization, types.TaskExtraction,
	} {
		req := &types.LLMRequest{TaskType: task}
		failed := computeTTL(req, &types.LLMResponse{}, time.Hour)
		ok := computeTTL(req, successResponse(), time.Hour)
		assert.LessOrEqual(t, failed, ok, "task %s", task)
	}
}

func TestIsHighConfidence(t *testing.T) {
	assert.True(t, isHighConfidence(successResponse()))
	assert.False(t, isHighConfidence(&types.LLMResponse{Content: "text"}), "no output tokens")
	assert.False(t, isHighConfidence(&types.LLMResponse{Usage: types.TokenUsage{OutputTokens: 5}}), "no content")
}
