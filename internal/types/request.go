// Package types defines the request/response model and error taxonomy
// shared by every component of the gateway core.
package types

import "strings"

// TaskType classifies what the caller wants the model to do. It feeds the
// cache TTL policy and the per-task prompt shaping upstream.
type TaskType string

const (
	TaskChat           TaskType = "chat"
	TaskPlanGeneration TaskType = "plan_generation"
	TaskOptimization   TaskType = "optimization"
	TaskSummarization  TaskType = "summarization"
	TaskExtraction     TaskType = "extraction"
)

// Priority orders requests for the caller's own queueing. The core treats it
// as opaque metadata.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// LLMRequest is a single request submitted to the gateway.
// Immutable once created; optional sampling fields use pointers to
// distinguish unset from zero.
type LLMRequest struct {
	Prompt          string   `json:"prompt"`
	TaskType        TaskType `json:"task_type"`
	Priority        Priority `json:"priority,omitempty"`
	ModelPreference string   `json:"model_preference,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"` // 0-2
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"` // 0-1

	// Context is supplementary text (trip details, prior turns). Only a
	// fixed prefix participates in cache keying.
	Context string `json:"context,omitempty"`

	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Validate checks the fields the gateway cannot proceed without.
func (r *LLMRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Message: "prompt is required"}
	}
	if r.UserID == "" {
		return &ValidationError{Message: "user_id is required"}
	}
	if r.TaskType == "" {
		return &ValidationError{Message: "task_type is required"}
	}
	return nil
}

// GetMaxTokens returns the requested completion limit, or the given default
// when the caller left it unset.
func (r *LLMRequest) GetMaxTokens(def int) int {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return def
}

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }
