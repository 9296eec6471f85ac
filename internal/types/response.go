package types

// TokenUsage counts tokens consumed by a provider call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMResponse is the result returned to the caller.
type LLMResponse struct {
	Content       string     `json:"content"`
	ModelUsed     string     `json:"model_used"`
	Provider      string     `json:"provider"`
	Usage         TokenUsage `json:"token_usage"`
	EstimatedCost float64    `json:"estimated_cost"`

	ResponseTimeMs int64 `json:"response_time_ms"`
	Cached         bool  `json:"cached"`
	FallbackUsed   bool  `json:"fallback_used"`

	RequestID string `json:"request_id"`
}
