package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	valid := LLMRequest{Prompt: "hello", UserID: "alice", TaskType: TaskChat}
	require.NoError(t, valid.Validate())

	cases := map[string]LLMRequest{
		"missing prompt":     {UserID: "alice", TaskType: TaskChat},
		"whitespace prompt":  {Prompt: "   ", UserID: "alice", TaskType: TaskChat},
		"missing user_id":    {Prompt: "hello", TaskType: TaskChat},
		"missing task_type":  {Prompt: "hello", UserID: "alice"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			err := req.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestGetMaxTokens(t *testing.T) {
	unset := LLMRequest{}
	assert.Equal(t, 1024, unset.GetMaxTokens(1024))

	set := LLMRequest{MaxTokens: IntPtr(42)}
	assert.Equal(t, 42, set.GetMaxTokens(1024))
}

func TestErrorClassification(t *testing.T) {
	retryable := []error{
		&RateLimitError{Provider: "openai"},
		&RateLimitError{Provider: "openai", RetryAfter: 30 * time.Second},
		&ServiceUnavailableError{Provider: "openai", Reason: "status 503"},
	}
	for _, err := range retryable {
		assert.True(t, IsRetryable(err), "%T", err)
		assert.False(t, IsFatal(err), "%T", err)
	}

	fatal := []error{
		&AuthenticationError{Provider: "openai"},
		&ValidationError{Message: "prompt is required"},
		&ConfigurationError{Message: "no providers"},
		&BudgetExceededError{Scope: "user:alice", CurrentUsage: 1, Limit: 1},
	}
	for _, err := range fatal {
		assert.True(t, IsFatal(err), "%T", err)
		assert.False(t, IsRetryable(err), "%T", err)
	}

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsFatal(nil))
}

func TestErrorMessages(t *testing.T) {
	budgetErr := &BudgetExceededError{Scope: "user:alice", CurrentUsage: 0.8, Limit: 1}
	assert.Contains(t, budgetErr.Error(), "user:alice")

	rl := &RateLimitError{Provider: "openai", RetryAfter: 30 * time.Second}
	assert.Contains(t, rl.Error(), "retry after")
}
