package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripflow/llmgate/internal/types"
)

func TestKeyIsDeterministic(t *testing.T) {
	req := &types.LLMRequest{
		Prompt:          "summarize the itinerary",
		TaskType:        types.TaskSummarization,
		ModelPreference: "gpt-4o",
		Temperature:     types.Float64Ptr(0.7),
		MaxTokens:       types.IntPtr(500),
		Context:         "three day trip to Lisbon",
	}

	k1 := Key(req)
	k2 := Key(req)
	assert.Equal(t, k1, k2)

	// Identity-only fields must not participate.
	other := *req
	other.UserID = "someone-else"
	other.TenantID = "other-tenant"
	other.RequestID = "different"
	assert.Equal(t, k1, Key(&other))
}

func TestKeyFormat(t *testing.T) {
	k := Key(&types.LLMRequest{Prompt: "hello"})
	assert.True(t, strings.HasPrefix(k, "llm:"))
	assert.Len(t, k, len("llm:")+32)
}

func TestKeyChangesWithSemanticFields(t *testing.T) {
	base := types.LLMRequest{Prompt: "hello", TaskType: types.TaskChat}
	baseKey := Key(&base)

	prompt := base
	prompt.Prompt = "goodbye"
	assert.NotEqual(t, baseKey, Key(&prompt))

	model := base
	model.ModelPreference = "gpt-4o"
	assert.NotEqual(t, baseKey, Key(&model))

	temp := base
	temp.Temperature = types.Float64Ptr(0.2)
	assert.NotEqual(t, baseKey, Key(&temp))

	task := base
	task.TaskType = types.TaskExtraction
	assert.NotEqual(t, baseKey, Key(&task))
}

func TestKeyAbsentFieldsCollapse(t *testing.T) {
	// A request with no optional fields keys the same as one where they are
	// merely unset pointers.
	a := &types.LLMRequest{Prompt: "hello"}
	b := &types.LLMRequest{Prompt: "hello", Temperature: nil, MaxTokens: nil}
	assert.Equal(t, Key(a), Key(b))
}

func TestKeyContextTruncation(t *testing.T) {
	long := strings.Repeat("x", 300)

	a := &types.LLMRequest{Prompt: "hello", Context: long}
	b := &types.LLMRequest{Prompt: "hello", Context: long + "tail beyond the prefix"}
	assert.Equal(t, Key(a), Key(b), "contexts identical through the prefix key identically")

	c := &types.LLMRequest{Prompt: "hello", Context: "y" + long[1:]}
	assert.NotEqual(t, Key(a), Key(c), "difference inside the prefix changes the key")
}
