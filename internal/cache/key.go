// Package cache deduplicates identical requests through a two-tier
// (in-memory + SQLite) response cache with TTL and eviction.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tripflow/llmgate/internal/types"
)

const (
	// keyNamespace tags cache keys so stored rows are identifiable.
	keyNamespace = "llm:"
	// keyHashLen is the hex prefix length of the digest kept in the key.
	keyHashLen = 32
	// contextPrefixLen bounds how much of the request context participates
	// in keying; long contexts hash identically past this prefix.
	contextPrefixLen = 256
)

// keyFields is the normalized subset of request fields that defines cache
// identity. Field order is fixed by the struct; absent fields are dropped by
// omitempty, so None-vs-default distinctions collapse.
type keyFields struct {
	Prompt          string   `json:"prompt"`
	ModelPreference string   `json:"model_preference,omitempty"`
	TaskType        string   `json:"task_type,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	Context         string   `json:"context,omitempty"`
}

// Key computes the deterministic cache key for a request. A pure function of
// the normalized fields: same logical request, same key.
func Key(req *types.LLMRequest) string {
	ctx := req.Context
	if len(ctx) > contextPrefixLen {
		ctx = ctx[:contextPrefixLen]
	}

	fields := keyFields{
		Prompt:          req.Prompt,
		ModelPreference: req.ModelPreference,
		TaskType:        string(req.TaskType),
		Temperature:     req.Temperature,
		MaxTokens:       req.MaxTokens,
		TopP:            req.TopP,
		Context:         ctx,
	}

	// encoding/json emits struct fields in declaration order, which makes
	// the serialization canonical.
	data, _ := json.Marshal(fields)
	sum := sha256.Sum256(data)
	return keyNamespace + hex.EncodeToString(sum[:])[:keyHashLen]
}
