// Package provider defines the adapter contract implemented once per LLM
// vendor, plus the registry that builds adapters from config.
package provider

import (
	"context"

	"github.com/tripflow/llmgate/internal/types"
)

// Provider is the interface all LLM vendor adapters implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Generate performs a synchronous completion.
	Generate(ctx context.Context, req types.ProviderRequest) (types.ProviderResponse, error)

	// GenerateStream performs a completion and returns the finite sequence
	// of text chunks as they arrived.
	GenerateStream(ctx context.Context, req types.ProviderRequest) ([]string, error)

	// HealthCheck reports whether the provider looks reachable.
	HealthCheck(ctx context.Context) bool
}
