package provider

import (
	"context"
	"fmt"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/pricing"
	"github.com/tripflow/llmgate/internal/provider/anthropic"
	"github.com/tripflow/llmgate/internal/provider/openai"
	"github.com/tripflow/llmgate/internal/secrets"
	"github.com/tripflow/llmgate/internal/tokenizer"
	"github.com/tripflow/llmgate/internal/types"
)

// NewRegistry builds the configured provider adapters. The map key is the
// provider identifier used in config and request routing.
func NewRegistry(cfg *config.Config, store secrets.Store, prices *pricing.Table, counter *tokenizer.Counter) (map[string]Provider, error) {
	providers := make(map[string]Provider, len(cfg.Providers))

	for name, pc := range cfg.Providers {
		var p Provider
		switch name {
		case "openai":
			p = openai.New(pc, store, prices, counter)
		case "anthropic":
			p = anthropic.New(pc, store, prices, counter)
		default:
			return nil, &types.ConfigurationError{
				Message: fmt.Sprintf("unknown provider %q", name),
			}
		}
		if pc.RateLimitRPM > 0 {
			p = WithRateLimit(p, pc.RateLimitRPM)
		}
		providers[name] = p
	}

	return providers, nil
}

// WithRateLimit wraps an adapter so outbound calls respect an RPM budget.
// A depleted bucket surfaces as a RateLimitError, which the orchestrator
// treats like any vendor 429.
func WithRateLimit(p Provider, rpm int) Provider {
	return &limited{Provider: p, limiter: NewRPMLimiter(rpm)}
}

type limited struct {
	Provider
	limiter *RPMLimiter
}

func (l *limited) Generate(ctx context.Context, req types.ProviderRequest) (types.ProviderResponse, error) {
	if !l.limiter.Allow() {
		return types.ProviderResponse{}, &types.RateLimitError{Provider: l.Name()}
	}
	return l.Provider.Generate(ctx, req)
}

func (l *limited) GenerateStream(ctx context.Context, req types.ProviderRequest) ([]string, error) {
	if !l.limiter.Allow() {
		return nil, &types.RateLimitError{Provider: l.Name()}
	}
	return l.Provider.GenerateStream(ctx, req)
}
