// Package gateway is the composition root of the admission and caching
// layer: it sequences cost estimation, budget enforcement, cache lookup,
// provider dispatch with failover, and usage/metrics recording.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripflow/llmgate/internal/analytics"
	"github.com/tripflow/llmgate/internal/budget"
	"github.com/tripflow/llmgate/internal/cache"
	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/pricing"
	"github.com/tripflow/llmgate/internal/provider"
	"github.com/tripflow/llmgate/internal/tokenizer"
	"github.com/tripflow/llmgate/internal/types"
)

// Gateway routes LLM requests through admission control, cache and
// providers. Construct once at process start and share.
type Gateway struct {
	cfg       *config.Config
	providers map[string]provider.Provider
	order     []string // provider priority order from config
	budget    *budget.Manager
	cache     *cache.Manager
	analytics *analytics.Collector
	prices    *pricing.Table
	counter   *tokenizer.Counter
	logger    *slog.Logger
}

// New wires a Gateway from its collaborators.
func New(cfg *config.Config, providers map[string]provider.Provider, budgetMgr *budget.Manager,
	cacheMgr *cache.Manager, collector *analytics.Collector, prices *pricing.Table,
	counter *tokenizer.Counter, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:       cfg,
		providers: providers,
		order:     cfg.ProviderOrder(),
		budget:    budgetMgr,
		cache:     cacheMgr,
		analytics: collector,
		prices:    prices,
		counter:   counter,
		logger:    logger,
	}
}

// Submit runs one request through the full pipeline. Budget enforcement
// always precedes cache lookup, and cache lookup always precedes dispatch:
// that order is the admission-control gate.
func (g *Gateway) Submit(ctx context.Context, req *types.LLMRequest) (*types.LLMResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	estimatedCost := g.estimateCost(req)
	if err := g.budget.Enforce(req.UserID, req.TenantID, estimatedCost, req.ModelPreference); err != nil {
		g.logger.Info("request rejected by budget",
			"request_id", req.RequestID, "user", req.UserID, "error", err)
		return nil, err
	}

	start := time.Now()
	if resp := g.cache.Get(req); resp != nil {
		// No new cost was incurred, so no usage is recorded.
		resp.RequestID = req.RequestID
		resp.ResponseTimeMs = time.Since(start).Milliseconds()
		g.analytics.RecordCacheHit(req, resp)
		return resp, nil
	}

	return g.dispatch(ctx, req, start)
}

// dispatch tries providers in order, retrying only transient failures up to
// the configured attempt bound.
func (g *Gateway) dispatch(ctx context.Context, req *types.LLMRequest, start time.Time) (*types.LLMResponse, error) {
	order := g.providerOrder(req)

	var lastErr error
	lastProvider := ""
	attempts := 0

	for i, name := range order {
		if attempts >= g.cfg.Gateway.MaxAttempts {
			break
		}
		attempts++
		lastProvider = name

		p := g.providers[name]
		preq := g.providerRequest(req, name)

		presp, err := p.Generate(ctx, preq)
		if err != nil {
			if types.IsRetryable(err) {
				g.logger.Warn("provider failed, trying next",
					"request_id", req.RequestID, "provider", name, "attempt", attempts, "error", err)
				lastErr = err
				continue
			}
			// Configuration bugs and invalid requests surface immediately.
			g.analytics.RecordError(req, name, errorKind(err))
			return nil, err
		}

		resp := &types.LLMResponse{
			Content:        presp.Content,
			ModelUsed:      presp.Model,
			Provider:       name,
			Usage:          presp.Usage,
			EstimatedCost:  presp.Cost,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			FallbackUsed:   i > 0,
			RequestID:      req.RequestID,
		}

		// Recording and caching are observability: they never undo a
		// completed provider call.
		g.budget.RecordUsage(req.UserID, req.TenantID, presp.Model, presp.Cost, req.RequestID)
		g.cache.Set(req, resp, 0)
		g.analytics.RecordRequest(req, resp)

		return resp, nil
	}

	g.analytics.RecordError(req, lastProvider, errorKind(lastErr))
	if lastErr == nil {
		return nil, &types.ConfigurationError{Message: "no providers configured"}
	}
	return nil, &types.ServiceUnavailableError{
		Provider: lastProvider,
		Reason:   "all providers exhausted: " + lastErr.Error(),
	}
}

// HealthCheck probes every provider.
func (g *Gateway) HealthCheck(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(g.providers))
	for name, p := range g.providers {
		out[name] = p.HealthCheck(ctx)
	}
	return out
}

// estimateCost computes the rough pre-dispatch cost from prompt length and
// the requested completion budget.
func (g *Gateway) estimateCost(req *types.LLMRequest) float64 {
	model := req.ModelPreference
	inputTokens := g.counter.Count(req.Context+req.Prompt, model)
	maxTokens := req.GetMaxTokens(g.cfg.Gateway.DefaultMaxTokens)

	if model != "" {
		return g.prices.Cost(model, inputTokens, maxTokens)
	}
	return float64(inputTokens+maxTokens) / 1000 * g.cfg.Gateway.EstimatedCostPer1KIn
}

// providerOrder puts the provider matching the request's model preference
// first, then the configured priority order.
func (g *Gateway) providerOrder(req *types.LLMRequest) []string {
	preferred := preferredProvider(req.ModelPreference)

	order := make([]string, 0, len(g.order))
	if preferred != "" {
		if _, ok := g.providers[preferred]; ok {
			order = append(order, preferred)
		}
	}
	for _, name := range g.order {
		if name != preferred {
			order = append(order, name)
		}
	}
	return order
}

// providerRequest narrows the request for one adapter. The model preference
// only carries over to the provider that serves that model family.
func (g *Gateway) providerRequest(req *types.LLMRequest, providerName string) types.ProviderRequest {
	model := ""
	if preferredProvider(req.ModelPreference) == providerName {
		model = req.ModelPreference
	}
	return types.ProviderRequest{
		Model:       model,
		Prompt:      req.Prompt,
		Context:     req.Context,
		Temperature: req.Temperature,
		MaxTokens:   req.GetMaxTokens(0),
		TopP:        req.TopP,
	}
}

// modelFamilies maps model-name prefixes to the provider that serves them.
var modelFamilies = map[string]string{
	"gpt":     "openai",
	"o1":      "openai",
	"o3":      "openai",
	"chatgpt": "openai",
	"claude":  "anthropic",
}

func preferredProvider(model string) string {
	for prefix, name := range modelFamilies {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return name
		}
	}
	return ""
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	switch err.(type) {
	case *types.BudgetExceededError:
		return "budget_exceeded"
	case *types.AuthenticationError:
		return "authentication"
	case *types.RateLimitError:
		return "rate_limit"
	case *types.ServiceUnavailableError:
		return "service_unavailable"
	case *types.ValidationError:
		return "validation"
	case *types.ConfigurationError:
		return "configuration"
	case nil:
		return "none"
	default:
		return "unknown"
	}
}
