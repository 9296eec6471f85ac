// Package openai adapts the OpenAI chat completions API.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/pricing"
	"github.com/tripflow/llmgate/internal/secrets"
	"github.com/tripflow/llmgate/internal/tokenizer"
	"github.com/tripflow/llmgate/internal/types"
)

const providerName = "openai"

// Client is the OpenAI adapter.
type Client struct {
	cfg        config.ProviderConfig
	store      secrets.Store
	prices     *pricing.Table
	counter    *tokenizer.Counter
	httpClient *http.Client
	sem        chan struct{} // bounds outbound concurrency

	credOnce sync.Once
	apiKey   string
	credErr  error
}

// New creates an adapter. The credential is fetched lazily on first use and
// cached for this instance's lifetime; a new instance re-fetches.
func New(cfg config.ProviderConfig, store secrets.Store, prices *pricing.Table, counter *tokenizer.Counter) *Client {
	return &Client{
		cfg:        cfg,
		store:      store,
		prices:     prices,
		counter:    counter,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		sem:        make(chan struct{}, cfg.MaxConcurrentRequests),
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return providerName }

func (c *Client) credential(ctx context.Context) (string, error) {
	c.credOnce.Do(func() {
		key, err := c.store.Get(ctx, c.cfg.SecretName)
		if err != nil {
			c.credErr = &types.AuthenticationError{Provider: providerName}
			return
		}
		c.apiKey = key
	})
	return c.apiKey, c.credErr
}

func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return &types.ServiceUnavailableError{Provider: providerName, Reason: "cancelled waiting for slot"}
	}
}

func (c *Client) release() { <-c.sem }

// apiRequest is the chat completion request format.
type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      apiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate performs a synchronous chat completion.
func (c *Client) Generate(ctx context.Context, req types.ProviderRequest) (types.ProviderResponse, error) {
	if err := c.acquire(ctx); err != nil {
		return types.ProviderResponse{}, err
	}
	defer c.release()

	httpResp, err := c.doRequest(ctx, c.buildRequest(req, false))
	if err != nil {
		return types.ProviderResponse{}, err
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return types.ProviderResponse{}, err
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return types.ProviderResponse{}, &types.ServiceUnavailableError{
			Provider: providerName, Reason: "decode response: " + err.Error(),
		}
	}
	if len(resp.Choices) == 0 {
		return types.ProviderResponse{}, &types.ServiceUnavailableError{
			Provider: providerName, Reason: "empty choices in response",
		}
	}

	content := resp.Choices[0].Message.Content
	model := resp.Model
	if model == "" {
		model = c.model(req)
	}

	usage, estimated := c.usageFor(req, content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return types.ProviderResponse{
		Content:        content,
		Model:          model,
		Usage:          usage,
		Cost:           c.prices.Cost(model, usage.InputTokens, usage.OutputTokens),
		UsageEstimated: estimated,
	}, nil
}

// GenerateStream performs a streaming completion, returning the finite
// chunk sequence once the stream closes.
func (c *Client) GenerateStream(ctx context.Context, req types.ProviderRequest) ([]string, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	httpResp, err := c.doRequest(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return nil, err
	}

	var chunks []string
	reader := bufio.NewReader(httpResp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // skip malformed chunks
		}
		for _, ch := range chunk.Choices {
			if ch.Delta.Content != "" {
				chunks = append(chunks, ch.Delta.Content)
			}
		}
	}
	return chunks, nil
}

// HealthCheck probes the models endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	key, err := c.credential(ctx)
	if err != nil {
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (c *Client) model(req types.ProviderRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.cfg.DefaultModel
}

func (c *Client) buildRequest(req types.ProviderRequest, stream bool) apiRequest {
	var msgs []apiMessage
	if req.Context != "" {
		msgs = append(msgs, apiMessage{Role: "system", Content: req.Context})
	}
	msgs = append(msgs, apiMessage{Role: "user", Content: req.Prompt})

	body := apiRequest{
		Model:       c.model(req),
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      stream,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}
	return body
}

func (c *Client) doRequest(ctx context.Context, body apiRequest) (*http.Response, error) {
	key, err := c.credential(ctx)
	if err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &types.ServiceUnavailableError{Provider: providerName, Reason: "marshal request: " + err.Error()}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &types.ServiceUnavailableError{Provider: providerName, Reason: "create request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are transient.
		return nil, &types.ServiceUnavailableError{Provider: providerName, Reason: err.Error()}
	}
	return resp, nil
}

// usageFor prefers the vendor usage payload; a missing payload falls back to
// a character-count estimate.
func (c *Client) usageFor(req types.ProviderRequest, content string, in, out int) (types.TokenUsage, bool) {
	if in > 0 || out > 0 {
		return types.TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}, false
	}
	model := c.model(req)
	in = c.counter.Count(req.Context+req.Prompt, model)
	out = c.counter.Count(content, model)
	return types.TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}, true
}

// mapHTTPError maps vendor status codes to the closed error taxonomy.
// 429 carries Retry-After when present; unexpected failures wrap into
// ServiceUnavailable with the vendor's message preserved.
func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &types.RateLimitError{
			Provider:   providerName,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &types.AuthenticationError{Provider: providerName}
	default:
		return &types.ServiceUnavailableError{
			Provider: providerName,
			Reason:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
