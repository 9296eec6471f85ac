// Package anthropic adapts the Anthropic messages API.
package anthropic

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

const (
	providerName = "anthropic"
	apiVersion   = "2023-06-01"
	// defaultMaxTokens: the messages API requires max_tokens.
	defaultMaxTokens = 1024
)

// Client is the Anthropic adapter.
type Client struct {
	cfg        config.ProviderConfig
	store      secrets.Store
	prices     *pricing.Table
	counter    *tokenizer.Counter
	httpClient *http.Client
	sem        chan struct{}

	credOnce sync.Once
	apiKey   string
	credErr  error
}

// New creates an adapter. The credential is fetched lazily on first use and
// cached for this instance's lifetime.
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

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Messages    []apiMessage `json:"messages"`
	System      string       `json:"system,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate performs a synchronous message completion.
func (c *Client) Generate(ctx context.Context, req types.ProviderRequest) (types.ProviderResponse, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return types.ProviderResponse{}, &types.ServiceUnavailableError{Provider: providerName, Reason: "cancelled waiting for slot"}
	}
	defer func() { <-c.sem }()

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

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	model := resp.Model
	if model == "" {
		model = c.model(req)
	}

	usage := types.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	estimated := false
	if usage.TotalTokens == 0 {
		usage.InputTokens = c.counter.Count(req.Context+req.Prompt, model)
		usage.OutputTokens = c.counter.Count(content.String(), model)
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		estimated = true
	}

	return types.ProviderResponse{
		Content:        content.String(),
		Model:          model,
		Usage:          usage,
		Cost:           c.prices.Cost(model, usage.InputTokens, usage.OutputTokens),
		UsageEstimated: estimated,
	}, nil
}

// GenerateStream performs a streaming completion, returning the finite
// chunk sequence once the stream closes.
func (c *Client) GenerateStream(ctx context.Context, req types.ProviderRequest) ([]string, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &types.ServiceUnavailableError{Provider: providerName, Reason: "cancelled waiting for slot"}
	}
	defer func() { <-c.sem }()

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

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		if event.Type == "message_stop" {
			break
		}
		if event.Type == "content_block_delta" && event.Delta.Text != "" {
			chunks = append(chunks, event.Delta.Text)
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
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/models", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("x-api-key", key)
	httpReq.Header.Set("anthropic-version", apiVersion)

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
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return apiRequest{
		Model:       c.model(req),
		MaxTokens:   maxTokens,
		Messages:    []apiMessage{{Role: "user", Content: req.Prompt}},
		System:      req.Context,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      stream,
	}
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

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &types.ServiceUnavailableError{Provider: providerName, Reason: "create request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", key)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.ServiceUnavailableError{Provider: providerName, Reason: err.Error()}
	}
	return resp, nil
}

func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		var retryAfter time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &types.RateLimitError{Provider: providerName, RetryAfter: retryAfter}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &types.AuthenticationError{Provider: providerName}
	default:
		return &types.ServiceUnavailableError{
			Provider: providerName,
			Reason:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}
}
