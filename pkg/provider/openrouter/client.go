package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/observability"
	"github.com/ensembled/ensemble/pkg/provider"
)

// Client is the HTTP adapter for OpenRouter-style Chat Completions
// backends.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new Client for the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.defaults()

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openrouter: base URL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg: cfg,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "openrouter" }

// Complete generates text for a single prompt.
func (c *Client) Complete(ctx context.Context, prompt string, opts *provider.Options) (string, error) {
	messages := []api.ContextMessage{
		{Role: api.RoleUser, Content: prompt},
	}
	return c.CompleteWithContext(ctx, messages, opts)
}

// CompleteWithContext generates text for an ordered message list.
func (c *Client) CompleteWithContext(ctx context.Context, messages []api.ContextMessage, opts *provider.Options) (string, error) {
	if len(messages) == 0 {
		return "", api.NewInvalidRequestError("messages", "messages must not be empty")
	}

	chatReq := c.translate(messages, opts)

	start := time.Now()
	text, err := c.doChat(ctx, chatReq)

	status := "success"
	if err != nil {
		status = "error"
	}
	observability.ProviderRequestsTotal.WithLabelValues(c.Name(), chatReq.Model, status).Inc()
	observability.ProviderLatency.WithLabelValues(c.Name(), chatReq.Model).Observe(time.Since(start).Seconds())

	return text, err
}

// translate builds the wire request from messages and options.
func (c *Client) translate(messages []api.ContextMessage, opts *provider.Options) *chatRequest {
	req := &chatRequest{
		Model:    c.cfg.DefaultModel,
		Messages: make([]chatMessage, 0, len(messages)),
	}

	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	if opts == nil {
		return req
	}

	if opts.Model != "" {
		req.Model = opts.Model
	}
	req.Temperature = opts.Temperature
	req.TopP = opts.TopP
	req.MaxTokens = opts.MaxTokens
	req.FrequencyPenalty = opts.FrequencyPenalty
	req.PresencePenalty = opts.PresencePenalty
	req.Stop = opts.Stop
	req.IncludeReasoning = opts.IncludeReasoning

	return req
}

// doChat performs the HTTP round trip and extracts the completion text.
func (c *Client) doChat(ctx context.Context, chatReq *chatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	c.setHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", mapHTTPError(httpResp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return "", api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	if len(chatResp.Choices) == 0 {
		return "", api.NewModelError("backend returned no choices")
	}

	if chatResp.Usage != nil {
		observability.ProviderTokensTotal.WithLabelValues(c.Name(), chatReq.Model, "input").
			Add(float64(chatResp.Usage.PromptTokens))
		observability.ProviderTokensTotal.WithLabelValues(c.Name(), chatReq.Model, "output").
			Add(float64(chatResp.Usage.CompletionTokens))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// setHeaders applies auth and attribution headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
}

// ListModels returns available models from the backend.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	url := c.cfg.BaseURL + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	c.setHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var listResp modelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&listResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse models response: %s", err.Error()))
	}

	models := make([]provider.ModelInfo, 0, len(listResp.Data))
	for _, m := range listResp.Data {
		models = append(models, provider.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

// Close releases HTTP client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
