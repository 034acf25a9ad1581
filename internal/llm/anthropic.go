package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apphttp "site-cms/internal/common/http"
)

const (
	defaultAnthropicURL     = "https://api.anthropic.com"
	defaultAnthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Messages API with a single user turn.
type AnthropicClient struct {
	http    *apphttp.Client
	baseURL string
	apiKey  string
	version string
	model   string
}

func NewAnthropicClient(baseURL, apiKey, version, model string, timeout time.Duration) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	if version == "" {
		version = defaultAnthropicVersion
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicClient{
		http:    apphttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		version: version,
		model:   model,
	}
}

// WithHTTPClient swaps the transport, mostly for httptest servers.
func (a *AnthropicClient) WithHTTPClient(c *apphttp.Client) *AnthropicClient {
	a.http = c
	return a
}

func (a *AnthropicClient) Name() string { return "anthropic" }
func (a *AnthropicClient) Close() error { return nil }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": a.version,
	}

	resp, err := a.http.PostJSON(ctx, a.baseURL+"/v1/messages", headers, body)
	if err != nil {
		return "", upstream(a.Name(), err)
	}
	if !resp.OK() {
		var apiErr anthropicError
		msg := strings.TrimSpace(string(resp.Body))
		if json.Unmarshal(resp.Body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Type + ": " + apiErr.Error.Message
		}
		return "", upstream(a.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	var out anthropicResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", upstream(a.Name(), fmt.Errorf("decode response: %w", err))
	}

	// the reply is the first content block
	if len(out.Content) == 0 || out.Content[0].Text == "" {
		return "", upstream(a.Name(), fmt.Errorf("empty response (stop_reason=%s)", out.StopReason))
	}
	return out.Content[0].Text, nil
}
