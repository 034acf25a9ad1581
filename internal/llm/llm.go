// Package llm wraps the text-generation providers behind a single Client.
// Providers return raw reply text; parsing belongs to the generation package.
package llm

import (
	"context"
	"fmt"
	"time"

	"site-cms/internal/common/config"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/observability"
)

// Request is one model round trip.
type Request struct {
	Action    string
	System    string
	Prompt    string
	MaxTokens int
}

type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}

// New builds the configured provider and wraps it with logging, metrics and
// a per-call timeout.
func New(ctx context.Context, cfg config.LLMConfig, log logger.Logger, obs *observability.Observability) (Client, error) {
	var (
		inner Client
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		inner = NewAnthropicClient(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey, cfg.Anthropic.Version, cfg.Model, time.Duration(cfg.Timeout)*time.Millisecond)
	case "gemini":
		inner, err = NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Model, "")
	case "fake":
		inner = NewFakeClient()
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Wrap(inner,
		WithLogging(log),
		WithMetrics(obs),
		WithTimeout(time.Duration(cfg.Timeout)*time.Millisecond),
	), nil
}
