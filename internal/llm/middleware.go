package llm

import (
	"context"
	stderrors "errors"
	"time"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/metrics"
	"site-cms/internal/common/observability"
)

// Middleware decorates a Client.
type Middleware func(Client) Client

// Wrap applies middlewares left to right: Wrap(inner, A, B) is A(B(inner)).
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Timeout --------

// WithTimeout bounds each call. d <= 0 disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (c *timed) Name() string { return c.next.Name() }
func (c *timed) Close() error { return c.next.Close() }
func (c *timed) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.Complete(ctx, req)
}

// -------- Logging --------

func WithLogging(log logger.Logger) Middleware {
	return func(next Client) Client {
		if log == nil {
			return next
		}
		return &logged{next: next, log: log}
	}
}

type logged struct {
	next Client
	log  logger.Logger
}

func (c *logged) Name() string { return c.next.Name() }
func (c *logged) Close() error { return c.next.Close() }
func (c *logged) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	fields := map[string]interface{}{
		"provider":     c.next.Name(),
		"action":       req.Action,
		"prompt_chars": len(req.Prompt),
		"max_tokens":   req.MaxTokens,
	}
	c.log.Debug("llm request", fields)

	out, err := c.next.Complete(ctx, req)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		c.log.WithError(err).Warn("llm request failed", fields)
		return "", err
	}
	fields["output_chars"] = len(out)
	c.log.Info("llm request completed", fields)
	return out, nil
}

// -------- Metrics --------

// WithMetrics records call counts and latency. obs may be nil.
func WithMetrics(obs *observability.Observability) Middleware {
	return func(next Client) Client {
		return &measured{next: next, obs: obs}
	}
}

type measured struct {
	next Client
	obs  *observability.Observability
}

func (c *measured) Name() string { return c.next.Name() }
func (c *measured) Close() error { return c.next.Close() }
func (c *measured) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := c.next.Complete(ctx, req)

	provider := c.next.Name()
	metrics.GenerationDuration.WithLabelValues(provider, req.Action).Observe(time.Since(start).Seconds())
	metrics.GenerationRequests.WithLabelValues(provider, req.Action, metrics.Outcome(err)).Inc()
	if err == nil {
		c.obs.RecordGenerationOutput(ctx, req.Action, len(out))
	}
	return out, err
}

// upstream normalizes provider failures. Errors that already carry a code
// pass through unchanged.
func upstream(provider string, err error) error {
	if err == nil {
		return nil
	}
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return err
	}
	return errors.NewUpstreamGenerationFailure(provider, err)
}
