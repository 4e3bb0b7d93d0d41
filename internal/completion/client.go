package completion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"learnsphere/internal/core"

	"github.com/bytedance/sonic"
)

// Config captures everything the client needs to reach the completion API.
type Config struct {
	APIKey  string
	BaseURL string
	// Models is the ordered candidate list; the first entry is preferred.
	Models  []string
	Referer string
	Title   string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries per model beyond the first
	// attempt. Zero selects the default; negative disables retries.
	MaxRetries int
	// BaseDelay is the first backoff, doubled on every retry. Zero selects
	// the default; negative retries without waiting.
	BaseDelay time.Duration
}

// Client is the resilient completion client. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	cfg        Config
	policy     RetryPolicy
	httpClient *http.Client
	logger     core.Logger
	metrics    core.MetricsCollector
	sleeper    func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the attempt metrics collector.
func WithMetrics(metrics core.MetricsCollector) Option {
	return func(c *Client) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client from cfg, filling defaults for zero values.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = core.OpenRouterChatEndpoint
	}
	if len(cfg.Models) == 0 {
		cfg.Models = slices.Clone(core.DefaultModels)
	} else {
		cfg.Models = slices.Clone(cfg.Models)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = core.DefaultCompletionTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = core.DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	switch {
	case cfg.BaseDelay == 0:
		cfg.BaseDelay = core.DefaultBaseDelay
	case cfg.BaseDelay < 0:
		cfg.BaseDelay = 0
	}
	if cfg.Referer == "" {
		cfg.Referer = core.DefaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = core.DefaultTitle
	}

	client := &Client{
		cfg:        cfg,
		policy:     RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay},
		httpClient: &http.Client{},
		logger:     &core.NopLogger{},
		metrics:    &core.NopMetrics{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Models returns a copy of the candidate list in priority order.
func (c *Client) Models() []string {
	return slices.Clone(c.cfg.Models)
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Complete obtains generated text for prompt, walking the candidate models.
func (c *Client) Complete(ctx context.Context, prompt string) (*core.Completion, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if c.cfg.APIKey == "" {
		return nil, &ConfigurationError{Reason: "OPENROUTER_API_KEY not configured. Add it to your .env file"}
	}

	var failures []error
	attempts := 0

	for _, model := range c.cfg.Models {
		c.logger.Info("Attempting with model: %s", model)

		step := Step{State: StateTryModel}
		for !step.State.Terminal() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if step.Attempt == 0 {
				c.logger.Debug("Calling OpenRouter API (model %s)", model)
			} else {
				c.logger.Info("Retry attempt %d for %s", step.Attempt, model)
			}

			start := time.Now()
			outcome := c.attempt(ctx, model, prompt)
			attempts++
			c.metrics.RecordUpstreamAttempt(model, outcome.Kind.String(), time.Since(start))

			next := c.policy.Next(step.Attempt, outcome)
			switch next.State {
			case StateSucceeded:
				c.logger.Info("Success with %s after %d attempt(s)", model, attempts)
				return &core.Completion{Text: outcome.Text, Model: model, Attempts: attempts}, nil
			case StateFatallyFailed:
				c.logger.Error("Aborting completion on %s: %v", model, outcome.Err)
				return nil, outcome.Err
			case StateRetrying:
				c.logger.Warn("%v. Waiting %s before retry...", outcome.Err, next.Delay)
				c.metrics.RecordBackoff(model, next.Delay)
				if err := c.sleep(ctx, next.Delay); err != nil {
					return nil, err
				}
			case StateAbandoned:
				c.logger.Warn("Abandoning %s after %d attempt(s): %v. Trying next fallback...", model, step.Attempt+1, outcome.Err)
				failures = append(failures, outcome.Err)
			}
			step = next
		}
	}

	return nil, &ExhaustedError{Models: slices.Clone(c.cfg.Models), Failures: failures}
}

func (c *Client) attempt(ctx context.Context, model, prompt string) Outcome {
	payload, err := sonic.Marshal(core.ChatCompletionRequest{
		Model:       model,
		Messages:    []core.ChatMessage{{Role: core.RoleUser, Content: prompt}},
		Temperature: core.DefaultTemperature,
		MaxTokens:   core.DefaultMaxTokens,
	})
	if err != nil {
		return Fatal(fmt.Errorf("encode completion request: %w", err))
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return Fatal(&ConfigurationError{Reason: fmt.Sprintf("invalid completion endpoint %q: %v", c.cfg.BaseURL, err)})
	}
	req.Header.Set(core.HeaderAuthorization, core.AuthBearerPrefix+c.cfg.APIKey)
	req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	req.Header.Set(core.HeaderReferer, c.cfg.Referer)
	req.Header.Set(core.HeaderTitle, c.cfg.Title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fatal(ctxErr)
		}
		return classifyTransportError(model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, core.MaxResponseBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fatal(ctxErr)
		}
		return classifyTransportError(model, err)
	}

	return classifyResponse(model, resp.StatusCode, body)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
