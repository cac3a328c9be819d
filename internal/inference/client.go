// Package inference talks to the local language-model server that produces
// suggestion text. Output is treated as untrusted text; parsing happens in
// the caller.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// TokenFunc receives each generated fragment in order. Returning an error
// aborts the stream with that error.
type TokenFunc func(token string) error

// Client is a text-generation backend.
type Client interface {
	// Generate returns the whole completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream calls onToken for each fragment as it arrives and returns once
	// the backend reports completion. Cancelling ctx closes the connection.
	Stream(ctx context.Context, prompt string, onToken TokenFunc) error
	// Model names the model requests are sent to.
	Model() string
}

// Backend names.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config selects and tunes a backend.
type Config struct {
	Backend       string
	BaseURL       string
	Model         string
	APIKey        string
	Temperature   float32
	RatePerSecond float64
	Burst         int
}

// StatusError is a non-2xx response from the inference server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference: server returned %d: %s", e.Code, e.Body)
}

// New builds the configured backend wrapped in a rate limiter.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var c Client
	switch cfg.Backend {
	case BackendOllama, "":
		c = NewOllama(cfg.BaseURL, cfg.Model, cfg.Temperature)
	case BackendOpenAI:
		c = NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("inference: unknown backend %q", cfg.Backend)
	}
	logger.Info("inference: client ready",
		slog.String("backend", cfg.Backend),
		slog.String("base_url", cfg.BaseURL),
		slog.String("model", c.Model()))

	if cfg.RatePerSecond <= 0 {
		return c, nil
	}
	burst := max(cfg.Burst, 1)
	return NewLimited(c, rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)), nil
}

// Limited gates every call on a token-bucket limiter. Waiting respects ctx.
type Limited struct {
	next    Client
	limiter *rate.Limiter
}

// NewLimited wraps c with limiter.
func NewLimited(c Client, limiter *rate.Limiter) *Limited {
	return &Limited{next: c, limiter: limiter}
}

func (l *Limited) Model() string { return l.next.Model() }

func (l *Limited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.wait(ctx); err != nil {
		return "", err
	}
	defer observeRequest(l.next.Model(), "generate", time.Now())
	return l.next.Generate(ctx, prompt)
}

func (l *Limited) Stream(ctx context.Context, prompt string, onToken TokenFunc) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	defer observeRequest(l.next.Model(), "stream", time.Now())
	return l.next.Stream(ctx, prompt, onToken)
}

func (l *Limited) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		rateLimited.Inc()
		return fmt.Errorf("inference: rate limit wait: %w", err)
	}
	return nil
}
