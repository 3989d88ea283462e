// Package genai provides GenAI-enhanced operations using the OpenAI API.
//
// The client applies a bounded per-call timeout and relies on SDK-level
// exponential backoff for rate limits. Callers are expected to substitute
// deterministic fallback text when ErrUpstreamUnavailable is returned; the
// conversation must never block on the network.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrUpstreamUnavailable indicates the LLM relay failed or timed out after
// retries. It is recoverable: callers substitute template text and proceed.
var ErrUpstreamUnavailable = errors.New("llm upstream unavailable")

// Default generation configuration.
const (
	DefaultModel               = openai.ChatModelGPT4oMini
	DefaultTemperature         = 0.7
	DefaultTopP                = 0.95
	DefaultMaxCompletionTokens = 1024
	DefaultTimeout             = 30 * time.Second
	DefaultMaxRetries          = 2
)

// chatService defines the minimal interface for chat completions, satisfied
// by the OpenAI SDK and by test mocks.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ClientInterface defines the generation operations the flow engine depends on.
type ClientInterface interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey              string
	Model               string
	Temperature         float64
	TopP                float64
	MaxCompletionTokens int64
	Timeout             time.Duration
	MaxRetries          int
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option { return func(o *Opts) { o.APIKey = key } }

// WithModel sets the chat model.
func WithModel(model string) Option { return func(o *Opts) { o.Model = model } }

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option { return func(o *Opts) { o.Temperature = t } }

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option { return func(o *Opts) { o.Timeout = d } }

// WithMaxCompletionTokens bounds the completion length.
func WithMaxCompletionTokens(n int64) Option { return func(o *Opts) { o.MaxCompletionTokens = n } }

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	topP                float64
	maxCompletionTokens int64
	timeout             time.Duration
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided as an option.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		TopP:                DefaultTopP,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
		Timeout:             DefaultTimeout,
		MaxRetries:          DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	)
	slog.Debug("genai.NewClient: client created", "model", cfg.Model, "timeout", cfg.Timeout)
	return &Client{
		chat:                &cli.Chat.Completions,
		model:               cfg.Model,
		temperature:         cfg.Temperature,
		topP:                cfg.TopP,
		maxCompletionTokens: cfg.MaxCompletionTokens,
		timeout:             cfg.Timeout,
	}, nil
}

// Generate generates a response for a single system/user prompt pair.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	})
}

// GenerateWithMessages generates a response from a full message sequence.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		Temperature:         openai.Float(c.temperature),
		TopP:                openai.Float(c.topP),
		MaxCompletionTokens: openai.Int(c.maxCompletionTokens),
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			// Rate limited even after SDK backoff; surface as unavailable so
			// the caller engages its template fallback.
			slog.Warn("genai.GenerateWithMessages: rate limited after retries", "error", err)
			return "", fmt.Errorf("%w: rate limited: %v", ErrUpstreamUnavailable, err)
		}
		slog.Error("genai.GenerateWithMessages: generation failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.GenerateWithMessages: no choices returned")
		return "", fmt.Errorf("%w: no choices returned", ErrUpstreamUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
