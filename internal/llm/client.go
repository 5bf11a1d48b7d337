// Package llm dispatches generation requests to the Gemini models behind
// the service, gating them through a shared rate limiter.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	lldomain "github.com/lexlapax/go-llms/pkg/llm/domain"
	"github.com/lexlapax/go-llms/pkg/llm/provider"
	"golang.org/x/time/rate"
)

// ProviderFactory builds a provider for a resolved API key and model.
// The default factory returns Gemini providers; tests inject fakes.
type ProviderFactory func(apiKey, model string) lldomain.Provider

// GeminiFactory is the production ProviderFactory.
func GeminiFactory(apiKey, model string) lldomain.Provider {
	return provider.NewGeminiProvider(apiKey, model)
}

// Models selects which model serves each kind of request.
type Models struct {
	// Notes also covers chat, mind maps and synthesis passes.
	Notes string

	// Quiz generation runs on the cheaper model.
	Quiz string
}

// DefaultModels returns the stock model split.
func DefaultModels() Models {
	return Models{
		Notes: "gemini-2.5-pro",
		Quiz:  "gemini-2.5-flash",
	}
}

// Client produces completions for the notes service. It is safe for
// concurrent use.
type Client struct {
	factory ProviderFactory
	models  Models
	limiter *rate.Limiter
	timeout time.Duration
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	// Factory for providers - defaults to GeminiFactory
	Factory ProviderFactory

	// Models per request kind - defaults to DefaultModels()
	Models Models

	// RequestsPerMinute across all callers - defaults to 30
	RequestsPerMinute int

	// Timeout per generation call - defaults to 5m (media chunks are slow)
	Timeout time.Duration
}

// NewClient creates an LLM client.
func NewClient(config ClientConfig) *Client {
	if config.Factory == nil {
		config.Factory = GeminiFactory
	}
	if config.Models.Notes == "" || config.Models.Quiz == "" {
		config.Models = DefaultModels()
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 30
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	return &Client{
		factory: config.Factory,
		models:  config.Models,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		timeout: config.Timeout,
	}
}

// Models returns the configured model split.
func (c *Client) Models() Models {
	return c.models
}

// Complete sends messages to the notes model and returns the text reply.
func (c *Client) Complete(ctx context.Context, apiKey string, messages []lldomain.Message) (string, error) {
	return c.complete(ctx, apiKey, c.models.Notes, messages)
}

// CompleteQuiz sends messages to the quiz model.
func (c *Client) CompleteQuiz(ctx context.Context, apiKey string, messages []lldomain.Message) (string, error) {
	return c.complete(ctx, apiKey, c.models.Quiz, messages)
}

func (c *Client) complete(ctx context.Context, apiKey, model string, messages []lldomain.Message) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p := c.factory(apiKey, model)
	resp, err := p.GenerateMessage(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("model returned an empty response")
	}

	return text, nil
}
