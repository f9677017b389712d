// Package llm provides text generation clients for the supported model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supported providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	// DefaultGeminiModel is used when no Gemini model is configured.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultOpenAIModel is used when no OpenAI model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultAnthropicModel is used when no Anthropic model is configured.
	DefaultAnthropicModel = "claude-haiku-4-5"
	// DefaultMaxTokens bounds responses when the caller does not.
	DefaultMaxTokens = 512
)

var (
	// ErrContentBlocked is returned when the provider refuses the prompt or
	// stops generation on a safety policy.
	ErrContentBlocked = errors.New("content blocked by provider policy")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMissingAPIKey is returned by New when no key is configured.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnknownProvider is returned by New for unsupported provider names.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

// TextGenerationOptions contains options for text generation
type TextGenerationOptions struct {
	MaxTokens   int32   // Maximum number of tokens to generate
	Temperature float32 // Temperature for randomness (0.0 to 1.0)
	Model       string  // Model to use (optional, defaults to client's model)
	System      string  // Optional system instruction
}

// Generator is implemented by every provider client.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts TextGenerationOptions) (string, error)
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
}

// New builds the Generator for cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func pick(override, model string) string {
	if override != "" {
		return override
	}
	return model
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	return nil
}
