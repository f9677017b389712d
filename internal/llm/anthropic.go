package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient generates text with the Anthropic messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	modelName string
}

// NewAnthropicClient creates an Anthropic client. An empty model selects DefaultAnthropicModel.
func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) *AnthropicClient {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicClient{client: &client, modelName: pick(model, DefaultAnthropicModel)}
}

// Model returns the default model name.
func (c *AnthropicClient) Model() string {
	return c.modelName
}

// GenerateText implements Generator.
func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string, opts TextGenerationOptions) (string, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", err
	}

	maxTokens := int64(DefaultMaxTokens)
	if opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(pick(opts.Model, c.modelName)),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(opts.Temperature))
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	if string(resp.StopReason) == "refusal" {
		return "", ErrContentBlocked
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
