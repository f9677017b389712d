package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient generates text with the OpenAI chat completions API.
type OpenAIClient struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIClient creates an OpenAI client. An empty model selects DefaultOpenAIModel.
func NewOpenAIClient(apiKey, model string, opts ...option.RequestOption) *OpenAIClient {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClient{client: &client, modelName: pick(model, DefaultOpenAIModel)}
}

// Model returns the default model name.
func (c *OpenAIClient) Model() string {
	return c.modelName
}

// GenerateText implements Generator.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string, opts TextGenerationOptions) (string, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", err
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if opts.System != "" {
		messages = append(messages, openai.SystemMessage(opts.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(pick(opts.Model, c.modelName)),
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(opts.Temperature))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" || choice.Message.Refusal != "" {
		return "", ErrContentBlocked
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
