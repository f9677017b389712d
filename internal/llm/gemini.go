package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient generates text with the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a Gemini client. An empty model selects DefaultGeminiModel.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: gClient, modelName: pick(model, DefaultGeminiModel)}, nil
}

// Model returns the default model name.
func (c *GeminiClient) Model() string {
	return c.modelName
}

// GenerateText generates text using the LLM with specified options
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, opts TextGenerationOptions) (string, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", err
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		config.Temperature = &temp
	}
	if opts.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.System}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, pick(opts.Model, c.modelName), contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("gemini: failed to generate text: %w", err)
	}

	if geminiBlocked(resp) {
		return "", ErrContentBlocked
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func geminiBlocked(resp *genai.GenerateContentResponse) bool {
	if resp == nil {
		return false
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return true
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		switch c.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return true
		}
	}
	return false
}
