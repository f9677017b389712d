package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Config{Provider: ProviderOpenAI}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := New(ctx, Config{Provider: "llama", APIKey: "k"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}

func TestNew_DefaultModels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		provider string
		want     string
	}{
		{ProviderOpenAI, DefaultOpenAIModel},
		{ProviderAnthropic, DefaultAnthropicModel},
		{"OpenAI", DefaultOpenAIModel},
	}
	for _, tt := range tests {
		g, err := New(ctx, Config{Provider: tt.provider, APIKey: "test-key"})
		if err != nil {
			t.Fatalf("New(%s) failed: %v", tt.provider, err)
		}
		if g.Model() != tt.want {
			t.Errorf("New(%s).Model() = %s, want %s", tt.provider, g.Model(), tt.want)
		}
	}

	g, err := New(ctx, Config{Provider: ProviderAnthropic, APIKey: "k", Model: "claude-sonnet-4-5"})
	if err != nil {
		t.Fatal(err)
	}
	if g.Model() != "claude-sonnet-4-5" {
		t.Errorf("Configured model ignored, got %s", g.Model())
	}
}

func TestGenerateText_EmptyPrompt(t *testing.T) {
	c := NewOpenAIClient("k", "")
	if _, err := c.GenerateText(context.Background(), "  ", TextGenerationOptions{}); err == nil {
		t.Error("Expected error for empty prompt")
	}
}

func openAIServer(t *testing.T, choice map[string]any) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1741600000,
			"model":   "gpt-4o-mini",
			"choices": []any{choice},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	srv, captured := openAIServer(t, map[string]any{
		"index":         0,
		"finish_reason": "stop",
		"message":       map[string]any{"role": "assistant", "content": "  Rates were held steady.  "},
	})

	c := NewOpenAIClient("k", "", openaioption.WithBaseURL(srv.URL+"/"), openaioption.WithMaxRetries(0))
	got, err := c.GenerateText(context.Background(), "Summarize", TextGenerationOptions{System: "Be brief", MaxTokens: 100})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if got != "Rates were held steady." {
		t.Errorf("Unexpected text %q", got)
	}
	if (*captured)["model"] != DefaultOpenAIModel {
		t.Errorf("Expected default model in request, got %v", (*captured)["model"])
	}
	if msgs, _ := (*captured)["messages"].([]any); len(msgs) != 2 {
		t.Errorf("Expected system and user messages, got %v", (*captured)["messages"])
	}
}

func TestOpenAIClient_ContentFilter(t *testing.T) {
	srv, _ := openAIServer(t, map[string]any{
		"index":         0,
		"finish_reason": "content_filter",
		"message":       map[string]any{"role": "assistant", "content": ""},
	})

	c := NewOpenAIClient("k", "", openaioption.WithBaseURL(srv.URL+"/"), openaioption.WithMaxRetries(0))
	if _, err := c.GenerateText(context.Background(), "Summarize", TextGenerationOptions{}); !errors.Is(err, ErrContentBlocked) {
		t.Errorf("Expected ErrContentBlocked, got %v", err)
	}
}

func anthropicServer(t *testing.T, stopReason, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		content := []any{}
		if text != "" {
			content = append(content, map[string]any{"type": "text", "text": text})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       DefaultAnthropicModel,
			"content":     content,
			"stop_reason": stopReason,
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicClient_GenerateText(t *testing.T) {
	srv := anthropicServer(t, "end_turn", "Storm reached the coast overnight.")

	c := NewAnthropicClient("k", "", anthropicoption.WithBaseURL(srv.URL), anthropicoption.WithMaxRetries(0))
	got, err := c.GenerateText(context.Background(), "Summarize", TextGenerationOptions{})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if got != "Storm reached the coast overnight." {
		t.Errorf("Unexpected text %q", got)
	}
}

func TestAnthropicClient_RefusalAndEmpty(t *testing.T) {
	refusal := anthropicServer(t, "refusal", "")
	c := NewAnthropicClient("k", "", anthropicoption.WithBaseURL(refusal.URL), anthropicoption.WithMaxRetries(0))
	if _, err := c.GenerateText(context.Background(), "Summarize", TextGenerationOptions{}); !errors.Is(err, ErrContentBlocked) {
		t.Errorf("Expected ErrContentBlocked, got %v", err)
	}

	empty := anthropicServer(t, "end_turn", "")
	c = NewAnthropicClient("k", "", anthropicoption.WithBaseURL(empty.URL), anthropicoption.WithMaxRetries(0))
	if _, err := c.GenerateText(context.Background(), "Summarize", TextGenerationOptions{}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiBlocked(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want bool
	}{
		{"nil", nil, false},
		{"clean", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}}, false},
		{"safety", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, true},
		{"prompt blocked", &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geminiBlocked(tt.resp); got != tt.want {
				t.Errorf("geminiBlocked() = %v, want %v", got, tt.want)
			}
		})
	}
}
