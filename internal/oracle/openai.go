package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"stockpilot/config"
)

// Default endpoints for OpenAI-compatible backends without an explicit
// base URL.
var defaultBaseURLs = map[string]string{
	"deepseek": "https://api.deepseek.com/v1",
	"ollama":   "http://localhost:11434/v1",
}

// OpenAIClient covers every OpenAI-compatible backend (openai, deepseek,
// ollama) through a single chat model.
type OpenAIClient struct {
	model *openai.ChatModel
}

func NewOpenAIClient(ctx context.Context, cfg *config.Config) (*OpenAIClient, error) {
	baseURL := cfg.OracleBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURLs[cfg.OracleProvider]
	}

	maxTokens := 1024
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   baseURL,
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.OracleModel,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}

	return &OpenAIClient{model: chatModel}, nil
}

// Complete sends the prompt as a single user message and returns the
// model's text content.
func (oc *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := oc.model.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return msg.Content, nil
}
