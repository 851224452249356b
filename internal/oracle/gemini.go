package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"stockpilot/config"
)

// GeminiClient speaks the Google Generative Language REST API.
type GeminiClient struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(cfg *config.Config) *GeminiClient {
	client := resty.New()
	client.SetBaseURL("https://generativelanguage.googleapis.com/v1beta")
	client.SetTimeout(60 * time.Second)

	return &GeminiClient{
		client: client,
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.OracleModel,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends the prompt through generateContent and returns the
// concatenated candidate text.
func (gc *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if gc.apiKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	resp, err := gc.client.R().
		SetContext(ctx).
		SetQueryParam("key", gc.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", gc.model))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("gemini API error %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed geminiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
