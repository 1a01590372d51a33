package llm

import (
	"context"
	"fmt"
	"strings"

	httputils "zanmisante/zanmisante/utils/http"
	"zanmisante/zanmisante/utils/logging"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, a local Ollama, ...).
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
}

func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{baseURL: baseURL, apiKey: apiKey, model: model}
}

type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Generate(ctx context.Context, history []Message) (string, error) {
	defer logging.LogDuration(ctx, "openai_generate")()

	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: SystemPrompt})
	messages = append(messages, history...)

	req := chatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	var resp chatCompletionResponse
	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	if err := httputils.PostJSONWithAuth(ctx, url, c.apiKey, req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
