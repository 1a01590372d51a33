package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"zanmisante/zanmisante/utils/logging"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for the Gemini API with the given key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &GeminiClient{client: gc, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, history []Message) (string, error) {
	defer logging.LogDuration(ctx, "gemini_generate")()

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemPrompt}},
		},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, convertHistory(history), config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// convertHistory maps conversation messages to genai contents. Gemini calls
// the assistant role "model".
func convertHistory(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}
