package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/MosinFAM/synapse/internal/models"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client      *genai.Client
	temperature float32
}

// NewGeminiClient creates a Gemini client for the given API key.
func NewGeminiClient(ctx context.Context, apiKey string, temperature float64) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &GeminiClient{client: client, temperature: float32(temperature)}, nil
}

// Complete sends the full history and returns the model's reply text.
func (c *GeminiClient) Complete(ctx context.Context, model string, messages []models.Message) (string, error) {
	contents, system := toGenaiContents(messages)
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(c.temperature),
		SystemInstruction: system,
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// toGenaiContents maps chat history onto Gemini roles. System messages are
// joined into the system instruction.
func toGenaiContents(messages []models.Message) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   []*genai.Part
	)
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case models.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return contents, nil
	}
	return contents, &genai.Content{Parts: system}
}
