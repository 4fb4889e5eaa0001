// Package llm talks to hosted chat-completion APIs. Every call is a single
// request/response round trip with no streaming and no retries.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/MosinFAM/synapse/internal/config"
	"github.com/MosinFAM/synapse/internal/models"
)

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("llm API key not configured")

	// ErrEmptyResponse indicates the provider returned no completion.
	ErrEmptyResponse = errors.New("llm returned no choices")
)

// Client produces the assistant's next message for a conversation.
type Client interface {
	Complete(ctx context.Context, model string, messages []models.Message) (string, error)
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("llm API error [%s] (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("llm API error (status %d): %s", e.Status, e.Message)
}

// New builds the client for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Temperature, cfg.Timeout()), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
