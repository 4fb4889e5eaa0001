package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MosinFAM/synapse/internal/config"
	"github.com/MosinFAM/synapse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var history = []models.Message{
	{Role: models.RoleUser, Content: "Hello"},
	{Role: models.RoleAssistant, Content: "Hi!"},
	{Role: models.RoleUser, Content: "What is Go?"},
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, history, req.Messages)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A language."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL+"/v1/", 0.7, time.Second)
	reply, err := client.Complete(context.Background(), "gpt-3.5-turbo", history)

	require.NoError(t, err)
	assert.Equal(t, "A language.", reply)
}

func TestOpenAIClient_APIError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"rate_limit_exceeded","message":"slow down"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL, 0.7, time.Second)
	_, err := client.Complete(context.Background(), "gpt-3.5-turbo", history)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
	assert.Equal(t, "slow down", apiErr.Message)
	// No retries.
	assert.Equal(t, 1, calls)
}

func TestOpenAIClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("sk-test", srv.URL, 0.7, time.Second).Complete(context.Background(), "m", history)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("sk-test", srv.URL, 0.7, time.Second).Complete(context.Background(), "m", history)

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	_, err := NewOpenAIClient("  ", "http://unused", 0.7, time.Second).Complete(context.Background(), "m", history)

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "local"})

	assert.Error(t, err)
}

func TestNew_GeminiWithoutKey(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderGemini})

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestToGenaiContents(t *testing.T) {
	msgs := append([]models.Message{{Role: models.RoleSystem, Content: "Be brief."}}, history...)

	contents, system := toGenaiContents(msgs)

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "What is Go?", contents[2].Parts[0].Text)
	require.NotNil(t, system)
	assert.Equal(t, "Be brief.", system.Parts[0].Text)
}
