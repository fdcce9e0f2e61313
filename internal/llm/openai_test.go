package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Once upon a time."}
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func TestOpenAIChat_Success(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

	resp, err := client.Chat(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a creative assistant for storytellers."},
			{Role: RoleUser, Content: "Tell me a story"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time.", resp.Content)
	assert.Equal(t, int64(12), resp.PromptTokens)
	assert.Equal(t, int64(5), resp.CompletionTokens)

	assert.Equal(t, DefaultModel, payload["model"])
	assert.InDelta(t, DefaultTemperature, payload["temperature"], 1e-9)
	messages, ok := payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first, _ := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
}

func TestOpenAIChat_UpstreamFailureIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: -1})
	_, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUpstream)
}

func TestOpenAIChat_EmptyChoicesIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	resp, err := client.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	m.Reply = func(r Request) string { return "echo: " + r.Messages[0].Content }

	resp, err := m.Chat(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "echo: x", resp.Content)
	assert.Equal(t, int64(1), m.RequestCount())

	m.ShouldFail = true
	_, err = m.Chat(context.Background(), Request{})
	assert.ErrorIs(t, err, domainerrors.ErrUpstream)
}
