package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marker-finder/markersum/pkg/models"
)

func TestOpenAIGenerate(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3.2", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "Summarize this.", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3.2",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "A short summary."}, "finish_reason": "stop"}]
		}`))
	}))
	defer upstream.Close()

	c := NewOpenAI(upstream.URL+"/v1/", "")
	resp, err := c.Generate(context.Background(), models.GenerationRequest{Model: "llama3.2", Prompt: "Summarize this."})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", resp.Response)
	assert.Equal(t, "llama3.2", resp.Model)
}

func TestOpenAIServerErrorIsTransportError(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model is loading","type":"server_error"}}`))
	}))
	defer upstream.Close()

	_, err := NewOpenAI(upstream.URL+"/v1/", "sk-local").Generate(context.Background(), models.GenerationRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, 1, calls, "SDK retries must be disabled")
}

func TestOpenAINoChoices(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer upstream.Close()

	_, err := NewOpenAI(upstream.URL+"/v1/", "").Generate(context.Background(), models.GenerationRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.False(t, IsTransport(err))
}
