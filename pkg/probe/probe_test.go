package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marker-finder/markersum/pkg/generation"
	"github.com/marker-finder/markersum/pkg/models"
)

func TestCheckReachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.GenerationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, Prompt, req.Prompt)
		assert.Equal(t, "deepseek-r1:latest", req.Model)
		_, _ = w.Write([]byte(`{"response":"Hello","done":true}`))
	}))
	defer upstream.Close()

	p := New(generation.NewOllama(upstream.URL), "deepseek-r1:latest", 10*time.Second)
	assert.True(t, p.Check(context.Background()))
}

func TestCheckFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"unparseable body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("hello"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(tt.handler)
			defer upstream.Close()

			p := New(generation.NewOllama(upstream.URL), "m", 10*time.Second)
			assert.False(t, p.Check(context.Background()))
		})
	}
}

func TestCheckUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	assert.False(t, New(generation.NewOllama(url), "m", time.Second).Check(context.Background()))
}

func TestCheckTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	start := time.Now()
	assert.False(t, New(generation.NewOllama(upstream.URL), "m", 50*time.Millisecond).Check(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}
