package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marker-finder/markersum/pkg/models"
)

const maxErrorBody = 512

// Ollama calls the native /api/generate endpoint.
type Ollama struct {
	endpoint string
	opts     options
}

// NewOllama returns a client posting to endpoint, e.g.
// http://localhost:11434/api/generate.
func NewOllama(endpoint string, opts ...Option) *Ollama {
	return &Ollama{endpoint: endpoint, opts: buildOptions(opts)}
}

// ollamaReply mirrors the /api/generate body; Response is a pointer so a
// missing field can be told apart from an empty one.
type ollamaReply struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
	Error    string  `json:"error"`
}

// Generate posts req and validates the reply. Transport failures come
// back as *TransportError; a 2xx reply that cannot be understood is a
// plain error.
func (o *Ollama) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.opts.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: errorBody(respBody)}
	}

	var reply ollamaReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("generation service error: %s", reply.Error)
	}
	if reply.Response == nil {
		return nil, fmt.Errorf("decode response: missing %q field", "response")
	}

	return &models.GenerationResponse{
		Model:      reply.Model,
		Response:   *reply.Response,
		Done:       reply.Done,
		StatusCode: resp.StatusCode,
	}, nil
}

func errorBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &payload) == nil && payload.Error != "" {
		s = payload.Error
	}
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
