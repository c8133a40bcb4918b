package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/marker-finder/markersum/pkg/models"
)

// OpenAI calls an OpenAI-compatible chat completions API, such as the one
// Ollama serves under /v1. The SDK's own retries are disabled; callers
// retry through pkg/retry.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI returns a client for the API rooted at baseURL.
func NewOpenAI(baseURL, apiKey string, opts ...Option) *OpenAI {
	o := buildOptions(opts)
	if apiKey == "" {
		// local servers ignore the key but the SDK insists on one
		apiKey = "ollama"
	}
	return &OpenAI{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
			option.WithHTTPClient(o.httpClient),
		),
	}
}

// Generate sends req.Prompt as a single user message.
func (c *OpenAI) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &TransportError{StatusCode: apiErr.StatusCode, Body: apiErr.Message, Err: err}
		}
		return nil, &TransportError{Err: err}
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("decode response: no completion choices returned")
	}

	return &models.GenerationResponse{
		Model:      completion.Model,
		Response:   completion.Choices[0].Message.Content,
		Done:       completion.Choices[0].FinishReason != "",
		StatusCode: 200,
	}, nil
}
