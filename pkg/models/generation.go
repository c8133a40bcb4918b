package models

// GenerationRequest is the body sent to the generation service.
type GenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerationResponse is the validated reply of the generation service.
type GenerationResponse struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	StatusCode int    `json:"-"`
}
