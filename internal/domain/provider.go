package domain

import "context"

// Provider is the interface for text-generation backends used for free-form
// judgment and human-readable summaries. It is best-effort: callers must
// degrade to deterministic output when Complete fails.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Healthy(ctx context.Context) error
}

type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type CompletionResponse struct {
	Content   string
	Usage     Usage
	LatencyMs int64 // time taken for this call in milliseconds
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
