// Package provider abstracts the external model services: text embedding
// and generative completion. Implementations must be safe for concurrent
// use; every call takes a context and honors its deadline.
package provider

import "context"

// Embedder turns text into a fixed-length vector. The dimension is fixed
// per model; callers validate it before similarity math.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerateRequest carries one prompt with bounded sampling settings.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
