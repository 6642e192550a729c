package llm

import "context"

// GenerationParams carries optional sampling parameters for a completion.
// Nil fields fall back to backend defaults. Model overrides the client's
// default model id for a single call (used for deep-reasoning routing).
type GenerationParams struct {
	Model       *string  `json:"model"`
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// VisionClient is implemented by backends that can describe image bytes.
// The upload extraction path uses it to pull text out of images.
type VisionClient interface {
	DescribeImage(ctx context.Context, data []byte, mimeType string, instruction string) (string, error)
}
