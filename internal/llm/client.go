package llm

import (
	"context"
)

// LLMClient is the external generator boundary: one prompt in, raw text out.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
