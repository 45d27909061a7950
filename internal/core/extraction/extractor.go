package extraction

import (
	"context"
	"fmt"

	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core/model"
	"github.com/agenthands/archgraph/internal/core/repair"
	"github.com/agenthands/archgraph/internal/llm"
)

type Extractor struct {
	LLM     llm.LLMClient
	Prompts config.ExtractionPrompts
}

// Extraction is what one chunk contributed, plus the entries dropped on the way.
type Extraction struct {
	Partial model.Partial
	Skips   []model.Skip
	Raw     string
}

func NewExtractor(llmClient llm.LLMClient, prompts config.ExtractionPrompts) *Extractor {
	return &Extractor{
		LLM:     llmClient,
		Prompts: prompts,
	}
}

// Extract asks the generator for the architecture facts in chunk.
// Generator errors are wrapped; an unrepairable response is returned as a
// *repair.Failure so callers can skip the chunk.
func (e *Extractor) Extract(ctx context.Context, chunk string) (*Extraction, error) {
	prompt := fmt.Sprintf(e.Prompts.Architecture, chunk)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate architecture: %w", err)
	}

	res, err := repair.Repair(response)
	if err != nil {
		return nil, err
	}

	partial, skips := DecodePartial(res.JSON)
	return &Extraction{
		Partial: partial,
		Skips:   skips,
		Raw:     response,
	}, nil
}
