package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core/model"
	"github.com/agenthands/archgraph/internal/core/repair"
)

func TestExtract(t *testing.T) {
	ctx := context.Background()
	prompts := config.ExtractionPrompts{Architecture: "extract from: %s"}

	t.Run("repairs and decodes the response", func(t *testing.T) {
		mockLLM := &MockLLMClient{
			Response: `Sure! Here is the architecture:
{"actors": [{'name': 'User', 'type': 'External'},],
 "microservices": [{"name": "Orders", "db": "OrdersDB", "exposes": ["REST"], "consumes": [], "scaling": "AutoScale", "criticality": "High"}],
 "events": [{"from": "User", "to": "Orders", "type": "REST", "description": "place order"}]`,
		}
		extractor := NewExtractor(mockLLM, prompts)

		ex, err := extractor.Extract(ctx, "Users place orders.")
		require.NoError(t, err)

		assert.Equal(t, "extract from: Users place orders.", mockLLM.Prompt)
		assert.Equal(t, []model.Actor{{Name: "User", Kind: model.ActorExternal}}, ex.Partial.Actors)
		require.Len(t, ex.Partial.Services, 1)
		assert.Equal(t, "OrdersDB", ex.Partial.Services[0].DatabaseName())
		assert.Equal(t, model.CriticalityHigh, ex.Partial.Services[0].Criticality)
		assert.Equal(t, []model.Event{{From: "User", To: "Orders", Kind: "REST", Description: "place order"}}, ex.Partial.Events)
		assert.Empty(t, ex.Skips)
		assert.Equal(t, mockLLM.Response, ex.Raw)
	})

	t.Run("unrepairable response is a repair failure", func(t *testing.T) {
		extractor := NewExtractor(&MockLLMClient{Response: "I cannot help with that."}, prompts)

		ex, err := extractor.Extract(ctx, "chunk")
		assert.Nil(t, ex)

		var failure *repair.Failure
		require.True(t, errors.As(err, &failure))
		assert.Equal(t, repair.ReasonNoStructuredBlock, failure.Reason)
	})

	t.Run("generator error is wrapped", func(t *testing.T) {
		extractor := NewExtractor(&MockLLMClient{Err: errors.New("timeout")}, prompts)

		_, err := extractor.Extract(ctx, "chunk")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to generate architecture: timeout")

		var failure *repair.Failure
		assert.False(t, errors.As(err, &failure))
	})
}
