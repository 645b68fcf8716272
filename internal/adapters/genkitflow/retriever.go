package genkitflow

import (
	"context"

	"github.com/firebase/genkit/go/core"
	"github.com/halcyonworks/agentroute"
)

// RetrieverInput is the expected input structure for the retrieval flow.
type RetrieverInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// RetrieverAdapter uses a Genkit Flow to implement the Retriever interface.
type RetrieverAdapter struct {
	searchFlow *core.Flow[*RetrieverInput, []agentroute.ContextChunk, struct{}]
}

// NewRetrieverAdapter creates a new adapter for the retrieval flow.
func NewRetrieverAdapter(flow *core.Flow[*RetrieverInput, []agentroute.ContextChunk, struct{}]) *RetrieverAdapter {
	return &RetrieverAdapter{searchFlow: flow}
}

// Search implements the agentroute.Retriever interface. A nil flow yields an
// empty result rather than an error; retrieval is optional by contract.
func (a *RetrieverAdapter) Search(ctx context.Context, query string, k int) ([]agentroute.ContextChunk, error) {
	if a.searchFlow == nil {
		return nil, nil
	}

	input := RetrieverInput{Query: query, TopK: k}

	chunks, err := a.searchFlow.Run(ctx, &input)
	if err != nil {
		return nil, agentroute.NewRetrievalError("retrieval flow execution failed", err)
	}

	return chunks, nil
}
