// Package genkitflow adapts Genkit flows to the backend collaborator
// interfaces, letting deployments swap the local Ollama adapters for
// flow-managed models without touching the engine.
package genkitflow

import (
	"context"

	"github.com/firebase/genkit/go/core"
	"github.com/halcyonworks/agentroute"
)

// GeneratorInput is the expected input structure for the generation flow.
type GeneratorInput struct {
	Query   string                    `json:"query"`
	Chunks  []agentroute.ContextChunk `json:"chunks,omitempty"`
	History []agentroute.HistoryTurn  `json:"history,omitempty"`
}

// GeneratorAdapter uses a Genkit Flow to implement the Generator interface.
type GeneratorAdapter struct {
	generateFlow *core.Flow[*GeneratorInput, string, struct{}]
}

// NewGeneratorAdapter creates a new adapter for the generation flow.
func NewGeneratorAdapter(flow *core.Flow[*GeneratorInput, string, struct{}]) *GeneratorAdapter {
	return &GeneratorAdapter{generateFlow: flow}
}

// Generate implements the agentroute.Generator interface.
func (a *GeneratorAdapter) Generate(ctx context.Context, query string, chunks []agentroute.ContextChunk, history []agentroute.HistoryTurn) (string, error) {
	if a.generateFlow == nil {
		return "", agentroute.NewConfigurationError("generation flow is not configured", nil)
	}

	input := GeneratorInput{
		Query:   query,
		Chunks:  chunks,
		History: history,
	}

	answer, err := a.generateFlow.Run(ctx, &input)
	if err != nil {
		return "", agentroute.NewGenerationError("generation flow execution failed", err)
	}

	return answer, nil
}

// GenerateDirect implements the agentroute.Generator interface.
func (a *GeneratorAdapter) GenerateDirect(ctx context.Context, prompt string) (string, error) {
	return a.Generate(ctx, prompt, nil, nil)
}
