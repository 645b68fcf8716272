package agentroute

import "context"

// Retriever fetches ranked passages relevant to a query. Implementations must
// return an empty slice, not an error, when nothing scores above their
// relevance floor.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]ContextChunk, error)
}

// Generator produces text from a language model backend.
type Generator interface {
	// Generate answers the query grounded on retrieved context and the most
	// recent history turns.
	Generate(ctx context.Context, query string, chunks []ContextChunk, history []HistoryTurn) (string, error)

	// GenerateDirect answers a bare prompt with no retrieved context.
	GenerateDirect(ctx context.Context, prompt string) (string, error)
}

// Vision produces a caption and descriptive tags for raw image bytes.
type Vision interface {
	Describe(ctx context.Context, image []byte) (ImageDescription, error)
}

// HistoryStore keeps a bounded per-user conversation log. Callers serialize
// access per user identity; the store itself only has to be safe for
// concurrent use across different keys.
type HistoryStore interface {
	Read(ctx context.Context, userID string) ([]HistoryTurn, error)
	Append(ctx context.Context, userID string, turn HistoryTurn) error
	Clear(ctx context.Context, userID string) error
}

// Cache stores planning outcomes keyed by normalized query. A Get error means
// a miss; callers never fail a request over it.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Engine executes an optimized plan against the backend collaborators.
type Engine interface {
	Execute(ctx context.Context, plan *ExecutionPlan, query string, history []HistoryTurn, image []byte) (*ExecutionResult, error)
}
