// Package history provides conversation history stores.
package history

import (
	"context"
	"sync"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/halcyonworks/agentroute"
)

// DefaultMaxTurns bounds how many turns are kept per user.
const DefaultMaxTurns = 50

// MemoryStore keeps bounded per-user conversation logs in memory.
type MemoryStore struct {
	turns    map[string][]agentroute.HistoryTurn
	maxTurns int
	mutex    sync.RWMutex
}

// NewMemoryStore creates an in-memory history store. maxTurns <= 0 selects
// the default bound.
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MemoryStore{
		turns:    make(map[string][]agentroute.HistoryTurn),
		maxTurns: maxTurns,
	}
}

// Read returns all stored turns for the user, oldest first.
func (s *MemoryStore) Read(ctx context.Context, userID string) ([]agentroute.HistoryTurn, error) {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored := s.turns[userID]
	out := make([]agentroute.HistoryTurn, len(stored))
	copy(out, stored)
	return out, nil
}

// Append adds a turn, evicting the oldest once the bound is reached.
func (s *MemoryStore) Append(ctx context.Context, userID string, turn agentroute.HistoryTurn) error {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	turns := append(s.turns[userID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.turns[userID] = turns
	return nil
}

// Clear removes all turns for the user.
func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.turns, userID)
	return nil
}
