package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/halcyonworks/agentroute"
)

func TestMemoryStoreAppendRead(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "What is Docker?"})
	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleAssistant, Content: "A container platform."})

	turns, err := store.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != agentroute.RoleUser || turns[1].Role != agentroute.RoleAssistant {
		t.Errorf("Turns out of order: %+v", turns)
	}
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "hi"})

	turns, err := store.Read(ctx, "bob")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("Expected empty history for other user, got %d turns", len(turns))
	}
}

func TestMemoryStoreBound(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Append(ctx, "alice", agentroute.HistoryTurn{
			Role:    agentroute.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	turns, _ := store.Read(ctx, "alice")
	if len(turns) != 4 {
		t.Fatalf("Expected bound of 4 turns, got %d", len(turns))
	}
	if turns[0].Content != "message 6" {
		t.Errorf("Expected oldest surviving turn to be 'message 6', got %q", turns[0].Content)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "hi"})
	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	turns, _ := store.Read(ctx, "alice")
	if len(turns) != 0 {
		t.Errorf("Expected empty history after clear, got %d turns", len(turns))
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "hi"}); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "What is Git?"})
	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleAssistant, Content: "A version control system."})

	turns, err := store.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[1].Content != "A version control system." {
		t.Errorf("Unexpected turn content: %q", turns[1].Content)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "hello"})
	store.Close()

	reopened, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	turns, err := reopened.Read(ctx, "alice")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "hello" {
		t.Errorf("History did not survive reopen: %+v", turns)
	}
}

func TestSQLiteStorePrunes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, 3)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		store.Append(ctx, "alice", agentroute.HistoryTurn{
			Role:    agentroute.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	turns, _ := store.Read(ctx, "alice")
	if len(turns) != 3 {
		t.Fatalf("Expected 3 turns after pruning, got %d", len(turns))
	}
	if turns[0].Content != "message 3" {
		t.Errorf("Expected oldest surviving turn to be 'message 3', got %q", turns[0].Content)
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	store.Append(ctx, "alice", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "hi"})
	store.Append(ctx, "bob", agentroute.HistoryTurn{Role: agentroute.RoleUser, Content: "hey"})

	if err := store.Clear(ctx, "alice"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	aliceTurns, _ := store.Read(ctx, "alice")
	bobTurns, _ := store.Read(ctx, "bob")
	if len(aliceTurns) != 0 {
		t.Errorf("Expected alice's history cleared, got %d turns", len(aliceTurns))
	}
	if len(bobTurns) != 1 {
		t.Errorf("Clear must not touch other users, bob has %d turns", len(bobTurns))
	}
}
