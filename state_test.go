package agentroute

import (
	"context"
	"testing"
	"time"

	"github.com/halcyonworks/agentroute/internal/eventbus"
)

func newTestComponents(engine Engine, planCache Cache) PipelineComponents {
	return PipelineComponents{
		Builder:   NewPlanBuilder(nil),
		Optimizer: NewPlanOptimizer(),
		CostModel: NewCostModel(),
		Engine:    engine,
		PlanCache: planCache,
	}
}

func TestStateMachineFullPipeline(t *testing.T) {
	engine := &mockEngine{}
	sm := CreatePipelineStateMachine(newTestComponents(engine, nil), nil)

	pCtx := NewProcessContext(Request{Query: "What is Docker?"})
	result, err := sm.Execute(context.Background(), pCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if pCtx.CurrentState != StateComplete {
		t.Errorf("Expected complete state, got %s", pCtx.CurrentState)
	}
	if result == nil || result.Answer != "generated answer" {
		t.Errorf("Unexpected result: %+v", result)
	}
	if pCtx.Plan == nil || pCtx.Plan.Intent != IntentKnowledgeSearch {
		t.Errorf("Unexpected plan: %+v", pCtx.Plan)
	}
	if pCtx.PlanCached {
		t.Error("Plan must not be marked cached without a cache")
	}
	if pCtx.Cost.ComputeUnits == 0 {
		t.Error("Expected a non-zero cost estimate")
	}
	if pCtx.EndTime.IsZero() {
		t.Error("Expected the end time to be recorded")
	}
}

func TestStateMachineRejectsEmptyQuery(t *testing.T) {
	sm := CreatePipelineStateMachine(newTestComponents(&mockEngine{}, nil), nil)

	pCtx := NewProcessContext(Request{Query: "  "})
	_, err := sm.Execute(context.Background(), pCtx)
	if err == nil {
		t.Fatal("Expected an error for an empty query")
	}
	if !IsEmptyQuery(err) {
		t.Errorf("Expected empty query error, got %v", err)
	}
	if pCtx.CurrentState != StateError {
		t.Errorf("Expected error state, got %s", pCtx.CurrentState)
	}
	if pCtx.ErrorStage != "validation" {
		t.Errorf("Unexpected error stage: %s", pCtx.ErrorStage)
	}
}

func TestStateMachinePlanCacheHit(t *testing.T) {
	engine := &mockEngine{}
	planCache := &memoryPlanCache{store: make(map[string]interface{})}
	components := newTestComponents(engine, planCache)

	// First run populates the cache via the planning transition.
	sm := CreatePipelineStateMachine(components, nil)
	if _, err := sm.Execute(context.Background(), NewProcessContext(Request{Query: "What is Docker?"})); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if planCache.sets != 1 {
		t.Fatalf("Expected the plan to be cached, got %d stores", planCache.sets)
	}

	// Second run with different casing hits the cache and skips planning.
	pCtx := NewProcessContext(Request{Query: "WHAT IS DOCKER?"})
	if _, err := sm.Execute(context.Background(), pCtx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !pCtx.PlanCached {
		t.Error("Expected the plan to come from the cache")
	}
	if planCache.hits != 1 {
		t.Errorf("Expected 1 cache hit, got %d", planCache.hits)
	}
	if planCache.sets != 1 {
		t.Errorf("Cache hit must not store again, got %d stores", planCache.sets)
	}
	if pCtx.Plan.Intent != IntentKnowledgeSearch {
		t.Errorf("Unexpected cached intent: %s", pCtx.Plan.Intent)
	}
}

func TestStateMachineImageRequestSkipsCache(t *testing.T) {
	planCache := &memoryPlanCache{store: make(map[string]interface{})}
	sm := CreatePipelineStateMachine(newTestComponents(&mockEngine{result: &ExecutionResult{Answer: "A cat."}}, planCache), nil)

	pCtx := NewProcessContext(Request{Image: []byte{0x01}})
	if _, err := sm.Execute(context.Background(), pCtx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if planCache.sets != 0 || planCache.hits != 0 {
		t.Errorf("Image plans must bypass the cache (sets: %d, hits: %d)", planCache.sets, planCache.hits)
	}
}

func TestStateMachineExplainOnlyWhenRequested(t *testing.T) {
	sm := CreatePipelineStateMachine(newTestComponents(&mockEngine{}, nil), nil)

	pCtx := NewProcessContext(Request{Query: "What is Docker?", Explain: true})
	if _, err := sm.Execute(context.Background(), pCtx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if pCtx.Explanation == "" {
		t.Error("Expected an explanation when requested")
	}

	pCtx = NewProcessContext(Request{Query: "What is Docker?"})
	if _, err := sm.Execute(context.Background(), pCtx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if pCtx.Explanation != "" {
		t.Errorf("Unexpected explanation: %q", pCtx.Explanation)
	}
}

func TestStateMachineEngineFailure(t *testing.T) {
	engine := &mockEngine{err: NewBackendUnavailableError("retrieval", "corpus", nil)}
	sm := CreatePipelineStateMachine(newTestComponents(engine, nil), nil)

	pCtx := NewProcessContext(Request{Query: "What is Docker?"})
	_, err := sm.Execute(context.Background(), pCtx)
	if err == nil {
		t.Fatal("Expected the engine failure to surface")
	}
	if !IsBackendUnavailable(err) {
		t.Errorf("Expected backend unavailable error, got %v", err)
	}
	if pCtx.CurrentState != StateError || pCtx.ErrorStage != "execution" {
		t.Errorf("Unexpected terminal state: %s (stage: %s)", pCtx.CurrentState, pCtx.ErrorStage)
	}
}

func TestStateMachineCancelledContext(t *testing.T) {
	sm := CreatePipelineStateMachine(newTestComponents(&mockEngine{}, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pCtx := NewProcessContext(Request{Query: "What is Docker?"})
	_, err := sm.Execute(ctx, pCtx)
	if err == nil {
		t.Fatal("Expected an error for a cancelled context")
	}
	if pCtx.CurrentState != StateCancelled {
		t.Errorf("Expected cancelled state, got %s", pCtx.CurrentState)
	}
}

func TestStateMachineMissingTransition(t *testing.T) {
	sm := NewStateMachine(nil)

	pCtx := NewProcessContext(Request{Query: "hello"})
	_, err := sm.Execute(context.Background(), pCtx)
	if err == nil {
		t.Fatal("Expected an error when no transition is registered")
	}
	if pCtx.CurrentState != StateError {
		t.Errorf("Expected error state, got %s", pCtx.CurrentState)
	}
}

func TestStateMachinePublishesEvents(t *testing.T) {
	bus := eventbus.NewChannelEventBus()
	defer bus.Close()

	received := make(chan eventbus.EventType, 32)
	bus.SubscribeAll(func(ctx context.Context, event eventbus.Event) error {
		received <- event.Type()
		return nil
	})

	sm := CreatePipelineStateMachine(newTestComponents(&mockEngine{}, nil), bus)
	if _, err := sm.Execute(context.Background(), NewProcessContext(Request{Query: "What is Docker?"})); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := map[eventbus.EventType]bool{
		eventbus.EventQueryReceived:    false,
		eventbus.EventIntentClassified: false,
		eventbus.EventPlanBuilt:        false,
		eventbus.EventPlanOptimized:    false,
		eventbus.EventQueryAnswered:    false,
	}

	deadline := time.After(3 * time.Second)
	for remaining := len(want); remaining > 0; {
		select {
		case eventType := <-received:
			if seen, tracked := want[eventType]; tracked && !seen {
				want[eventType] = true
				remaining--
			}
		case <-deadline:
			t.Fatalf("Missing events: %v", want)
		}
	}
}

func TestProcessContextStateStack(t *testing.T) {
	pCtx := NewProcessContext(Request{Query: "hello"})

	pCtx.PushState(StatePlanning)
	pCtx.PushState(StateOptimization)
	if pCtx.CurrentState != StateOptimization {
		t.Errorf("Unexpected current state: %s", pCtx.CurrentState)
	}

	if !pCtx.PopState() {
		t.Fatal("Expected pop to succeed")
	}
	if pCtx.CurrentState != StatePlanning {
		t.Errorf("Unexpected state after pop: %s", pCtx.CurrentState)
	}

	pCtx.PopState()
	if pCtx.PopState() {
		t.Error("Expected pop on an empty stack to fail")
	}
}
