package agentroute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/halcyonworks/agentroute/internal/eventbus"
)

// The routing pipeline is modelled as a pushdown automaton: the state stack
// records how execution got where it is, which keeps the flow inspectable and
// leaves room for fallback paths without restructuring the loop.

// ProcessState represents the current state of a query's processing.
type ProcessState string

const (
	// StateInit is the initial state of the process
	StateInit ProcessState = "init"
	// StatePlanning represents the plan building phase
	StatePlanning ProcessState = "planning"
	// StateOptimization represents the plan rewrite and costing phase
	StateOptimization ProcessState = "optimization"
	// StateExecution represents the plan execution phase
	StateExecution ProcessState = "execution"
	// StateError represents an error state
	StateError ProcessState = "error"
	// StateComplete represents the completed state
	StateComplete ProcessState = "complete"
	// StateCancelled represents the cancelled state
	StateCancelled ProcessState = "cancelled"
	// StateUnknown is used when the status of an async execution cannot be determined.
	StateUnknown ProcessState = "unknown"
)

// ProcessContext carries a single request through the pipeline. It acts as
// the "tape" in the pushdown automaton.
//
// Async executions share one ProcessContext between the goroutine driving the
// state machine and the status, result, and cancel APIs. State, LastError,
// and ErrorStage are therefore guarded by mu; the intermediate results
// (Plan, Result, Explanation) are written only by the driving goroutine and
// read by others only after State reports a terminal state, which the mutex
// orders.
type ProcessContext struct {
	mu sync.Mutex

	// Input parameters
	Request Request

	// Intermediate results
	History     []HistoryTurn
	Plan        *ExecutionPlan
	PlanCached  bool
	Cost        CostEstimate
	Explanation string
	Result      *ExecutionResult

	// Error handling
	LastError  error
	ErrorStage string

	// State management
	CurrentState ProcessState
	StateStack   []ProcessState

	// cancel aborts an async execution; nil for synchronous runs.
	cancel context.CancelFunc

	// Timestamp tracking
	StartTime       time.Time
	EndTime         time.Time
	StateStartTimes map[ProcessState]time.Time
}

// NewProcessContext creates a new process context for the given request.
func NewProcessContext(req Request) *ProcessContext {
	return &ProcessContext{
		Request:         req,
		CurrentState:    StateInit,
		StateStack:      []ProcessState{},
		StartTime:       time.Now(),
		StateStartTimes: map[ProcessState]time.Time{StateInit: time.Now()},
	}
}

// PushState pushes the current state onto the stack and sets a new current state.
func (pc *ProcessContext) PushState(state ProcessState) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.StateStack = append(pc.StateStack, pc.CurrentState)
	pc.CurrentState = state
	pc.StateStartTimes[state] = time.Now()
}

// PopState pops the top state from the stack and sets it as the current state.
// Returns false if the stack is empty.
func (pc *ProcessContext) PopState() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if len(pc.StateStack) == 0 {
		return false
	}
	lastIdx := len(pc.StateStack) - 1
	pc.CurrentState = pc.StateStack[lastIdx]
	pc.StateStack = pc.StateStack[:lastIdx]
	pc.StateStartTimes[pc.CurrentState] = time.Now()
	return true
}

// State returns the current state.
func (pc *ProcessContext) State() ProcessState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.CurrentState
}

// Failure returns the recorded error and the stage it occurred in.
func (pc *ProcessContext) Failure() (error, string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.LastError, pc.ErrorStage
}

// IsTerminal checks if the current state is a terminal state (Complete, Error, Cancelled).
func (pc *ProcessContext) IsTerminal() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.terminalLocked()
}

func (pc *ProcessContext) terminalLocked() bool {
	return pc.CurrentState == StateComplete || pc.CurrentState == StateError || pc.CurrentState == StateCancelled
}

// SetError sets the last error and error stage, transitioning to StateError.
// A context already in a terminal state keeps it; a concurrent cancellation
// outranks a late error.
func (pc *ProcessContext) SetError(err error, stage string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.terminalLocked() {
		return
	}
	pc.LastError = err
	pc.ErrorStage = stage
	pc.CurrentState = StateError
	pc.StateStartTimes[StateError] = time.Now()
}

// SetCancelled sets the state to Cancelled and records the cancellation error.
func (pc *ProcessContext) SetCancelled(err error, stage string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.terminalLocked() {
		return
	}
	pc.LastError = err
	pc.ErrorStage = stage
	pc.CurrentState = StateCancelled
	pc.StateStartTimes[StateCancelled] = time.Now()
}

// Complete marks the process as complete and sets the end time. It is a
// no-op when the context was cancelled or errored first.
func (pc *ProcessContext) Complete() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.terminalLocked() {
		return
	}
	pc.CurrentState = StateComplete
	pc.EndTime = time.Now()
	pc.StateStartTimes[StateComplete] = pc.EndTime
}

// advance moves to the next state unless a terminal state was reached in the
// meantime, in which case the terminal state stands.
func (pc *ProcessContext) advance(next ProcessState) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.terminalLocked() {
		return
	}
	pc.CurrentState = next
	pc.StateStartTimes[next] = time.Now()
}

// stateEnteredAt reports when the current state was entered.
func (pc *ProcessContext) stateEnteredAt() time.Time {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.StateStartTimes[pc.CurrentState]
}

// GetTotalDuration returns the total duration of the process so far.
func (pc *ProcessContext) GetTotalDuration() time.Duration {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.CurrentState == StateComplete {
		return pc.EndTime.Sub(pc.StartTime)
	}
	return time.Since(pc.StartTime)
}

// StateTransition defines a transition function for the state machine.
type StateTransition func(ctx context.Context, eventBus eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error)

// StateMachine drives a request through the registered transitions.
type StateMachine struct {
	transitions map[ProcessState]StateTransition
	eventBus    eventbus.EventBus
}

// NewStateMachine creates a new state machine with no transitions registered.
func NewStateMachine(eventBus eventbus.EventBus) *StateMachine {
	return &StateMachine{
		transitions: make(map[ProcessState]StateTransition),
		eventBus:    eventBus,
	}
}

// RegisterTransition registers a state transition function.
func (sm *StateMachine) RegisterTransition(state ProcessState, transition StateTransition) {
	sm.transitions[state] = transition
}

// Execute runs the state machine until a terminal state is reached. It
// returns the execution result and any error recorded along the way.
func (sm *StateMachine) Execute(ctx context.Context, pCtx *ProcessContext) (*ExecutionResult, error) {
	for {
		state := pCtx.State()
		if state == StateComplete || state == StateError || state == StateCancelled {
			break
		}

		// Check for context cancellation before executing the next state
		select {
		case <-ctx.Done():
			pCtx.SetCancelled(NewCancelledError(string(state), ctx.Err()), string(state))
			lastErr, _ := pCtx.Failure()
			return nil, lastErr
		default:
		}

		transition, exists := sm.transitions[state]
		if !exists {
			err := NewInternalError(string(state), fmt.Sprintf("no transition defined for state: %s", state), nil)
			pCtx.SetError(err, string(state))
			return nil, err
		}

		nextState, err := transition(ctx, sm.eventBus, pCtx)

		if err != nil {
			currentStage := string(state)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				pCtx.SetCancelled(err, currentStage)
			} else {
				// Transitions normally set the error state themselves; this
				// catches the ones that just return an error.
				pCtx.SetError(err, currentStage)
			}
			continue
		}

		pCtx.advance(nextState)
	}

	finalState := pCtx.State()
	lastErr, _ := pCtx.Failure()
	if finalState == StateComplete && lastErr == nil {
		return pCtx.Result, nil
	}
	return pCtx.Result, lastErr
}
