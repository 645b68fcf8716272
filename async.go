package agentroute

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/halcyonworks/agentroute/internal/eventbus"
)

// AsyncExecutionStatus represents the status information for an async execution.
type AsyncExecutionStatus struct {
	ExecutionID  string        `json:"execution_id"`
	Query        string        `json:"query"`
	CurrentState ProcessState  `json:"current_state"`
	StartTime    time.Time     `json:"start_time"`
	Duration     time.Duration `json:"duration"`
	IsComplete   bool          `json:"is_complete"`
	HasError     bool          `json:"has_error"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ErrorStage   string        `json:"error_stage,omitempty"`
}

// ProcessAsync starts an asynchronous query execution. It returns a unique
// execution ID that can be used to check the status or fetch the result.
func (r *Runtime) ProcessAsync(ctx context.Context, req Request) (string, error) {
	executionID := uuid.New().String()

	pCtx := NewProcessContext(req)

	// The async run outlives the caller's context.
	asyncCtx, cancel := context.WithCancel(context.Background())
	if r.config.ProcessTimeout > 0 {
		asyncCtx, cancel = context.WithTimeout(context.Background(), r.config.ProcessTimeout)
	}
	pCtx.cancel = cancel

	// Register only once the cancel function is in place, so a concurrent
	// CancelAsyncProcess never sees a half-built context.
	r.asyncExecutionsMutex.Lock()
	r.asyncExecutions[executionID] = pCtx
	r.asyncExecutionsMutex.Unlock()

	if r.config.EnableEventBus && r.eventBus != nil {
		startEvent := eventbus.NewEvent(
			eventbus.EventAsyncQueryStarted,
			req.Query,
			"Runtime.ProcessAsync",
			map[string]interface{}{
				"execution_id": executionID,
				"timestamp":    time.Now().Format(time.RFC3339),
			},
		)
		r.eventBus.Publish(ctx, startEvent)
	}

	go func() {
		defer cancel()

		_, err := r.execute(asyncCtx, pCtx)

		// SetError is a no-op once a terminal state is reached; this only
		// records errors from runs that bailed before the machine could.
		if err != nil {
			pCtx.SetError(err, string(pCtx.State()))
		}

		if r.config.EnableEventBus && r.eventBus != nil {
			metadata := map[string]interface{}{
				"execution_id": executionID,
				"duration_ms":  pCtx.GetTotalDuration().Milliseconds(),
			}
			if err != nil {
				_, errStage := pCtx.Failure()
				metadata["error"] = err.Error()
				metadata["error_stage"] = errStage
			}

			finishEvent := eventbus.NewEvent(
				eventbus.EventAsyncQueryFinished,
				req.Query,
				"Runtime.ProcessAsync",
				metadata,
			)
			// Use background context since the original context might be done.
			r.eventBus.Publish(context.Background(), finishEvent)
		}
	}()

	return executionID, nil
}

// GetAsyncStatus retrieves the current status of an async execution.
func (r *Runtime) GetAsyncStatus(executionID string) (*AsyncExecutionStatus, error) {
	r.asyncExecutionsMutex.RLock()
	defer r.asyncExecutionsMutex.RUnlock()

	pCtx, exists := r.asyncExecutions[executionID]
	if !exists {
		return nil, fmt.Errorf("execution with ID '%s' not found", executionID)
	}

	state := pCtx.State()
	lastErr, errStage := pCtx.Failure()

	status := &AsyncExecutionStatus{
		ExecutionID:  executionID,
		Query:        pCtx.Request.Query,
		CurrentState: state,
		StartTime:    pCtx.StartTime,
		Duration:     pCtx.GetTotalDuration(),
		IsComplete:   state == StateComplete,
		HasError:     state == StateError,
	}

	if lastErr != nil {
		status.ErrorMessage = lastErr.Error()
		status.ErrorStage = errStage
	}

	return status, nil
}

// GetAsyncResult retrieves the result of a completed async execution.
// It returns an error if the execution is still running or failed.
func (r *Runtime) GetAsyncResult(executionID string) (*Response, error) {
	r.asyncExecutionsMutex.RLock()
	defer r.asyncExecutionsMutex.RUnlock()

	pCtx, exists := r.asyncExecutions[executionID]
	if !exists {
		return nil, fmt.Errorf("execution with ID '%s' not found", executionID)
	}

	state := pCtx.State()
	lastErr, errStage := pCtx.Failure()

	if state != StateComplete {
		if state == StateError || state == StateCancelled {
			return nil, fmt.Errorf("execution failed during stage '%s': %w", errStage, lastErr)
		}
		return nil, fmt.Errorf("execution is still in progress (current state: %s)", state)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("execution completed with an error during stage '%s': %w", errStage, lastErr)
	}

	if pCtx.Result == nil {
		return nil, fmt.Errorf("execution '%s' completed without a result", executionID)
	}

	return &Response{
		Answer:          pCtx.Result.Answer,
		Sources:         pCtx.Result.Sources,
		PlanExplanation: pCtx.Explanation,
	}, nil
}

// CancelAsyncProcess cancels an ongoing async execution. It reports true if
// the execution was cancelled, false if it had already finished.
func (r *Runtime) CancelAsyncProcess(executionID string) (bool, error) {
	r.asyncExecutionsMutex.Lock()
	defer r.asyncExecutionsMutex.Unlock()

	pCtx, exists := r.asyncExecutions[executionID]
	if !exists {
		return false, fmt.Errorf("execution with ID '%s' not found", executionID)
	}

	if pCtx.IsTerminal() {
		return false, nil
	}

	if pCtx.cancel == nil {
		return false, fmt.Errorf("cannot cancel execution: cancel function not found")
	}

	stage := string(pCtx.State())
	pCtx.cancel()
	pCtx.SetCancelled(NewCancelledError(stage, context.Canceled), stage)

	if r.config.EnableEventBus && r.eventBus != nil {
		cancelEvent := eventbus.NewEvent(
			eventbus.EventAsyncQueryCancelled,
			pCtx.Request.Query,
			"Runtime.CancelAsyncProcess",
			map[string]interface{}{
				"execution_id": executionID,
				"duration_ms":  pCtx.GetTotalDuration().Milliseconds(),
			},
		)
		r.eventBus.Publish(context.Background(), cancelEvent)
	}

	return true, nil
}

// ListAsyncExecutions returns the IDs and current states of all tracked
// async executions.
func (r *Runtime) ListAsyncExecutions() map[string]string {
	r.asyncExecutionsMutex.RLock()
	defer r.asyncExecutionsMutex.RUnlock()

	result := make(map[string]string, len(r.asyncExecutions))
	for id, pCtx := range r.asyncExecutions {
		result[id] = string(pCtx.State())
	}

	return result
}

// CleanupCompletedExecutions removes finished executions older than the
// given duration, bounding the tracking map.
func (r *Runtime) CleanupCompletedExecutions(olderThan time.Duration) int {
	r.asyncExecutionsMutex.Lock()
	defer r.asyncExecutionsMutex.Unlock()

	now := time.Now()
	count := 0

	for id, pCtx := range r.asyncExecutions {
		if pCtx.IsTerminal() && now.Sub(pCtx.stateEnteredAt()) > olderThan {
			delete(r.asyncExecutions, id)
			count++
		}
	}

	return count
}
