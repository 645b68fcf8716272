package agentroute

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/halcyonworks/agentroute/internal/eventbus"
)

// PipelineComponents bundles the collaborators the state machine transitions
// need. The engine is the only hard requirement; cache and event bus are
// optional and absent entries degrade to no-ops.
type PipelineComponents struct {
	Builder   *PlanBuilder
	Optimizer *PlanOptimizer
	CostModel *CostModel
	Engine    Engine
	PlanCache Cache
}

// CreatePipelineStateMachine builds the complete state machine for query
// processing.
func CreatePipelineStateMachine(components PipelineComponents, eventBus eventbus.EventBus) *StateMachine {
	sm := NewStateMachine(eventBus)

	sm.RegisterTransition(StateInit, createInitTransition(components))
	sm.RegisterTransition(StatePlanning, createPlanningTransition(components))
	sm.RegisterTransition(StateOptimization, createOptimizationTransition(components))
	sm.RegisterTransition(StateExecution, createExecutionTransition(components))
	sm.RegisterTransition(StateError, createErrorTransition(components))
	sm.RegisterTransition(StateComplete, createCompleteTransition(components))
	sm.RegisterTransition(StateCancelled, createCancelledTransition(components))

	return sm
}

// planCacheKey normalizes request text into a cache key. Image requests are
// never cached; their plan is constant anyway.
func planCacheKey(text string) string {
	return "plan:" + strings.ToLower(strings.TrimSpace(text))
}

// createInitTransition validates the request and consults the plan cache.
func createInitTransition(components PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		req := pCtx.Request

		if eb != nil {
			startEvent := eventbus.NewEvent(
				eventbus.EventQueryReceived,
				req.Query,
				"StateMachine.Init",
				map[string]interface{}{
					"user_id":   req.UserID,
					"has_image": req.HasImage(),
					"timestamp": time.Now().Format(time.RFC3339),
				},
			)
			eb.Publish(ctx, startEvent)
		}

		if strings.TrimSpace(req.Query) == "" && !req.HasImage() {
			err := NewEmptyQueryError()
			pCtx.SetError(err, "validation")
			return StateError, err
		}

		// Plan cache lookup. Misses and failures both just fall through to
		// planning.
		if components.PlanCache != nil && !req.HasImage() {
			if value, err := components.PlanCache.Get(ctx, planCacheKey(req.Query)); err == nil {
				if cached, ok := value.(*ExecutionPlan); ok {
					pCtx.Plan = cached.Clone()
					pCtx.PlanCached = true

					if eb != nil {
						hitEvent := eventbus.NewEvent(
							eventbus.EventPlanCacheHit,
							req.Query,
							"StateMachine.Init",
							map[string]interface{}{"intent": string(pCtx.Plan.Intent)},
						)
						eb.Publish(ctx, hitEvent)
					}
					return StateOptimization, nil
				}
			}
		}

		return StatePlanning, nil
	}
}

// createPlanningTransition classifies the request and builds its plan.
func createPlanningTransition(components PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		req := pCtx.Request

		plan := components.Builder.Build(req.Query, req.HasImage())
		pCtx.Plan = plan

		if eb != nil {
			classifiedEvent := eventbus.NewEvent(
				eventbus.EventIntentClassified,
				string(plan.Intent),
				"StateMachine.Planning",
				nil,
			)
			eb.Publish(ctx, classifiedEvent)

			builtEvent := eventbus.NewEvent(
				eventbus.EventPlanBuilt,
				plan,
				"StateMachine.Planning",
				map[string]interface{}{
					"intent":     string(plan.Intent),
					"step_count": len(plan.Steps),
				},
			)
			eb.Publish(ctx, builtEvent)
		}

		// Cache the pre-optimization plan; optimization is idempotent so the
		// cached copy re-optimizes to the same shape on every hit.
		if components.PlanCache != nil && !req.HasImage() {
			if err := components.PlanCache.Set(ctx, planCacheKey(req.Query), plan.Clone()); err != nil {
				log.Printf("Plan cache store failed (query: %q): %v", req.Query, err)
			}
		}

		return StateOptimization, nil
	}
}

// createOptimizationTransition rewrites the plan, estimates its cost, and
// renders the explanation when the caller asked for one.
func createOptimizationTransition(components PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		plan := components.Optimizer.Optimize(pCtx.Plan)
		pCtx.Plan = plan
		pCtx.Cost = components.CostModel.Estimate(plan)

		if pCtx.Request.Explain {
			pCtx.Explanation = components.CostModel.Explain(plan)
		}

		if eb != nil {
			optimizedEvent := eventbus.NewEvent(
				eventbus.EventPlanOptimized,
				plan,
				"StateMachine.Optimization",
				map[string]interface{}{
					"intent":        string(plan.Intent),
					"compute_units": pCtx.Cost.ComputeUnits,
					"from_cache":    pCtx.PlanCached,
				},
			)
			eb.Publish(ctx, optimizedEvent)
		}

		return StateExecution, nil
	}
}

// createExecutionTransition runs the plan through the engine.
func createExecutionTransition(components PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		req := pCtx.Request

		result, err := components.Engine.Execute(ctx, pCtx.Plan, req.Query, pCtx.History, req.Image)
		if err != nil {
			if eb != nil {
				if IsBackendUnavailable(err) {
					unavailableEvent := eventbus.NewEvent(
						eventbus.EventBackendUnavailable,
						err.Error(),
						"StateMachine.Execution",
						map[string]interface{}{"intent": string(pCtx.Plan.Intent)},
					)
					eb.Publish(ctx, unavailableEvent)
				}

				failEvent := eventbus.NewEvent(
					eventbus.EventQueryFailed,
					req.Query,
					"StateMachine.Execution",
					map[string]interface{}{
						"error": err.Error(),
						"stage": "execution",
					},
				)
				eb.Publish(ctx, failEvent)
			}
			pCtx.SetError(err, "execution")
			return StateError, err
		}

		pCtx.Result = result

		if eb != nil {
			answeredEvent := eventbus.NewEvent(
				eventbus.EventQueryAnswered,
				req.Query,
				"StateMachine.Execution",
				map[string]interface{}{
					"intent":        string(pCtx.Plan.Intent),
					"answer_length": len(result.Answer),
					"source_count":  len(result.Sources),
				},
			)
			eb.Publish(ctx, answeredEvent)
		}

		pCtx.Complete()
		return StateComplete, nil
	}
}

// createErrorTransition handles error states.
func createErrorTransition(_ PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		// The error is already recorded in the process context; StateError is
		// terminal, so the machine loop ends here and reports it.
		lastErr, _ := pCtx.Failure()
		return StateError, lastErr
	}
}

// createCompleteTransition handles the complete state.
func createCompleteTransition(_ PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		return StateComplete, nil
	}
}

// createCancelledTransition handles the cancelled state.
func createCancelledTransition(_ PipelineComponents) StateTransition {
	return func(ctx context.Context, eb eventbus.EventBus, pCtx *ProcessContext) (ProcessState, error) {
		lastErr, _ := pCtx.Failure()
		return StateCancelled, lastErr
	}
}
