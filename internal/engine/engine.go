// Package engine executes optimized plans against the backend collaborators.
package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/halcyonworks/agentroute"
	"github.com/halcyonworks/agentroute/internal/eventbus"
)

// FallbackAnswer is returned when no step produced usable text. The engine
// never returns an empty answer.
const FallbackAnswer = "I couldn't generate a response. Please try again."

// Observer receives execution outcomes for external instrumentation.
type Observer interface {
	ObserveQuery(intent string, duration time.Duration)
	ObserveStep(capability string, outcome string)
	ObserveBackendFailure(capability string)
}

// Engine runs plan steps in order against the configured collaborators.
// Steps are strictly sequential: retrieval output feeds generation, so there
// is nothing to parallelize inside one plan.
type Engine struct {
	retriever agentroute.Retriever
	generator agentroute.Generator
	vision    agentroute.Vision

	topK     int
	observer Observer
	eventBus eventbus.EventBus

	metrics ExecutionMetrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRetriever sets the retrieval backend.
func WithRetriever(retriever agentroute.Retriever) EngineOption {
	return func(e *Engine) {
		e.retriever = retriever
	}
}

// WithGenerator sets the generation backend.
func WithGenerator(generator agentroute.Generator) EngineOption {
	return func(e *Engine) {
		e.generator = generator
	}
}

// WithVision sets the vision backend.
func WithVision(vision agentroute.Vision) EngineOption {
	return func(e *Engine) {
		e.vision = vision
	}
}

// WithTopK sets how many passages retrieval steps request.
func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithObserver attaches an instrumentation hook.
func WithObserver(observer Observer) EngineOption {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithEventBus attaches an event bus; step lifecycle events are published to
// it as the plan executes.
func WithEventBus(bus eventbus.EventBus) EngineOption {
	return func(e *Engine) {
		e.eventBus = bus
	}
}

// New creates an engine. All collaborators are optional; a step whose
// backend is missing is treated as a soft failure.
func New(options ...EngineOption) *Engine {
	e := &Engine{topK: 3}
	for _, option := range options {
		option(e)
	}
	return e
}

// Metrics returns a snapshot of the engine's counters.
func (e *Engine) Metrics() ExecutionMetrics {
	return e.metrics.Copy()
}

// stepOutcome labels how a single step ended.
type stepOutcome string

const (
	outcomeSuccess stepOutcome = "success"
	outcomeSoft    stepOutcome = "soft_failure"
	outcomeHard    stepOutcome = "hard_failure"
	outcomeSkipped stepOutcome = "skipped"
)

// Execute runs the plan and always yields a non-empty answer on the success
// path. Soft failures (a backend answered but unhelpfully, or is not
// configured) are logged and skipped. Hard failures (a backend cannot be
// reached) abort the plan and surface to the caller. A context deadline hit
// between steps stops execution with whatever was produced so far.
func (e *Engine) Execute(ctx context.Context, plan *agentroute.ExecutionPlan, query string, history []agentroute.HistoryTurn, image []byte) (*agentroute.ExecutionResult, error) {
	start := time.Now()

	if plan == nil {
		return nil, agentroute.NewInternalError("execution", "nil execution plan", nil)
	}

	// Template fast path: a canned answer returns before any backend call,
	// whatever the step list says. Callers may hand in plans that were never
	// optimized.
	if plan.HasTemplateAnswer() {
		e.metrics.recordQuery(time.Since(start))
		if e.observer != nil {
			e.observer.ObserveQuery(string(plan.Intent), time.Since(start))
		}
		return &agentroute.ExecutionResult{Answer: plan.TemplateAnswer}, nil
	}

	var (
		chunks []agentroute.ContextChunk
		answer string
	)

	for _, step := range plan.Steps {
		// Deadline check at the step boundary. Whatever is already produced
		// stands; no new backend call starts.
		select {
		case <-ctx.Done():
			log.Printf("Execution stopped at step boundary (action: %s, reason: %v)", step.Action, ctx.Err())
			e.metrics.recordStep(outcomeSkipped, 0)
			goto done
		default:
		}

		stepStart := time.Now()
		outcome := outcomeSuccess
		e.publishStep(ctx, eventbus.EventStepStarted, step, "")

		switch step.Capability {
		case agentroute.CapabilityTemplate:
			answer = plan.TemplateAnswer

		case agentroute.CapabilityRetrieval:
			if e.retriever == nil {
				log.Printf("Retrieval step skipped: no retriever configured (action: %s)", step.Action)
				outcome = outcomeSoft
				break
			}
			found, err := e.retriever.Search(ctx, query, e.topK)
			if err != nil {
				if agentroute.IsBackendUnavailable(err) {
					e.failHard(ctx, step, err, stepStart)
					return nil, err
				}
				log.Printf("Retrieval failed, continuing without context (action: %s): %v", step.Action, err)
				outcome = outcomeSoft
				break
			}
			chunks = found

		case agentroute.CapabilityGeneration:
			if e.generator == nil {
				log.Printf("Generation step skipped: no generator configured (action: %s)", step.Action)
				outcome = outcomeSoft
				break
			}
			text, err := e.generate(ctx, query, chunks, history)
			if err != nil {
				if agentroute.IsBackendUnavailable(err) {
					e.failHard(ctx, step, err, stepStart)
					return nil, err
				}
				log.Printf("Generation failed (action: %s): %v", step.Action, err)
				outcome = outcomeSoft
				break
			}
			if strings.TrimSpace(text) == "" {
				log.Printf("Generation returned empty text (action: %s)", step.Action)
				outcome = outcomeSoft
				break
			}
			answer = text

		case agentroute.CapabilityVision:
			if e.vision == nil {
				log.Printf("Vision step skipped: no vision backend configured (action: %s)", step.Action)
				outcome = outcomeSoft
				break
			}
			description, err := e.vision.Describe(ctx, image)
			if err != nil {
				if agentroute.IsBackendUnavailable(err) {
					e.failHard(ctx, step, err, stepStart)
					return nil, err
				}
				log.Printf("Vision analysis failed (action: %s): %v", step.Action, err)
				outcome = outcomeSoft
				break
			}
			answer = formatDescription(description)

		default:
			log.Printf("Unknown step capability, skipping (action: %s, capability: %s)", step.Action, step.Capability)
			outcome = outcomeSoft
		}

		e.metrics.recordStep(outcome, time.Since(stepStart))
		if e.observer != nil {
			e.observer.ObserveStep(string(step.Capability), string(outcome))
		}
		if outcome == outcomeSuccess {
			e.publishStep(ctx, eventbus.EventStepCompleted, step, outcome)
		} else {
			e.publishStep(ctx, eventbus.EventStepFailed, step, outcome)
		}
	}

done:
	if strings.TrimSpace(answer) == "" {
		answer = FallbackAnswer
	}

	result := &agentroute.ExecutionResult{
		Answer:  answer,
		Sources: collectSources(chunks),
		Context: chunks,
	}

	e.metrics.recordQuery(time.Since(start))
	if e.observer != nil {
		e.observer.ObserveQuery(string(plan.Intent), time.Since(start))
	}

	return result, nil
}

// generate picks the contextual or direct generation path depending on
// whether retrieval produced anything.
func (e *Engine) generate(ctx context.Context, query string, chunks []agentroute.ContextChunk, history []agentroute.HistoryTurn) (string, error) {
	if len(chunks) > 0 {
		return e.generator.Generate(ctx, query, chunks, history)
	}
	return e.generator.GenerateDirect(ctx, query)
}

// failHard records a hard failure before the error surfaces.
func (e *Engine) failHard(ctx context.Context, step agentroute.ExecutionStep, err error, stepStart time.Time) {
	log.Printf("Backend unavailable, aborting plan (action: %s): %v", step.Action, err)
	e.metrics.recordStep(outcomeHard, time.Since(stepStart))
	if e.observer != nil {
		e.observer.ObserveStep(string(step.Capability), string(outcomeHard))
		e.observer.ObserveBackendFailure(string(step.Capability))
	}
	e.publishStep(ctx, eventbus.EventStepFailed, step, outcomeHard)
}

// publishStep emits one step lifecycle event when a bus is attached.
func (e *Engine) publishStep(ctx context.Context, eventType eventbus.EventType, step agentroute.ExecutionStep, outcome stepOutcome) {
	if e.eventBus == nil {
		return
	}
	metadata := map[string]interface{}{"capability": string(step.Capability)}
	if outcome != "" {
		metadata["outcome"] = string(outcome)
	}
	e.eventBus.Publish(ctx, eventbus.NewEvent(eventType, step.Action, "Engine.Execute", metadata))
}

// collectSources deduplicates chunk sources, preserving first-seen order.
func collectSources(chunks []agentroute.ContextChunk) []string {
	seen := make(map[string]bool, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.SourceID == "" || seen[chunk.SourceID] {
			continue
		}
		seen[chunk.SourceID] = true
		sources = append(sources, chunk.SourceID)
	}
	return sources
}

// formatDescription turns a vision result into answer text.
func formatDescription(description agentroute.ImageDescription) string {
	caption := strings.TrimSpace(description.Caption)
	if caption == "" {
		return ""
	}
	if len(description.Tags) == 0 {
		return caption
	}
	return caption + "\n\nTags: " + strings.Join(description.Tags, ", ")
}
