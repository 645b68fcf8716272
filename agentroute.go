// Package agentroute provides a query routing runtime that decides, per
// request, which backend capabilities to invoke and in what order.
package agentroute

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/halcyonworks/agentroute/internal/eventbus"
)

// Runtime is the main entry point. It wires the classifier, plan builder,
// optimizer, cost model, and execution engine into a single Process call.
type Runtime struct {
	// Core components
	builder   *PlanBuilder
	optimizer *PlanOptimizer
	costModel *CostModel
	engine    Engine
	history   HistoryStore
	planCache Cache
	eventBus  eventbus.EventBus

	// ownsEventBus records whether Close should shut the bus down.
	ownsEventBus bool

	// Configuration
	config Config

	// Per-user serialization of read-history, execute, append-history.
	userLocks     map[string]*sync.Mutex
	userLocksLock sync.Mutex

	// Async processing
	asyncExecutions      map[string]*ProcessContext
	asyncExecutionsMutex sync.RWMutex
}

// Config holds the configuration options for the Runtime.
type Config struct {
	// HistoryWindow is how many recent turns are handed to generation.
	HistoryWindow int

	// ProcessTimeout bounds a single Process call. Zero disables the bound.
	ProcessTimeout time.Duration

	// Event bus configuration
	EnableEventBus      bool
	EventBusBufferSize  int
	EventBusWorkerCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:       4,
		ProcessTimeout:      time.Minute,
		EnableEventBus:      true,
		EventBusBufferSize:  100,
		EventBusWorkerCount: 4,
	}
}

// Option is a function that configures a Runtime instance.
type Option func(*Runtime)

// WithConfig sets the runtime configuration.
func WithConfig(config Config) Option {
	return func(r *Runtime) {
		r.config = config
	}
}

// WithEngine sets the execution engine.
func WithEngine(engine Engine) Option {
	return func(r *Runtime) {
		r.engine = engine
	}
}

// WithHistory sets the conversation history store.
func WithHistory(history HistoryStore) Option {
	return func(r *Runtime) {
		r.history = history
	}
}

// WithPlanCache sets the plan cache.
func WithPlanCache(cache Cache) Option {
	return func(r *Runtime) {
		r.planCache = cache
	}
}

// WithClassifier sets a custom intent classifier.
func WithClassifier(classifier *IntentClassifier) Option {
	return func(r *Runtime) {
		r.builder = NewPlanBuilder(classifier)
	}
}

// WithEventBus sets a caller-owned event bus. Close will not shut it down.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(r *Runtime) {
		r.eventBus = bus
		r.ownsEventBus = false
	}
}

// New creates a new Runtime instance with the provided options.
func New(options ...Option) (*Runtime, error) {
	r := &Runtime{
		builder:         NewPlanBuilder(nil),
		optimizer:       NewPlanOptimizer(),
		costModel:       NewCostModel(),
		config:          DefaultConfig(),
		userLocks:       make(map[string]*sync.Mutex),
		asyncExecutions: make(map[string]*ProcessContext),
	}

	for _, option := range options {
		option(r)
	}

	if r.engine == nil {
		return nil, NewConfigurationError("execution engine is required", nil)
	}

	if r.history == nil {
		return nil, NewConfigurationError("history store is required", nil)
	}

	if r.config.HistoryWindow <= 0 {
		r.config.HistoryWindow = DefaultConfig().HistoryWindow
	}

	if r.config.EnableEventBus && r.eventBus == nil {
		r.eventBus = eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(r.config.EventBusBufferSize),
			eventbus.WithWorkerCount(r.config.EventBusWorkerCount),
		)
		r.ownsEventBus = true
		log.Printf("Initialized default channel-based event bus")
	}

	return r, nil
}

// EventBus returns the runtime's event bus, or nil when disabled.
func (r *Runtime) EventBus() eventbus.EventBus {
	if !r.config.EnableEventBus {
		return nil
	}
	return r.eventBus
}

// Close releases runtime resources. It shuts down the event bus only when
// the runtime created it.
func (r *Runtime) Close() error {
	if r.ownsEventBus && r.eventBus != nil {
		return r.eventBus.Close()
	}
	return nil
}

// Process handles an end-to-end query execution through the routing pipeline
// using a pushdown automaton state machine.
func (r *Runtime) Process(ctx context.Context, req Request) (*Response, error) {
	if r.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ProcessTimeout)
		defer cancel()
	}

	pCtx := NewProcessContext(req)
	return r.execute(ctx, pCtx)
}

// execute runs a prepared process context through the state machine,
// serializing history access per user.
func (r *Runtime) execute(ctx context.Context, pCtx *ProcessContext) (*Response, error) {
	req := pCtx.Request

	// Hold the user's lock across read-history, execute, append-history so
	// interleaved requests from the same user never see a torn conversation.
	if req.UserID != "" {
		lock := r.userLock(req.UserID)
		lock.Lock()
		defer lock.Unlock()

		turns, err := r.history.Read(ctx, req.UserID)
		if err != nil {
			log.Printf("History read failed (user_id: %s): %v", req.UserID, err)
		} else {
			pCtx.History = tailTurns(turns, r.config.HistoryWindow)
		}
	}

	stateMachine := r.createStateMachine()
	result, err := stateMachine.Execute(ctx, pCtx)
	if err != nil {
		return nil, err
	}

	if req.UserID != "" && strings.TrimSpace(req.Query) != "" {
		r.recordExchange(ctx, req.UserID, req.Query, result.Answer)
	}

	return &Response{
		Answer:          result.Answer,
		Sources:         result.Sources,
		PlanExplanation: pCtx.Explanation,
	}, nil
}

// recordExchange appends the user query and the assistant answer to history.
// Failures are logged, never surfaced; the answer already exists.
func (r *Runtime) recordExchange(ctx context.Context, userID, query, answer string) {
	if err := r.history.Append(ctx, userID, HistoryTurn{Role: RoleUser, Content: query}); err != nil {
		log.Printf("History append failed (user_id: %s, role: %s): %v", userID, RoleUser, err)
		return
	}
	if err := r.history.Append(ctx, userID, HistoryTurn{Role: RoleAssistant, Content: answer}); err != nil {
		log.Printf("History append failed (user_id: %s, role: %s): %v", userID, RoleAssistant, err)
	}
}

// createStateMachine builds a state machine with all transitions registered
// for the routing workflow.
func (r *Runtime) createStateMachine() *StateMachine {
	var bus eventbus.EventBus
	if r.config.EnableEventBus {
		bus = r.eventBus
	}

	components := PipelineComponents{
		Builder:   r.builder,
		Optimizer: r.optimizer,
		CostModel: r.costModel,
		Engine:    r.engine,
		PlanCache: r.planCache,
	}

	return CreatePipelineStateMachine(components, bus)
}

// userLock returns the mutex serializing requests for one user.
func (r *Runtime) userLock(userID string) *sync.Mutex {
	r.userLocksLock.Lock()
	defer r.userLocksLock.Unlock()

	lock, exists := r.userLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		r.userLocks[userID] = lock
	}
	return lock
}

// tailTurns returns the last n turns of the conversation.
func tailTurns(turns []HistoryTurn, n int) []HistoryTurn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// summaryPrompt is the fixed instruction used by Summarize.
const summaryPrompt = "Please provide a brief 2-3 sentence summary of this conversation:"

// noHistoryMessage is returned when there is nothing to summarize.
const noHistoryMessage = "No conversation history to summarize."

// Summarize condenses the user's recent conversation into a short summary by
// running a direct-generation plan through the engine.
func (r *Runtime) Summarize(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", NewValidationError("summarize", "user id is required")
	}

	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	turns, err := r.history.Read(ctx, userID)
	if err != nil {
		return "", NewHistoryError("read", err)
	}
	if len(turns) == 0 {
		return noHistoryMessage, nil
	}

	var sb strings.Builder
	sb.WriteString(summaryPrompt)
	sb.WriteString("\n\n")
	for _, turn := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}

	plan := &ExecutionPlan{
		Intent:        IntentSummarization,
		UseGeneration: true,
		Steps: []ExecutionStep{
			{
				Action:     "generate_response",
				Capability: CapabilityGeneration,
				Rationale:  "conversation summary requested",
			},
		},
	}

	result, err := r.engine.Execute(ctx, plan, sb.String(), nil, nil)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}

// ClearHistory removes all stored conversation turns for the user.
func (r *Runtime) ClearHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return NewValidationError("history", "user id is required")
	}

	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.history.Clear(ctx, userID); err != nil {
		return NewHistoryError("clear", err)
	}

	if r.config.EnableEventBus && r.eventBus != nil {
		clearEvent := eventbus.NewEvent(
			eventbus.EventHistoryCleared,
			userID,
			"Runtime.ClearHistory",
			nil,
		)
		r.eventBus.Publish(ctx, clearEvent)
	}

	return nil
}

// HistoryStats reports how many turns are stored for the user.
func (r *Runtime) HistoryStats(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, NewValidationError("history", "user id is required")
	}

	turns, err := r.history.Read(ctx, userID)
	if err != nil {
		return 0, NewHistoryError("read", err)
	}
	return len(turns), nil
}
