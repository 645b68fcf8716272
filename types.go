package agentroute

// Intent is the discrete classification of a request's purpose. Every request
// has exactly one primary intent, fixed at classification time.
type Intent string

const (
	// IntentKnowledgeSearch requires retrieval plus generation.
	IntentKnowledgeSearch Intent = "knowledge_search"
	// IntentSimpleGreeting is answerable from a template, no backend calls.
	IntentSimpleGreeting Intent = "simple_greeting"
	// IntentImageAnalysis routes through the vision backend only.
	IntentImageAnalysis Intent = "image_analysis"
	// IntentSummarization needs generation but no retrieval.
	IntentSummarization Intent = "summarization"
	// IntentConversation is free-form chat handled by generation alone.
	IntentConversation Intent = "conversation"
	// IntentCalculation is answerable by bounded arithmetic evaluation.
	IntentCalculation Intent = "calculation"
	// IntentUnknown is the residual class; routed through retrieval as a fallback.
	IntentUnknown Intent = "unknown"
)

// Capability names an abstract backend function a plan step may invoke.
type Capability string

const (
	CapabilityTemplate   Capability = "template"
	CapabilityRetrieval  Capability = "retrieval"
	CapabilityGeneration Capability = "generation"
	CapabilityVision     Capability = "vision"
)

// ExecutionStep is one ordered unit of work in a plan. Order is significant:
// retrieval must precede generation so that generation can consume its output.
type ExecutionStep struct {
	Action     string     `json:"action"`
	Capability Capability `json:"capability"`
	Rationale  string     `json:"rationale"`
}

// ExecutionPlan is the unit of work decided for a single request. It is
// created fresh per request, owned by the caller that produced it, and never
// persisted across requests.
type ExecutionPlan struct {
	Intent         Intent          `json:"intent"`
	UseRetrieval   bool            `json:"use_retrieval"`
	UseGeneration  bool            `json:"use_generation"`
	UseVision      bool            `json:"use_vision"`
	TemplateAnswer string          `json:"template_answer,omitempty"`
	Steps          []ExecutionStep `json:"steps"`
}

// Clone returns an independent copy of the plan. Plans handed out from the
// plan cache must be cloned so that concurrent requests never share one.
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	if p == nil {
		return nil
	}
	dup := *p
	dup.Steps = make([]ExecutionStep, len(p.Steps))
	copy(dup.Steps, p.Steps)
	return &dup
}

// HasTemplateAnswer reports whether the plan short-circuits to a canned reply.
func (p *ExecutionPlan) HasTemplateAnswer() bool {
	return p.TemplateAnswer != ""
}

// CostEstimate holds relative cost units for a plan. It is a diagnostic
// artifact only and must never influence which steps execute.
type CostEstimate struct {
	TimeUnits    float64 `json:"time_units"`
	MemoryUnits  float64 `json:"memory_units"`
	ComputeUnits float64 `json:"compute_units"`
}

// Add accumulates another estimate into this one.
func (c *CostEstimate) Add(other CostEstimate) {
	c.TimeUnits += other.TimeUnits
	c.MemoryUnits += other.MemoryUnits
	c.ComputeUnits += other.ComputeUnits
}

// ContextChunk is a retrieved passage with its provenance, used to ground
// generation.
type ContextChunk struct {
	Text      string  `json:"text"`
	SourceID  string  `json:"source_id"`
	Relevance float64 `json:"relevance_score"`
}

// Conversation roles recorded in history turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryTurn is one prior conversation message.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageDescription is the vision backend's output for an image.
type ImageDescription struct {
	Caption string   `json:"caption"`
	Tags    []string `json:"tags"`
}

// ExecutionResult is the outcome of executing a plan. Answer is never empty on
// the success path; the engine substitutes a fixed fallback message instead.
type ExecutionResult struct {
	Answer  string         `json:"answer"`
	Sources []string       `json:"sources"`
	Context []ContextChunk `json:"retrieved_context,omitempty"`
}

// Request is a single query handed to the runtime.
type Request struct {
	Query   string `json:"query"`
	UserID  string `json:"user_id,omitempty"`
	Image   []byte `json:"image,omitempty"`
	Explain bool   `json:"explain,omitempty"`
}

// HasImage reports whether the request carries image bytes. Image requests
// bypass intent classification entirely.
func (r Request) HasImage() bool {
	return len(r.Image) > 0
}

// Response is what the runtime returns to the caller. PlanExplanation is only
// populated when the request asked for it; it never alters execution.
type Response struct {
	Answer          string   `json:"answer"`
	Sources         []string `json:"sources"`
	PlanExplanation string   `json:"plan_explanation,omitempty"`
}
