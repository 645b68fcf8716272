package agentroute

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// Fixed template replies for greeting-type requests, selected by keyword
// bucket.
const (
	templateGreeting = "Hello! How can I help you today? Ask me a question or send me an image."
	templateThanks   = "You're welcome! Let me know if you need anything else."
	templateFarewell = "Goodbye! Come back anytime you need help."
)

// arithmeticPattern bounds what the calculation path will ever evaluate: a
// single integer-operator-integer expression. Anything outside this shape is
// ignored rather than handed to a general-purpose evaluator.
var arithmeticPattern = regexp.MustCompile(`(\d+)([+\-*/])(\d+)`)

// PlanBuilder turns request text plus modality flags into an ordered
// execution plan.
type PlanBuilder struct {
	classifier *IntentClassifier
}

// NewPlanBuilder creates a builder backed by the given classifier.
func NewPlanBuilder(classifier *IntentClassifier) *PlanBuilder {
	if classifier == nil {
		classifier = NewIntentClassifier()
	}
	return &PlanBuilder{classifier: classifier}
}

// Build produces the execution plan for a request.
//
// Image requests never pass through intent classification or the text
// capability table: they get a fixed vision-only plan regardless of any
// accompanying text. Image handling is a separate, simpler path, not a
// fallback.
func (b *PlanBuilder) Build(text string, hasImage bool) *ExecutionPlan {
	if hasImage {
		return &ExecutionPlan{
			Intent:    IntentImageAnalysis,
			UseVision: true,
			Steps: []ExecutionStep{
				{
					Action:     "analyze_image",
					Capability: CapabilityVision,
					Rationale:  "image analysis requested",
				},
			},
		}
	}

	intent := b.classifier.Classify(text)

	plan := &ExecutionPlan{Intent: intent}
	switch intent {
	case IntentKnowledgeSearch, IntentUnknown:
		plan.UseRetrieval = true
		plan.UseGeneration = true
	case IntentSimpleGreeting, IntentCalculation:
		// Candidates for a template answer; generation only if that fails.
	default:
		plan.UseGeneration = true
	}

	// Zero-backend answer, when possible. Only greetings and calculations
	// qualify.
	if answer, ok := b.templateAnswer(text, intent); ok {
		plan.TemplateAnswer = answer
		plan.UseRetrieval = false
		plan.UseGeneration = false
		plan.Steps = []ExecutionStep{
			{
				Action:     "return_template_answer",
				Capability: CapabilityTemplate,
				Rationale:  "query can be answered with a template",
			},
		}
		return plan
	}

	// A greeting or calculation that produced no template still needs an
	// answer from somewhere.
	if intent == IntentSimpleGreeting || intent == IntentCalculation {
		plan.UseGeneration = true
	}

	if plan.UseRetrieval {
		plan.Steps = append(plan.Steps, ExecutionStep{
			Action:     "search_knowledge_base",
			Capability: CapabilityRetrieval,
			Rationale:  "knowledge retrieval needed",
		})
	}
	if plan.UseGeneration {
		plan.Steps = append(plan.Steps, ExecutionStep{
			Action:     "generate_response",
			Capability: CapabilityGeneration,
			Rationale:  "natural language generation needed",
		})
	}

	return plan
}

// templateAnswer attempts a zero-model answer for the given intent.
func (b *PlanBuilder) templateAnswer(text string, intent Intent) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))

	switch intent {
	case IntentSimpleGreeting:
		switch {
		case containsAny(lowered, "hi", "hello", "hey", "good"):
			return templateGreeting, true
		case containsAny(lowered, "thank", "thanks", "thx"):
			return templateThanks, true
		case containsAny(lowered, "bye", "goodbye", "see you"):
			return templateFarewell, true
		}
	case IntentCalculation:
		if answer, ok := evaluateArithmetic(text); ok {
			return answer, true
		}
	}

	return "", false
}

// evaluateArithmetic extracts the first <int><op><int> sub-expression from
// the text and evaluates it. Division by zero and anything that fails to
// parse yield no answer, letting the plan fall through to generation.
func evaluateArithmetic(text string) (string, bool) {
	match := arithmeticPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	expr, op, right := match[0], match[2], match[3]

	if op == "/" {
		if d, err := strconv.Atoi(right); err != nil || d == 0 {
			return "", false
		}
	}

	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return "", false
	}
	value, err := evaluable.Evaluate(nil)
	if err != nil {
		return "", false
	}
	result, ok := value.(float64)
	if !ok {
		return "", false
	}

	return expr + " = " + strconv.FormatFloat(result, 'f', -1, 64), true
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
