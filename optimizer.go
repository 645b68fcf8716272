package agentroute

import "strings"

// questionMarkers gate the retrieval-trimming pass in Optimize.
var questionMarkers = []string{"?", "what", "how", "why"}

// PlanOptimizer applies cost-reduction rewrites to a built plan. Optimize is
// idempotent: running it twice yields the same plan as running it once.
type PlanOptimizer struct{}

// NewPlanOptimizer creates an optimizer with the default rewrite rules.
func NewPlanOptimizer() *PlanOptimizer {
	return &PlanOptimizer{}
}

// Optimize rewrites the plan in place and returns it.
//
// Rule 1: a plan carrying a template answer is collapsed to the template step
// alone; no backend capability survives.
//
// Rule 2: when the intent label carries no question marker and is shorter
// than three words, the retrieval flag is cleared. The step list is
// deliberately left alone: the flag is advisory metadata and execution
// follows the steps, so retrieval that the builder scheduled still runs.
// Rewriting the steps here would silently starve knowledge queries of
// context.
func (o *PlanOptimizer) Optimize(plan *ExecutionPlan) *ExecutionPlan {
	if plan == nil {
		return nil
	}

	if plan.HasTemplateAnswer() {
		plan.UseRetrieval = false
		plan.UseGeneration = false
		plan.UseVision = false
		plan.Steps = []ExecutionStep{
			{
				Action:     "return_template_answer",
				Capability: CapabilityTemplate,
				Rationale:  "query can be answered with a template",
			},
		}
		return plan
	}

	if !labelSuggestsQuestion(plan.Intent) && len(strings.Fields(string(plan.Intent))) < 3 {
		plan.UseRetrieval = false
	}

	return plan
}

func labelSuggestsQuestion(intent Intent) bool {
	label := strings.ToLower(string(intent))
	for _, marker := range questionMarkers {
		if strings.Contains(label, marker) {
			return true
		}
	}
	return false
}
