package agentroute

import (
	"fmt"
	"strings"
)

// Per-capability cost table. Values are relative units calibrated so that
// template < retrieval < vision <= generation; they feed diagnostics only.
var capabilityCosts = map[Capability]CostEstimate{
	CapabilityTemplate:   {TimeUnits: 0.001, MemoryUnits: 0, ComputeUnits: 0.1},
	CapabilityRetrieval:  {TimeUnits: 0.05, MemoryUnits: 50, ComputeUnits: 1.0},
	CapabilityGeneration: {TimeUnits: 3.0, MemoryUnits: 2000, ComputeUnits: 10.0},
	CapabilityVision:     {TimeUnits: 2.0, MemoryUnits: 1000, ComputeUnits: 8.0},
}

// CostModel estimates relative plan cost and renders human-readable plan
// explanations. Estimates never change what a plan does.
type CostModel struct{}

// NewCostModel creates a cost model with the built-in capability table.
func NewCostModel() *CostModel {
	return &CostModel{}
}

// Estimate sums the cost of every step in the plan. An empty plan costs
// nothing.
func (m *CostModel) Estimate(plan *ExecutionPlan) CostEstimate {
	var total CostEstimate
	if plan == nil {
		return total
	}
	for _, step := range plan.Steps {
		total.Add(capabilityCosts[step.Capability])
	}
	return total
}

// Explain renders a plan and its cost estimate as display text for callers
// that asked to see the routing decision.
func (m *CostModel) Explain(plan *ExecutionPlan) string {
	if plan == nil {
		return ""
	}

	cost := m.Estimate(plan)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query Intent: %s\n", titleCaseIntent(plan.Intent))
	fmt.Fprintf(&sb, "Strategy: %s\n", strategyLabel(plan))
	sb.WriteString("Steps:\n")
	for i, step := range plan.Steps {
		fmt.Fprintf(&sb, "  %d. %s (%s)\n", i+1, step.Action, step.Rationale)
	}
	fmt.Fprintf(&sb, "Estimated time: %.2fs, compute: %.1f units", cost.TimeUnits, cost.ComputeUnits)
	return sb.String()
}

func strategyLabel(plan *ExecutionPlan) string {
	switch {
	case plan.HasTemplateAnswer():
		return "instant template response"
	case plan.UseVision:
		return "image analysis"
	case plan.UseRetrieval && plan.UseGeneration:
		return "knowledge retrieval + generation"
	case plan.UseGeneration:
		return "direct generation"
	default:
		return "no-op"
	}
}

// titleCaseIntent turns "knowledge_search" into "Knowledge Search" for
// display.
func titleCaseIntent(intent Intent) string {
	words := strings.Split(string(intent), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
