package agentroute

import (
	"strings"
	"testing"
)

func TestClassifyIntent(t *testing.T) {
	classifier := NewIntentClassifier()

	cases := []struct {
		query string
		want  Intent
	}{
		{"Hello there", IntentSimpleGreeting},
		{"hi", IntentSimpleGreeting},
		{"good morning everyone", IntentSimpleGreeting},
		{"thanks a lot", IntentSimpleGreeting},
		{"bye for now", IntentSimpleGreeting},
		{"What is Docker?", IntentKnowledgeSearch},
		{"explain kubernetes networking", IntentKnowledgeSearch},
		{"how does git rebase work", IntentKnowledgeSearch},
		{"benefits of containers", IntentKnowledgeSearch},
		{"difference between tcp and udp", IntentKnowledgeSearch},
		{"summarize our conversation", IntentSummarization},
		{"give me the tldr", IntentSummarization},
		{"calculate 12*7", IntentCalculation},
		{"4+5", IntentCalculation},
		{"tell me something interesting please", IntentKnowledgeSearch},
		{"pancakes?", IntentKnowledgeSearch},
		{"ok", IntentUnknown},
		{"", IntentUnknown},
		{"   ", IntentUnknown},
	}

	for _, tc := range cases {
		got := classifier.Classify(tc.query)
		if got != tc.want {
			t.Errorf("Classify(%q) = %s, expected %s", tc.query, got, tc.want)
		}
	}
}

func TestClassifyGreetingBeatsQuestion(t *testing.T) {
	classifier := NewIntentClassifier()

	// A leading greeting wins even when question words follow.
	got := classifier.Classify("hello, how does this work?")
	if got != IntentSimpleGreeting {
		t.Errorf("Expected greeting to take priority, got %s", got)
	}
}

func TestBuildKnowledgePlan(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("What is Docker?", false)

	if plan.Intent != IntentKnowledgeSearch {
		t.Errorf("Expected knowledge_search intent, got %s", plan.Intent)
	}
	if !plan.UseRetrieval || !plan.UseGeneration {
		t.Errorf("Expected retrieval and generation enabled, got retrieval=%v generation=%v", plan.UseRetrieval, plan.UseGeneration)
	}
	if plan.HasTemplateAnswer() {
		t.Error("Knowledge plan should not carry a template answer")
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Capability != CapabilityRetrieval {
		t.Errorf("Expected retrieval before generation, got %s first", plan.Steps[0].Capability)
	}
	if plan.Steps[1].Capability != CapabilityGeneration {
		t.Errorf("Expected generation second, got %s", plan.Steps[1].Capability)
	}
}

func TestBuildGreetingPlan(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("Hello!", false)

	if !plan.HasTemplateAnswer() {
		t.Fatal("Expected a template answer for a plain greeting")
	}
	if plan.UseRetrieval || plan.UseGeneration || plan.UseVision {
		t.Error("Template plan must not enable any backend capability")
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Capability != CapabilityTemplate {
		t.Errorf("Expected a single template step, got %+v", plan.Steps)
	}
}

func TestBuildGreetingBuckets(t *testing.T) {
	builder := NewPlanBuilder(nil)

	cases := []struct {
		query string
		want  string
	}{
		{"hi there", templateGreeting},
		{"good evening", templateGreeting},
		{"thanks so much", templateThanks},
		{"goodbye", templateFarewell},
	}

	for _, tc := range cases {
		plan := builder.Build(tc.query, false)
		if plan.TemplateAnswer != tc.want {
			t.Errorf("Build(%q) template = %q, expected %q", tc.query, plan.TemplateAnswer, tc.want)
		}
	}
}

func TestBuildCalculationPlan(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("4+5", false)

	if plan.Intent != IntentCalculation {
		t.Fatalf("Expected calculation intent, got %s", plan.Intent)
	}
	if plan.TemplateAnswer != "4+5 = 9" {
		t.Errorf("Expected '4+5 = 9', got %q", plan.TemplateAnswer)
	}
}

func TestBuildCalculationResults(t *testing.T) {
	builder := NewPlanBuilder(nil)

	cases := []struct {
		query string
		want  string
	}{
		{"calculate 12*7", "12*7 = 84"},
		{"solve 100-58", "100-58 = 42"},
		{"compute 7/2", "7/2 = 3.5"},
	}

	for _, tc := range cases {
		plan := builder.Build(tc.query, false)
		if plan.TemplateAnswer != tc.want {
			t.Errorf("Build(%q) template = %q, expected %q", tc.query, plan.TemplateAnswer, tc.want)
		}
	}
}

func TestBuildDivisionByZeroFallsBack(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("calculate 5/0", false)

	if plan.Intent != IntentCalculation {
		t.Fatalf("Expected calculation intent, got %s", plan.Intent)
	}
	if plan.HasTemplateAnswer() {
		t.Errorf("Division by zero must not produce a template answer, got %q", plan.TemplateAnswer)
	}
	if !plan.UseGeneration {
		t.Error("Expected fallback to generation when arithmetic evaluation fails")
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Capability != CapabilityGeneration {
		t.Errorf("Expected a single generation step, got %+v", plan.Steps)
	}
}

func TestBuildCalculationWithoutExpression(t *testing.T) {
	builder := NewPlanBuilder(nil)

	// Keyword fires the intent but there is nothing to evaluate.
	plan := builder.Build("calculate my mortgage payments", false)

	if plan.Intent != IntentCalculation {
		t.Fatalf("Expected calculation intent, got %s", plan.Intent)
	}
	if plan.HasTemplateAnswer() {
		t.Error("No evaluable expression means no template answer")
	}
	if !plan.UseGeneration {
		t.Error("Expected generation fallback for unevaluable calculation")
	}
}

func TestBuildImagePlan(t *testing.T) {
	builder := NewPlanBuilder(nil)

	// Image requests skip classification even with question-like text.
	plan := builder.Build("what is this?", true)

	if plan.Intent != IntentImageAnalysis {
		t.Errorf("Expected image_analysis intent, got %s", plan.Intent)
	}
	if !plan.UseVision {
		t.Error("Expected vision enabled")
	}
	if plan.UseRetrieval || plan.UseGeneration {
		t.Error("Image plan must not enable retrieval or generation")
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Capability != CapabilityVision {
		t.Errorf("Expected a single vision step, got %+v", plan.Steps)
	}
}

func TestBuildSummarizationPlan(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("summarize our chat", false)

	if plan.Intent != IntentSummarization {
		t.Fatalf("Expected summarization intent, got %s", plan.Intent)
	}
	if plan.UseRetrieval {
		t.Error("Summarization must not enable retrieval")
	}
	if !plan.UseGeneration {
		t.Error("Summarization requires generation")
	}
}

func TestBuildUnknownPlan(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("ok", false)

	if plan.Intent != IntentUnknown {
		t.Fatalf("Expected unknown intent, got %s", plan.Intent)
	}
	if !plan.UseRetrieval || !plan.UseGeneration {
		t.Error("Unknown intent routes through retrieval and generation")
	}
}

func TestPlanClone(t *testing.T) {
	builder := NewPlanBuilder(nil)

	plan := builder.Build("What is Docker?", false)
	dup := plan.Clone()

	dup.Steps[0].Action = "mutated"
	dup.UseRetrieval = false

	if plan.Steps[0].Action == "mutated" {
		t.Error("Clone shares step storage with the original")
	}
	if !plan.UseRetrieval {
		t.Error("Clone mutation leaked into the original plan")
	}
}

func TestEvaluateArithmeticFormatting(t *testing.T) {
	answer, ok := evaluateArithmetic("please compute 10/4 now")
	if !ok {
		t.Fatal("Expected an evaluable expression")
	}
	if !strings.HasSuffix(answer, "= 2.5") {
		t.Errorf("Expected trailing '= 2.5', got %q", answer)
	}
}
