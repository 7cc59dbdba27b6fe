package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

func TestFallbackClassifyTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    contractx.Complexity
		tools   bool
	}{
		{"hello there", contractx.ComplexitySimple, false},
		{"thanks, that was great", contractx.ComplexitySimple, false},
		{"research the best note taking apps and compare them", contractx.ComplexityComplex, true},
		{"move my dentist appointment to friday", contractx.ComplexityFocused, true},
	}

	var f Fallback
	for _, tt := range tests {
		got, err := f.Classify(context.Background(), contractx.ClassifyRequest{
			Message: tt.message,
			Tools:   []contractx.ToolDescriptor{{Name: "google_calendar"}},
		})
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", tt.message, err)
		}
		if got.Complexity != tt.want {
			t.Fatalf("Classify(%q).Complexity = %s, want %s", tt.message, got.Complexity, tt.want)
		}
		if got.RequiresTools != tt.tools {
			t.Fatalf("Classify(%q).RequiresTools = %v, want %v", tt.message, got.RequiresTools, tt.tools)
		}
	}
}

func TestFallbackPlanShapes(t *testing.T) {
	t.Parallel()

	var f Fallback
	tests := []struct {
		complexity contractx.Complexity
		wantSteps  int
	}{
		{contractx.ComplexitySimple, 1},
		{contractx.ComplexityFocused, 2},
		{contractx.ComplexityComplex, 4},
	}

	for _, tt := range tests {
		p, err := f.Plan(context.Background(), contractx.PlanRequest{
			Classification: contractx.Classification{
				Complexity: tt.complexity,
				Intent:     "do the thing",
			},
			Tools: []contractx.ToolDescriptor{{Name: "tavily_search"}},
		})
		if err != nil {
			t.Fatalf("Plan(%s) error = %v", tt.complexity, err)
		}
		if len(p.Steps) != tt.wantSteps {
			t.Fatalf("Plan(%s) = %d steps, want %d", tt.complexity, len(p.Steps), tt.wantSteps)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("Plan(%s).Validate() error = %v", tt.complexity, err)
		}
	}
}

func TestFallbackPlanIsSequential(t *testing.T) {
	t.Parallel()

	var f Fallback
	p, err := f.Plan(context.Background(), contractx.PlanRequest{
		Classification: contractx.Classification{
			Complexity: contractx.ComplexityComplex,
			Intent:     "write a report",
		},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	for i, step := range p.Steps {
		if i == 0 {
			if len(step.Dependencies) != 0 {
				t.Fatalf("first step has dependencies %v", step.Dependencies)
			}
			continue
		}
		if len(step.Dependencies) != 1 || step.Dependencies[0] != p.Steps[i-1].ID {
			t.Fatalf("step %s dependencies = %v, want [%s]", step.ID, step.Dependencies, p.Steps[i-1].ID)
		}
	}
}

func TestFallbackEvaluateStep(t *testing.T) {
	t.Parallel()

	var f Fallback
	step := &planx.Step{ID: "step_1", Title: "Search", Tool: "tavily_search"}

	eval, err := f.EvaluateStep(context.Background(), contractx.EvaluateRequest{
		Step:        step,
		ToolResults: []contractx.ToolResult{{Tool: "tavily_search", Success: true}},
	})
	if err != nil {
		t.Fatalf("EvaluateStep() error = %v", err)
	}
	if !eval.Completed {
		t.Fatal("successful tool result should complete the step")
	}

	eval, err = f.EvaluateStep(context.Background(), contractx.EvaluateRequest{
		Step:        step,
		ToolResults: []contractx.ToolResult{{Tool: "tavily_search", Success: false, Error: "rate limited"}},
	})
	if err != nil {
		t.Fatalf("EvaluateStep() error = %v", err)
	}
	if eval.Completed {
		t.Fatal("failed tool result should not complete a tool step")
	}
	if !strings.Contains(eval.Summary, "rate limited") {
		t.Fatalf("summary %q should carry the tool error", eval.Summary)
	}

	eval, err = f.EvaluateStep(context.Background(), contractx.EvaluateRequest{
		Step: &planx.Step{ID: "step_2", Title: "Think"},
	})
	if err != nil {
		t.Fatalf("EvaluateStep() error = %v", err)
	}
	if !eval.Completed {
		t.Fatal("tool-less step should always complete")
	}
}

type failingReasoning struct{}

func (failingReasoning) Classify(context.Context, contractx.ClassifyRequest) (contractx.Classification, error) {
	return contractx.Classification{}, errors.New("model down")
}

func (failingReasoning) Plan(context.Context, contractx.PlanRequest) (*planx.Plan, error) {
	return nil, errors.New("model down")
}

func (failingReasoning) EvaluateStep(context.Context, contractx.EvaluateRequest) (contractx.StepEvaluation, error) {
	return contractx.StepEvaluation{}, errors.New("model down")
}

func (failingReasoning) Synthesize(context.Context, contractx.SynthesizeRequest) (string, error) {
	return "", errors.New("model down")
}

func TestResilientDegradesToFallback(t *testing.T) {
	t.Parallel()

	r := NewResilient(failingReasoning{})

	classification, err := r.Classify(context.Background(), contractx.ClassifyRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if classification.Complexity != contractx.ComplexitySimple {
		t.Fatalf("Classify() complexity = %s", classification.Complexity)
	}

	p, err := r.Plan(context.Background(), contractx.PlanRequest{
		Classification: classification,
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(p.Steps) == 0 {
		t.Fatal("fallback plan has no steps")
	}

	out, err := r.Synthesize(context.Background(), contractx.SynthesizeRequest{Goal: "g"})
	if err != nil || out == "" {
		t.Fatalf("Synthesize() = %q, %v", out, err)
	}
}

type invalidPlanReasoning struct {
	failingReasoning
}

func (invalidPlanReasoning) Plan(context.Context, contractx.PlanRequest) (*planx.Plan, error) {
	// A cycle the validator must reject.
	return planx.New("p1", "goal", []*planx.Step{
		{ID: "a", Title: "A", Dependencies: []string{"b"}},
		{ID: "b", Title: "B", Dependencies: []string{"a"}},
	}, time.Now()), nil
}

func TestResilientRejectsInvalidModelPlan(t *testing.T) {
	t.Parallel()

	r := NewResilient(invalidPlanReasoning{})
	p, err := r.Plan(context.Background(), contractx.PlanRequest{
		Classification: contractx.Classification{Complexity: contractx.ComplexityFocused, Intent: "g"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("resilient returned invalid plan: %v", err)
	}
	for _, step := range p.Steps {
		if step.ID == "a" || step.ID == "b" {
			t.Fatal("cyclic model plan was not replaced by fallback")
		}
	}
}
