package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

// Fallback is the deterministic reasoning service used when the model is
// unavailable or returns garbage. It is intentionally dull: keyword
// classification, template plans, and mechanical evaluation. It never errors.
type Fallback struct{}

var _ contractx.ReasoningService = Fallback{}

var greetingWords = []string{
	"hi", "hello", "hey", "thanks", "thank you", "good morning",
	"good afternoon", "good evening", "how are you",
}

var researchWords = []string{
	"research", "analyze", "analyse", "compare", "comprehensive",
	"investigate", "report on", "deep dive", "summarize everything",
}

func (Fallback) Classify(_ context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	message := strings.ToLower(strings.TrimSpace(req.Message))

	for _, word := range greetingWords {
		if message == word || strings.HasPrefix(message, word+" ") || strings.HasPrefix(message, word+",") {
			return contractx.Classification{
				Complexity:     contractx.ComplexitySimple,
				Category:       "conversation",
				Intent:         req.Message,
				RequiresTools:  false,
				EstimatedSteps: 1,
				Reasoning:      "greeting keywords",
			}, nil
		}
	}

	for _, word := range researchWords {
		if strings.Contains(message, word) {
			return contractx.Classification{
				Complexity:     contractx.ComplexityComplex,
				Category:       "research",
				Intent:         req.Message,
				RequiresTools:  true,
				EstimatedSteps: 6,
				Reasoning:      "research keywords",
			}, nil
		}
	}

	return contractx.Classification{
		Complexity:     contractx.ComplexityFocused,
		Category:       "task",
		Intent:         req.Message,
		RequiresTools:  len(req.Tools) > 0,
		EstimatedSteps: 3,
		Reasoning:      "default tier",
	}, nil
}

func (Fallback) Plan(_ context.Context, req contractx.PlanRequest) (*planx.Plan, error) {
	goal := strings.TrimSpace(req.Classification.Intent)
	if goal == "" {
		goal = "Handle the user's request"
	}

	searchTool := pickTool(req.Tools, "tavily_search")

	var steps []*planx.Step
	switch req.Classification.Complexity {
	case contractx.ComplexitySimple:
		steps = []*planx.Step{
			{ID: "step_1", Title: "Respond to the user", Description: goal, EstimatedMinutes: 1},
		}
	case contractx.ComplexityComplex:
		steps = []*planx.Step{
			{ID: "step_1", Title: "Gather sources", Description: "Search for material relevant to: " + goal,
				Tool: searchTool, ToolParameters: map[string]any{"query": goal}, EstimatedMinutes: 5},
			{ID: "step_2", Title: "Collect details", Description: "Follow up on the most promising sources",
				Tool: searchTool, ToolParameters: map[string]any{"query": goal + " details"}, EstimatedMinutes: 5},
			{ID: "step_3", Title: "Organize findings", Description: "Structure what was gathered", EstimatedMinutes: 5},
			{ID: "step_4", Title: "Write the deliverable", Description: "Produce the final answer for: " + goal, EstimatedMinutes: 10},
		}
	default:
		steps = []*planx.Step{
			{ID: "step_1", Title: "Gather what the task needs", Description: goal,
				Tool: searchTool, ToolParameters: map[string]any{"query": goal}, EstimatedMinutes: 3},
			{ID: "step_2", Title: "Complete the task", Description: "Finish and report: " + goal, EstimatedMinutes: 3},
		}
	}

	p := planx.New(uuid.NewString(), goal, planx.Chain(steps), time.Now().UTC())
	p.SuccessCriteria = "the user's request is addressed"
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("build fallback plan: %w", err)
	}
	return p, nil
}

// pickTool returns preferred when the catalogue offers it, otherwise the
// first catalogued tool, otherwise empty (a no-tool reasoning step).
func pickTool(tools []contractx.ToolDescriptor, preferred string) string {
	for _, t := range tools {
		if t.Name == preferred {
			return t.Name
		}
	}
	if len(tools) > 0 {
		return tools[0].Name
	}
	return ""
}

func (Fallback) EvaluateStep(_ context.Context, req contractx.EvaluateRequest) (contractx.StepEvaluation, error) {
	if req.Step == nil {
		return contractx.StepEvaluation{Summary: "no step to evaluate"}, nil
	}

	if !req.Step.RequiresTool() {
		return contractx.StepEvaluation{
			Completed: true,
			Summary:   fmt.Sprintf("%s completed without tools", req.Step.Title),
		}, nil
	}

	for _, result := range req.ToolResults {
		if result.Success {
			return contractx.StepEvaluation{
				Completed: true,
				Summary:   fmt.Sprintf("%s completed via %s", req.Step.Title, result.Tool),
			}, nil
		}
	}

	reason := "tool call failed"
	if len(req.ToolResults) > 0 && req.ToolResults[len(req.ToolResults)-1].Error != "" {
		reason = req.ToolResults[len(req.ToolResults)-1].Error
	}
	return contractx.StepEvaluation{
		Completed: false,
		Summary:   fmt.Sprintf("%s not completed: %s", req.Step.Title, reason),
	}, nil
}

func (Fallback) Synthesize(_ context.Context, req contractx.SynthesizeRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", strings.TrimSpace(req.Goal))

	if len(req.Research) == 0 {
		b.WriteString("The task finished, but no research findings were collected.\n")
	} else {
		b.WriteString("Findings:\n\n")
		for _, finding := range req.Research {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(finding))
		}
	}

	if snapshot := strings.TrimSpace(req.WorkspaceSnapshot); snapshot != "" {
		b.WriteString("\n---\n\n")
		b.WriteString(snapshot)
		b.WriteString("\n")
	}
	return b.String(), nil
}
