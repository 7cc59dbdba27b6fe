// Package reasoning implements the model-backed oracle behind planning and
// evaluation, plus the deterministic fallback that keeps the pipeline alive
// when the model misbehaves.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
	promptx "github.com/wilfredeveloper/mypa/assistant/prompt"
)

// plannerOutput is the wire shape the planner prompt asks the model for.
type plannerOutput struct {
	Goal                  string       `json:"goal"`
	Steps                 []plannerStep `json:"steps"`
	SuccessCriteria       []string     `json:"success_criteria,omitempty"`
	TotalEstimatedMinutes int          `json:"total_estimated_minutes,omitempty"`
}

type plannerStep struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Tool             string         `json:"tool,omitempty"`
	ToolParameters   map[string]any `json:"tool_parameters,omitempty"`
	EstimatedMinutes int            `json:"estimated_minutes,omitempty"`
	Dependencies     []string       `json:"dependencies,omitempty"`
}

type synthesizerOutput struct {
	FinalOutput string `json:"final_output"`
}

// LLMService is the model-backed ReasoningService. Each call runs a compiled
// prompt/model/parse graph.
type LLMService struct {
	classifier  compose.Runnable[map[string]any, contractx.Classification]
	planner     compose.Runnable[map[string]any, plannerOutput]
	evaluator   compose.Runnable[map[string]any, contractx.StepEvaluation]
	synthesizer compose.Runnable[map[string]any, synthesizerOutput]
	now         func() time.Time
}

var _ contractx.ReasoningService = (*LLMService)(nil)

// NewLLMService compiles the four reasoning graphs against one chat model.
func NewLLMService(ctx context.Context, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*LLMService, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	for name, text := range map[string]string{
		"classifier":  prompts.Classifier,
		"planner":     prompts.Planner,
		"evaluator":   prompts.Evaluator,
		"synthesizer": prompts.Synthesizer,
	} {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: %s prompt is empty", contractx.ErrPromptMissing, name)
		}
	}

	classifier, err := compileStructuredLLMGraph[contractx.Classification](ctx, chatModel, prompts.Classifier, "reasoning.classifier_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	planner, err := compileStructuredLLMGraph[plannerOutput](ctx, chatModel, prompts.Planner, "reasoning.planner_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile planner graph: %v", contractx.ErrModelInvoke, err)
	}
	evaluator, err := compileStructuredLLMGraph[contractx.StepEvaluation](ctx, chatModel, prompts.Evaluator, "reasoning.evaluator_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile evaluator graph: %v", contractx.ErrModelInvoke, err)
	}
	synthesizer, err := compileStructuredLLMGraph[synthesizerOutput](ctx, chatModel, prompts.Synthesizer, "reasoning.synthesizer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile synthesizer graph: %v", contractx.ErrModelInvoke, err)
	}

	return &LLMService{
		classifier:  classifier,
		planner:     planner,
		evaluator:   evaluator,
		synthesizer: synthesizer,
		now:         time.Now,
	}, nil
}

func invokeStructured[T any](ctx context.Context, runner compose.Runnable[map[string]any, T], payload any, call string) (T, error) {
	var zero T
	input, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("%w: marshal %s payload: %v", contractx.ErrValidation, call, err)
	}
	out, err := runner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		return zero, fmt.Errorf("%w: %s invoke: %v", contractx.ErrModelInvoke, call, err)
	}
	return out, nil
}

func (s *LLMService) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	out, err := invokeStructured(ctx, s.classifier, req, "classifier")
	if err != nil {
		return contractx.Classification{}, err
	}

	switch out.Complexity {
	case contractx.ComplexitySimple, contractx.ComplexityFocused, contractx.ComplexityComplex:
	default:
		return contractx.Classification{}, fmt.Errorf("%w: unknown complexity %q", contractx.ErrSchemaViolation, out.Complexity)
	}
	if strings.TrimSpace(out.Intent) == "" {
		out.Intent = req.Message
	}
	if out.EstimatedSteps <= 0 {
		out.EstimatedSteps = 1
	}
	return out, nil
}

func (s *LLMService) Plan(ctx context.Context, req contractx.PlanRequest) (*planx.Plan, error) {
	out, err := invokeStructured(ctx, s.planner, req, "planner")
	if err != nil {
		return nil, err
	}

	goal := strings.TrimSpace(out.Goal)
	if goal == "" {
		goal = strings.TrimSpace(req.Classification.Intent)
	}

	steps := make([]*planx.Step, 0, len(out.Steps))
	for _, raw := range out.Steps {
		steps = append(steps, &planx.Step{
			ID:               strings.TrimSpace(raw.ID),
			Title:            strings.TrimSpace(raw.Title),
			Description:      raw.Description,
			Tool:             strings.TrimSpace(raw.Tool),
			ToolParameters:   raw.ToolParameters,
			EstimatedMinutes: raw.EstimatedMinutes,
			Dependencies:     raw.Dependencies,
		})
	}

	p := planx.New(uuid.NewString(), goal, steps, s.now().UTC())
	p.SuccessCriteria = strings.Join(out.SuccessCriteria, "; ")
	p.TotalEstimatedMinutes = out.TotalEstimatedMinutes
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: model plan rejected: %v", contractx.ErrSchemaViolation, err)
	}
	return p, nil
}

func (s *LLMService) EvaluateStep(ctx context.Context, req contractx.EvaluateRequest) (contractx.StepEvaluation, error) {
	if req.Step == nil {
		return contractx.StepEvaluation{}, fmt.Errorf("%w: step is required", contractx.ErrValidation)
	}
	out, err := invokeStructured(ctx, s.evaluator, req, "evaluator")
	if err != nil {
		return contractx.StepEvaluation{}, err
	}
	if strings.TrimSpace(out.Summary) == "" {
		return contractx.StepEvaluation{}, fmt.Errorf("%w: execution_summary is empty", contractx.ErrSchemaViolation)
	}
	if out.PlanComplete && strings.TrimSpace(out.FinalOutput) == "" {
		return contractx.StepEvaluation{}, fmt.Errorf("%w: final_output required when plan_complete is set", contractx.ErrSchemaViolation)
	}
	return out, nil
}

func (s *LLMService) Synthesize(ctx context.Context, req contractx.SynthesizeRequest) (string, error) {
	out, err := invokeStructured(ctx, s.synthesizer, req, "synthesizer")
	if err != nil {
		return "", err
	}
	final := strings.TrimSpace(out.FinalOutput)
	if final == "" {
		return "", fmt.Errorf("%w: final_output is empty", contractx.ErrSchemaViolation)
	}
	return final, nil
}
