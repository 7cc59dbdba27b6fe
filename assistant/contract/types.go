package contract

import (
	"time"

	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

// Complexity is the execution tier assigned to a user message.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityFocused Complexity = "focused"
	ComplexityComplex Complexity = "complex"
)

// Classification is the reasoning service's verdict about a user message.
type Classification struct {
	Complexity     Complexity `json:"complexity_level"`
	Category       string     `json:"task_category"`
	Intent         string     `json:"user_intent"`
	RequiresTools  bool       `json:"requires_tools"`
	EstimatedSteps int        `json:"estimated_steps"`
	Reasoning      string     `json:"reasoning,omitempty"`
}

// ToolDescriptor summarizes one tool for the reasoning service.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// ClassifyRequest carries the message plus recent history and the tool
// catalogue into intent classification.
type ClassifyRequest struct {
	Message string           `json:"message"`
	History []string         `json:"history,omitempty"`
	Tools   []ToolDescriptor `json:"tools,omitempty"`
}

// PlanRequest asks the reasoning service to build a plan for a classified
// message.
type PlanRequest struct {
	Classification Classification   `json:"classification"`
	Tools          []ToolDescriptor `json:"tools,omitempty"`
}

// ToolResult is the recorded outcome of one tool invocation.
type ToolResult struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

// PlanContext is the slice of plan state the evaluator needs.
type PlanContext struct {
	Goal            string `json:"goal"`
	SuccessCriteria string `json:"success_criteria,omitempty"`
	TotalSteps      int    `json:"total_steps"`
	StepIndex       int    `json:"step_index"`
}

// EvaluateRequest asks the reasoning service whether a step is done.
type EvaluateRequest struct {
	Step              *planx.Step  `json:"step"`
	PlanContext       PlanContext  `json:"plan_context"`
	ToolResults       []ToolResult `json:"tool_results,omitempty"`
	WorkspaceSnapshot string       `json:"workspace_snapshot,omitempty"`
}

// StepEvaluation is the evaluator's verdict on one step attempt. NextStepID
// requests a non-linear jump; PlanComplete short-circuits the remaining plan
// with FinalOutput as the synthesized result.
type StepEvaluation struct {
	Completed        bool     `json:"todo_completed"`
	Summary          string   `json:"execution_summary"`
	NextStepID       string   `json:"next_step_id,omitempty"`
	PlanComplete     bool     `json:"plan_complete,omitempty"`
	FinalOutput      string   `json:"final_output,omitempty"`
	WorkspaceUpdates []string `json:"workspace_updates,omitempty"`
}

// SynthesizeRequest asks for a final report over collected research.
type SynthesizeRequest struct {
	Goal              string   `json:"goal"`
	WorkspaceSnapshot string   `json:"workspace_snapshot,omitempty"`
	Research          []string `json:"research,omitempty"`
}
