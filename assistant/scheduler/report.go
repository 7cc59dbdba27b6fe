package scheduler

import (
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

// FailedStep records why a step ended failed after its retries ran out.
type FailedStep struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// BlockedStep records a step that never became runnable, with the
// dependencies that kept it blocked.
type BlockedStep struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	UnmetDependencies []string `json:"unmet_dependencies"`
}

// Result is the outcome of one plan run.
type Result struct {
	PlanID         string        `json:"plan_id"`
	Status         planx.Status  `json:"status"`
	FinalOutput    string        `json:"final_output,omitempty"`
	CompletedSteps []string      `json:"completed_steps,omitempty"`
	FailedSteps    []FailedStep  `json:"failed_steps,omitempty"`
	BlockedSteps   []BlockedStep `json:"blocked_steps,omitempty"`
	Research       []string      `json:"research,omitempty"`
}

// Succeeded reports whether every step completed.
func (r *Result) Succeeded() bool {
	return r.Status == planx.StatusCompleted && len(r.FailedSteps) == 0 && len(r.BlockedSteps) == 0
}
