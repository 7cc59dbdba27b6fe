package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle of a whole plan. A plan reaches a terminal state
// (completed or failed) exactly once.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepStatus is the lifecycle of a single step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

var (
	ErrEmptyPlan     = errors.New("plan has no steps")
	ErrNilStep       = errors.New("step is nil")
	ErrEmptyStepID   = errors.New("step id is empty")
	ErrDuplicateStep = errors.New("duplicate step id")
	ErrCyclicDeps    = errors.New("cyclic step dependencies")
)

// Step is one unit of planned work, optionally bound to a single tool call.
type Step struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Tool             string         `json:"tool,omitempty"`
	ToolParameters   map[string]any `json:"tool_parameters,omitempty"`
	EstimatedMinutes int            `json:"estimated_minutes,omitempty"`
	Dependencies     []string       `json:"dependencies,omitempty"`
	Status           StepStatus     `json:"status"`
	RetryCount       int            `json:"retry_count,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	CompletedAt      time.Time      `json:"completed_at,omitzero"`
}

// RequiresTool reports whether this step is bound to a tool call.
func (s *Step) RequiresTool() bool {
	return s != nil && strings.TrimSpace(s.Tool) != ""
}

// DependenciesMet reports whether every declared dependency is in completed.
func (s *Step) DependenciesMet(completed map[string]bool) bool {
	if s == nil {
		return false
	}
	for _, dep := range s.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// UnmetDependencies returns the declared dependencies not in completed.
func (s *Step) UnmetDependencies(completed map[string]bool) []string {
	if s == nil {
		return nil
	}
	var unmet []string
	for _, dep := range s.Dependencies {
		if !completed[dep] {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// Plan is an ordered, dependency-annotated collection of steps. A Plan owns
// its Steps exclusively.
type Plan struct {
	ID                    string    `json:"id"`
	Goal                  string    `json:"goal"`
	Steps                 []*Step   `json:"steps"`
	SuccessCriteria       string    `json:"success_criteria,omitempty"`
	TotalEstimatedMinutes int       `json:"total_estimated_minutes,omitempty"`
	Status                Status    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

// New constructs an executable plan from steps, defaulting step statuses and
// the time estimate.
func New(id, goal string, steps []*Step, now time.Time) *Plan {
	total := 0
	for _, s := range steps {
		if s == nil {
			continue
		}
		if s.Status == "" {
			s.Status = StepPending
		}
		total += s.EstimatedMinutes
	}
	return &Plan{
		ID:                    id,
		Goal:                  goal,
		Steps:                 steps,
		TotalEstimatedMinutes: total,
		Status:                StatusPlanning,
		CreatedAt:             now.UTC(),
	}
}

// StepByID returns the step with the given id.
func (p *Plan) StepByID(id string) (*Step, bool) {
	if p == nil {
		return nil, false
	}
	for _, s := range p.Steps {
		if s != nil && s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// IndexOf returns the position of the step with the given id, or -1.
func (p *Plan) IndexOf(id string) int {
	if p == nil {
		return -1
	}
	for i, s := range p.Steps {
		if s != nil && s.ID == id {
			return i
		}
	}
	return -1
}

// CompletedIDs returns the set of completed step ids.
func (p *Plan) CompletedIDs() map[string]bool {
	done := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s != nil && s.Status == StepCompleted {
			done[s.ID] = true
		}
	}
	return done
}

// Validate checks structural soundness: at least one step, unique non-empty
// step ids, and no dependency cycles. Dependencies on unknown step ids are
// allowed here; the scheduler reports them as a deadlock at run time.
func (p *Plan) Validate() error {
	if p == nil || len(p.Steps) == 0 {
		return ErrEmptyPlan
	}

	seen := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s == nil {
			return ErrNilStep
		}
		if strings.TrimSpace(s.ID) == "" {
			return ErrEmptyStepID
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID)
		}
		seen[s.ID] = true
	}

	if cycle := p.findCycle(); len(cycle) > 0 {
		return fmt.Errorf("%w: %s", ErrCyclicDeps, strings.Join(cycle, " -> "))
	}
	return nil
}

// findCycle runs a colored depth-first search over the dependency edges that
// reference known steps. Returns one cycle path, or nil.
func (p *Plan) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(p.Steps))
	var cycle []string

	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		color[id] = gray
		step, ok := p.StepByID(id)
		if !ok {
			color[id] = black
			return false
		}
		for _, dep := range step.Dependencies {
			if _, known := p.StepByID(dep); !known {
				continue
			}
			switch color[dep] {
			case gray:
				cycle = append(append([]string{}, path...), id, dep)
				return true
			case white:
				if visit(dep, append(path, id)) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, s := range p.Steps {
		if color[s.ID] == white {
			if visit(s.ID, nil) {
				return cycle
			}
		}
	}
	return nil
}

// Chain rewrites dependencies to the default strictly sequential form:
// step i depends on step i-1.
func Chain(steps []*Step) []*Step {
	for i, s := range steps {
		if s == nil {
			continue
		}
		if i == 0 {
			s.Dependencies = nil
			continue
		}
		s.Dependencies = []string{steps[i-1].ID}
	}
	return steps
}
