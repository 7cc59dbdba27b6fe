// Package scheduler walks a plan step by step: dependency gating, tool
// dispatch, evaluation, retries, jumps, and early completion.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	"github.com/wilfredeveloper/mypa/assistant/memory"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
	resolvex "github.com/wilfredeveloper/mypa/assistant/resolve"
	workspacex "github.com/wilfredeveloper/mypa/assistant/workspace"
)

// maxStepRetries is how many extra attempts a failing step gets before it is
// marked failed and skipped.
const maxStepRetries = 2

var ErrNilPlan = errors.New("plan is nil")

// Scheduler executes one plan at a time. It is not safe for concurrent use;
// the orchestrator serializes runs per session.
type Scheduler struct {
	reasoning contractx.ReasoningService
	invoker   contractx.ToolInvoker
	workspace *workspacex.Manager
	store     *memory.Store
	resolver  *resolvex.Resolver
	now       func() time.Time
}

func New(
	reasoning contractx.ReasoningService,
	invoker contractx.ToolInvoker,
	ws *workspacex.Manager,
	store *memory.Store,
) *Scheduler {
	return &Scheduler{
		reasoning: reasoning,
		invoker:   invoker,
		workspace: ws,
		store:     store,
		resolver:  resolvex.New(store),
		now:       time.Now,
	}
}

// WithClock injects the time source, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// Run executes the plan until it completes, fails, deadlocks, or the context
// is canceled. The user message rides along for reference resolution.
func (s *Scheduler) Run(ctx context.Context, p *planx.Plan, userMessage string) (*Result, error) {
	if p == nil {
		return nil, ErrNilPlan
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("plan %q not runnable: %w", p.ID, err)
	}

	p.Status = planx.StatusExecuting
	if err := s.workspace.InitializePlan(ctx, p); err != nil {
		log.Warn().Err(err).Str("plan_id", p.ID).Msg("workspace initialization failed, continuing without persistence")
	}

	result := &Result{PlanID: p.ID, Status: planx.StatusExecuting}
	completed := p.CompletedIDs()
	cursor := 0

	for {
		if err := ctx.Err(); err != nil {
			p.Status = planx.StatusFailed
			result.Status = planx.StatusFailed
			return result, fmt.Errorf("plan %q interrupted: %w", p.ID, err)
		}

		stepIdx := s.nextRunnable(p, cursor, completed)
		if stepIdx < 0 {
			if !s.hasPending(p) {
				break
			}
			// Pending steps exist but none can run: deadlock.
			s.recordDeadlock(p, completed, result)
			break
		}
		cursor = stepIdx
		step := p.Steps[stepIdx]

		evaluation := s.runStep(ctx, p, step, stepIdx, userMessage)

		if evaluation.Completed {
			step.Status = planx.StepCompleted
			step.Summary = evaluation.Summary
			step.CompletedAt = s.now().UTC()
			completed[step.ID] = true
			result.CompletedSteps = append(result.CompletedSteps, step.ID)
			s.workspace.RecordStepTransition(ctx, p, step, evaluation.Summary)
			for _, update := range evaluation.WorkspaceUpdates {
				s.workspace.AppendResearch(ctx, update)
			}

			if evaluation.PlanComplete {
				result.FinalOutput = evaluation.FinalOutput
				break
			}
			cursor = s.applyJump(p, stepIdx+1, evaluation.NextStepID)
			continue
		}

		// Not completed: retry in place until the budget runs out, then
		// mark failed and move on so one bad step cannot wedge the plan.
		step.RetryCount++
		if step.RetryCount <= maxStepRetries {
			log.Info().Str("plan_id", p.ID).Str("step_id", step.ID).Int("attempt", step.RetryCount+1).Msg("retrying step")
			s.workspace.RecordStepTransition(ctx, p, step, fmt.Sprintf("retry %d: %s", step.RetryCount, evaluation.Summary))
			continue
		}

		step.Status = planx.StepFailed
		step.Summary = evaluation.Summary
		result.FailedSteps = append(result.FailedSteps, FailedStep{
			ID:     step.ID,
			Title:  step.Title,
			Reason: evaluation.Summary,
		})
		s.workspace.RecordStepTransition(ctx, p, step, "failed after retries: "+evaluation.Summary)
		cursor = stepIdx + 1
	}

	s.finish(ctx, p, result)
	return result, nil
}

// runStep performs one attempt: tool dispatch when the step needs it, then
// evaluation of the outcome.
func (s *Scheduler) runStep(ctx context.Context, p *planx.Plan, step *planx.Step, stepIdx int, userMessage string) contractx.StepEvaluation {
	if step.Status != planx.StepInProgress {
		step.Status = planx.StepInProgress
		s.workspace.RecordStepTransition(ctx, p, step, "")
	}

	var toolResults []contractx.ToolResult
	if step.RequiresTool() {
		toolResults = append(toolResults, s.invokeTool(ctx, step, userMessage))
	}

	evaluation, err := s.reasoning.EvaluateStep(ctx, contractx.EvaluateRequest{
		Step: step,
		PlanContext: contractx.PlanContext{
			Goal:            p.Goal,
			SuccessCriteria: p.SuccessCriteria,
			TotalSteps:      len(p.Steps),
			StepIndex:       stepIdx,
		},
		ToolResults:       toolResults,
		WorkspaceSnapshot: s.workspace.Snapshot(ctx),
	})
	if err != nil {
		// The resilient service never errors; a bare LLM service might.
		// Fall back to the mechanical verdict.
		log.Warn().Err(err).Str("step_id", step.ID).Msg("evaluation errored, using mechanical verdict")
		evaluation = mechanicalVerdict(step, toolResults)
	}
	return evaluation
}

func mechanicalVerdict(step *planx.Step, toolResults []contractx.ToolResult) contractx.StepEvaluation {
	if !step.RequiresTool() {
		return contractx.StepEvaluation{Completed: true, Summary: step.Title + " completed"}
	}
	for _, tr := range toolResults {
		if tr.Success {
			return contractx.StepEvaluation{Completed: true, Summary: step.Title + " completed via " + tr.Tool}
		}
	}
	return contractx.StepEvaluation{Completed: false, Summary: step.Title + " tool call failed"}
}

// invokeTool resolves the step's parameters against memory, executes the
// tool, and feeds the outcome back into the memory store.
func (s *Scheduler) invokeTool(ctx context.Context, step *planx.Step, userMessage string) contractx.ToolResult {
	params := s.resolver.EnhanceToolParameters(step.Tool, step.ToolParameters, userMessage)
	if provenance, ok := params["_context_info"]; ok {
		log.Debug().Str("step_id", step.ID).Interface("context_info", provenance).Msg("tool parameters enhanced from memory")
		delete(params, "_context_info")
	}

	started := s.now()
	output, err := s.invoker.Execute(ctx, step.Tool, params)
	elapsed := s.now().Sub(started)

	tr := contractx.ToolResult{
		Tool:       step.Tool,
		Parameters: params,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  started.UTC(),
	}

	var raw map[string]any
	if err != nil {
		tr.Success = false
		tr.Error = err.Error()
		raw = map[string]any{"success": false, "error": err.Error()}
		log.Warn().Err(err).Str("tool", step.Tool).Str("kind", string(contractx.ToolErrorKindOf(err))).Msg("tool invocation failed")
	} else {
		tr.Success = true
		if _, wrapped := output["success"]; wrapped {
			raw = output
		} else {
			raw = map[string]any{"success": true, "result": output}
		}
		tr.Output = raw
	}

	s.store.ProcessToolExecution(step.Tool, userMessage, step.Title, params, raw, elapsed, tr.Success, tr.Error)
	return tr
}

// nextRunnable scans forward from the cursor (wrapping once) for a pending
// step whose dependencies are all completed.
func (s *Scheduler) nextRunnable(p *planx.Plan, cursor int, completed map[string]bool) int {
	n := len(p.Steps)
	for offset := 0; offset < n; offset++ {
		idx := (cursor + offset) % n
		step := p.Steps[idx]
		if step.Status == planx.StepCompleted || step.Status == planx.StepFailed {
			continue
		}
		if step.DependenciesMet(completed) {
			return idx
		}
	}
	return -1
}

func (s *Scheduler) hasPending(p *planx.Plan) bool {
	for _, step := range p.Steps {
		if step.Status != planx.StepCompleted && step.Status != planx.StepFailed {
			return true
		}
	}
	return false
}

// applyJump honors an evaluator-requested jump; unknown targets fall back to
// the linear successor.
func (s *Scheduler) applyJump(p *planx.Plan, linear int, nextStepID string) int {
	nextStepID = strings.TrimSpace(nextStepID)
	if nextStepID == "" {
		return linear
	}
	if idx := p.IndexOf(nextStepID); idx >= 0 {
		log.Info().Str("plan_id", p.ID).Str("next_step_id", nextStepID).Msg("evaluator requested jump")
		return idx
	}
	log.Warn().Str("plan_id", p.ID).Str("next_step_id", nextStepID).Msg("evaluator requested unknown step, continuing in order")
	return linear
}

// recordDeadlock marks every still-pending step blocked and fails the plan.
func (s *Scheduler) recordDeadlock(p *planx.Plan, completed map[string]bool, result *Result) {
	for _, step := range p.Steps {
		if step.Status == planx.StepCompleted || step.Status == planx.StepFailed {
			continue
		}
		unmet := step.UnmetDependencies(completed)
		result.BlockedSteps = append(result.BlockedSteps, BlockedStep{
			ID:                step.ID,
			Title:             step.Title,
			UnmetDependencies: unmet,
		})
		log.Error().Str("plan_id", p.ID).Str("step_id", step.ID).Strs("unmet", unmet).Msg("step blocked, plan deadlocked")
	}
}

// finish settles plan status, research, and the final output.
func (s *Scheduler) finish(ctx context.Context, p *planx.Plan, result *Result) {
	result.Research = s.workspace.Findings()

	if len(result.FailedSteps) == 0 && len(result.BlockedSteps) == 0 {
		p.Status = planx.StatusCompleted
	} else {
		p.Status = planx.StatusFailed
	}
	result.Status = p.Status

	if result.FinalOutput == "" && p.Status == planx.StatusCompleted {
		final, err := s.reasoning.Synthesize(ctx, contractx.SynthesizeRequest{
			Goal:              p.Goal,
			WorkspaceSnapshot: s.workspace.Snapshot(ctx),
			Research:          result.Research,
		})
		if err != nil {
			log.Warn().Err(err).Str("plan_id", p.ID).Msg("synthesis failed, leaving final output empty")
		} else {
			result.FinalOutput = final
		}
	}

	if result.FinalOutput != "" {
		if err := s.workspace.WriteFinalOutput(ctx, result.FinalOutput); err != nil {
			log.Warn().Err(err).Str("plan_id", p.ID).Msg("failed to persist final output")
		}
	}
}
