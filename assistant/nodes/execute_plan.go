package nodes

import (
	"context"
	"fmt"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	schedulerx "github.com/wilfredeveloper/mypa/assistant/scheduler"
	workspacex "github.com/wilfredeveloper/mypa/assistant/workspace"
)

// ExecutePlan runs the plan through the scheduler against a task-scoped
// workspace. Scheduler errors other than cancellation are swallowed into the
// result so the response node can still answer.
func ExecutePlan(
	ctx context.Context,
	in *GraphState,
	reasoning contractx.ReasoningService,
	invoker contractx.ToolInvoker,
	files contractx.WorkspaceStore,
) (*GraphState, error) {
	if in == nil || in.Plan == nil || in.Store == nil {
		return nil, fmt.Errorf("%w: plan and memory are required before execution", contractx.ErrValidation)
	}

	ws := workspacex.NewManager(files, in.TaskID)
	sched := schedulerx.New(reasoning, invoker, ws, in.Store)

	result, err := sched.Run(ctx, in.Plan, in.Text)
	if err != nil {
		return nil, fmt.Errorf("execute plan %q: %w", in.Plan.ID, err)
	}
	in.Result = result
	return in, nil
}
