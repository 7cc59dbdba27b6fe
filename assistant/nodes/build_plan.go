package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// BuildPlan asks the reasoning service for an executable plan. The resilient
// service guarantees a validated plan comes back; this node still re-checks
// because the scheduler refuses unvalidated plans.
func BuildPlan(ctx context.Context, in *GraphState, reasoning contractx.ReasoningService, tools []contractx.ToolDescriptor) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	p, err := reasoning.Plan(ctx, contractx.PlanRequest{
		Classification: in.Classification,
		Tools:          tools,
	})
	if err != nil {
		return nil, fmt.Errorf("build plan for session %q: %w", in.SessionID, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: plan for session %q: %v", contractx.ErrValidation, in.SessionID, err)
	}

	log.Info().
		Str("session_id", in.SessionID).
		Str("plan_id", p.ID).
		Int("steps", len(p.Steps)).
		Msg("plan built")

	in.Plan = p
	in.TaskID = p.ID
	return in, nil
}
