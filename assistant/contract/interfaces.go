package contract

import (
	"context"

	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

// ReasoningService is the external oracle that classifies intent, builds
// plans, evaluates step completion, and synthesizes final output. Production
// implementations wrap an LLM; every call has a deterministic local fallback
// so none of them may fail the pipeline.
type ReasoningService interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
	Plan(ctx context.Context, req PlanRequest) (*planx.Plan, error)
	EvaluateStep(ctx context.Context, req EvaluateRequest) (StepEvaluation, error)
	Synthesize(ctx context.Context, req SynthesizeRequest) (string, error)
}

// ToolInvoker executes a named tool. Failures carry a ToolError kind so the
// scheduler records them as failed tool results rather than scheduler faults.
type ToolInvoker interface {
	Execute(ctx context.Context, tool string, parameters map[string]any) (map[string]any, error)
}

// WorkspaceStore holds named text blobs scoped per task. The scheduler only
// needs read+update after initial creation.
type WorkspaceStore interface {
	Create(ctx context.Context, taskID, name, content string) error
	Read(ctx context.Context, taskID, name string) (string, error)
	Update(ctx context.Context, taskID, name, content string) error
	Delete(ctx context.Context, taskID, name string) error
	List(ctx context.Context, taskID string) ([]string, error)
}

// BlobStore persists entity-memory snapshots, one keyed blob per session.
type BlobStore interface {
	Get(ctx context.Context, sessionID string) ([]byte, error)
	Put(ctx context.Context, sessionID string, blob []byte) error
	Delete(ctx context.Context, sessionID string) error
}
