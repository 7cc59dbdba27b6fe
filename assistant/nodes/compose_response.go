package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

// ComposeResponse turns the run result into the user-facing reply. A failed
// or partially failed run still gets a best-effort answer that names every
// step that did not finish and why.
func ComposeResponse(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Result == nil {
		return GraphOutput{}, fmt.Errorf("%w: no execution result to respond with", contractx.ErrValidation)
	}
	result := in.Result

	var b strings.Builder
	if out := strings.TrimSpace(result.FinalOutput); out != "" {
		b.WriteString(out)
	} else if result.Status == planx.StatusCompleted {
		b.WriteString("Done.")
	} else {
		b.WriteString("I couldn't finish everything you asked for.")
	}

	if len(result.FailedSteps) > 0 {
		b.WriteString("\n\nSteps that failed:\n")
		for _, failed := range result.FailedSteps {
			fmt.Fprintf(&b, "- %s: %s\n", failed.Title, failed.Reason)
		}
	}
	if len(result.BlockedSteps) > 0 {
		b.WriteString("\n\nSteps that never became runnable:\n")
		for _, blocked := range result.BlockedSteps {
			fmt.Fprintf(&b, "- %s (waiting on: %s)\n", blocked.Title, strings.Join(blocked.UnmetDependencies, ", "))
		}
	}

	in.Reply = b.String()
	return GraphOutput{
		Reply:  in.Reply,
		PlanID: result.PlanID,
		Status: result.Status,
	}, nil
}
