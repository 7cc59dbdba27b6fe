package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	"github.com/wilfredeveloper/mypa/assistant/memory"
)

// historyLimit bounds how many past requests the classifier sees.
const historyLimit = 5

// ClassifyIntent assigns the message its execution tier.
func ClassifyIntent(ctx context.Context, in *GraphState, reasoning contractx.ReasoningService, tools []contractx.ToolDescriptor) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	classification, err := reasoning.Classify(ctx, contractx.ClassifyRequest{
		Message: in.Text,
		History: recentRequests(in.Store, historyLimit),
		Tools:   tools,
	})
	if err != nil {
		return nil, fmt.Errorf("classify message for session %q: %w", in.SessionID, err)
	}

	log.Info().
		Str("session_id", in.SessionID).
		Str("complexity", string(classification.Complexity)).
		Str("category", classification.Category).
		Bool("requires_tools", classification.RequiresTools).
		Msg("message classified")

	in.Classification = classification
	return in, nil
}

// recentRequests returns the distinct user requests behind the session's
// latest tool executions, oldest first.
func recentRequests(store *memory.Store, limit int) []string {
	if store == nil {
		return nil
	}

	seen := make(map[string]bool)
	var history []string
	for _, record := range store.RecentExecutions("", 0) {
		request := strings.TrimSpace(record.UserRequest)
		if request == "" || seen[request] {
			continue
		}
		seen[request] = true
		history = append(history, request)
		if len(history) >= limit {
			break
		}
	}

	// RecentExecutions is newest first; the classifier reads history in
	// conversation order.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history
}
