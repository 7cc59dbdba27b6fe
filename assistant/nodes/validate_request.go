// Package nodes holds the pipeline state and the individual node functions
// the orchestrator graph is composed from.
package nodes

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	"github.com/wilfredeveloper/mypa/assistant/memory"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
	schedulerx "github.com/wilfredeveloper/mypa/assistant/scheduler"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply  string
	PlanID string
	Status planx.Status
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time
	TaskID    string

	Store          *memory.Store
	Classification contractx.Classification
	Plan           *planx.Plan
	Result         *schedulerx.Result

	Reply string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
