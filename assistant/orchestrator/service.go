// Package orchestrator wires classification, planning, execution, and
// memory persistence into the single entry point the application calls per
// user message.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	nodex "github.com/wilfredeveloper/mypa/assistant/nodes"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Orchestrator handles user messages for any number of sessions, running at
// most one orchestration per session at a time.
type Orchestrator struct {
	blobs     contractx.BlobStore
	reasoning contractx.ReasoningService
	invoker   contractx.ToolInvoker
	files     contractx.WorkspaceStore
	tools     []contractx.ToolDescriptor

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	mu       sync.Mutex
	sessions map[string]*sync.Mutex

	now func() time.Time
}

func New(
	blobs contractx.BlobStore,
	reasoning contractx.ReasoningService,
	invoker contractx.ToolInvoker,
	files contractx.WorkspaceStore,
	tools []contractx.ToolDescriptor,
) (*Orchestrator, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if reasoning == nil {
		return nil, errors.New("reasoning service is required")
	}
	if invoker == nil {
		return nil, errors.New("tool invoker is required")
	}
	if files == nil {
		return nil, errors.New("workspace store is required")
	}

	o := &Orchestrator{
		blobs:     blobs,
		reasoning: reasoning,
		invoker:   invoker,
		files:     files,
		tools:     tools,
		sessions:  make(map[string]*sync.Mutex),
		now:       time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs the full pipeline for one user message. Concurrent
// calls for the same session serialize; different sessions run in parallel.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (string, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.sessions[sessionID] = lock
	}
	return lock
}
