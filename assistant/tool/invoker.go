package tool

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// LocalInvoker dispatches tool calls through an in-process registry. It is
// the contract.ToolInvoker used in tests and in deployments where tool
// backends are linked in directly.
type LocalInvoker struct {
	registry *Registry
}

var _ contractx.ToolInvoker = (*LocalInvoker)(nil)

func NewLocalInvoker(registry *Registry) *LocalInvoker {
	return &LocalInvoker{registry: registry}
}

func (i *LocalInvoker) Execute(ctx context.Context, tool string, parameters map[string]any) (map[string]any, error) {
	handler, err := i.registry.Lookup(tool)
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool, err)
	}

	started := time.Now()
	result, err := handler(ctx, parameters)
	elapsed := time.Since(started)

	if err != nil {
		log.Warn().Err(err).Str("tool", tool).Dur("elapsed", elapsed).Msg("tool execution failed")
		var te *contractx.ToolError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool, err)
	}

	log.Debug().Str("tool", tool).Dur("elapsed", elapsed).Msg("tool executed")
	return result, nil
}
