package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/wilfredeveloper/mypa/assistant/nodes"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_memory",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadMemory(ctx, in, o.blobs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_memory: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, o.reasoning, o.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("build_plan",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildPlan(ctx, in, o.reasoning, o.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_plan: %w", err)
	}

	if err := graph.AddLambdaNode("execute_plan",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExecutePlan(ctx, in, o.reasoning, o.invoker, o.files)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_plan: %w", err)
	}

	if err := graph.AddLambdaNode("save_memory",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveMemory(ctx, in, o.blobs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_memory: %w", err)
	}

	if err := graph.AddLambdaNode("compose_response",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.ComposeResponse(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node compose_response: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_memory"},
		{"load_memory", "classify_intent"},
		{"classify_intent", "build_plan"},
		{"build_plan", "execute_plan"},
		{"execute_plan", "save_memory"},
		{"save_memory", "compose_response"},
		{"compose_response", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
