package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	"github.com/wilfredeveloper/mypa/assistant/memory"
	"github.com/wilfredeveloper/mypa/assistant/orchestrator"
	promptx "github.com/wilfredeveloper/mypa/assistant/prompt"
	"github.com/wilfredeveloper/mypa/assistant/reasoning"
	toolx "github.com/wilfredeveloper/mypa/assistant/tool"
	workspacex "github.com/wilfredeveloper/mypa/assistant/workspace"
	configx "github.com/wilfredeveloper/mypa/pkg/config"
	_ "github.com/wilfredeveloper/mypa/pkg/logger/autoload"
	openrouterx "github.com/wilfredeveloper/mypa/pkg/openrouter"
)

type AppConfig struct {
	SessionID string `envconfig:"SESSION_ID" default:"local-session"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("")

	reasoningService := buildReasoning(ctx)
	blobs := buildBlobStore()
	files := buildWorkspaceStore(ctx)
	invoker, descriptors := buildTools()

	o, err := orchestrator.New(blobs, reasoningService, invoker, files, descriptors)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	fmt.Println("personal assistant ready; type a message, ctrl-d to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		reply, err := o.HandleMessage(ctx, appCfg.SessionID, text)
		if err != nil {
			log.Error().Err(err).Msg("message handling failed")
			continue
		}
		fmt.Println(reply)
	}
}

// buildReasoning wires the model-backed service when OpenRouter credentials
// are present, and runs fallback-only otherwise.
func buildReasoning(ctx context.Context) contractx.ReasoningService {
	openRouterCfg, err := configx.New[openrouterx.Config]("OPENROUTER")
	if err != nil {
		log.Warn().Err(err).Msg("openrouter not configured, reasoning runs in fallback mode")
		return reasoning.NewResilient(nil)
	}

	// Preflight the configured model with the raw SDK client. A miss is
	// only logged; the resilient wrapper degrades per call anyway.
	if client := openrouterx.NewClient(*openRouterCfg); client != nil {
		if _, pingErr := client.Models.Get(ctx, openRouterCfg.Model); pingErr != nil {
			log.Warn().Err(pingErr).Str("model", openRouterCfg.Model).
				Msg("configured model not reachable on openrouter")
		}
	}

	chatModel, err := openRouterCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("openrouter model unavailable, reasoning runs in fallback mode")
		return reasoning.NewResilient(nil)
	}

	llm, err := reasoning.NewLLMService(ctx, chatModel, promptx.LoadPromptSet())
	if err != nil {
		log.Warn().Err(err).Msg("reasoning graphs failed to compile, running in fallback mode")
		return reasoning.NewResilient(nil)
	}
	return reasoning.NewResilient(llm)
}

// buildBlobStore prefers Upstash Redis for memory snapshots and degrades to
// process-local storage.
func buildBlobStore() contractx.BlobStore {
	redisCfg, err := configx.New[memory.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Warn().Err(err).Msg("upstash redis not configured, memory snapshots are process-local")
		return memory.NewLocalBlobStore()
	}
	store, err := memory.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Warn().Err(err).Msg("upstash redis store rejected config, memory snapshots are process-local")
		return memory.NewLocalBlobStore()
	}
	return store
}

// buildWorkspaceStore prefers Postgres so task workspaces survive restarts.
func buildWorkspaceStore(ctx context.Context) contractx.WorkspaceStore {
	pgCfg, err := configx.New[workspacex.PostgresConfig]("WORKSPACE_POSTGRES")
	if err != nil {
		log.Warn().Err(err).Msg("postgres not configured, workspaces are process-local")
		return workspacex.NewMemoryStore()
	}
	store, err := workspacex.NewPostgresStore(ctx, *pgCfg)
	if err != nil {
		log.Warn().Err(err).Msg("postgres unreachable, workspaces are process-local")
		return workspacex.NewMemoryStore()
	}
	if err := store.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("workspace schema setup failed, workspaces are process-local")
		return workspacex.NewMemoryStore()
	}
	return store
}

// buildTools routes through the HTTP tool gateway when configured. Without
// one, the standard catalogue is registered with unavailable handlers so
// plans still classify and report cleanly.
func buildTools() (contractx.ToolInvoker, []contractx.ToolDescriptor) {
	gwCfg, err := configx.New[toolx.GatewayConfig]("TOOL_GATEWAY")
	if err == nil {
		gw, gwErr := toolx.NewGatewayInvoker(*gwCfg)
		if gwErr == nil {
			return gw, toolx.DefaultDescriptors()
		}
		log.Warn().Err(gwErr).Msg("tool gateway rejected config, tools run unavailable")
	} else {
		log.Warn().Err(err).Msg("tool gateway not configured, tools run unavailable")
	}

	registry := toolx.NewRegistry()
	for _, desc := range toolx.DefaultDescriptors() {
		registry.MustRegister(desc, func(context.Context, map[string]any) (map[string]any, error) {
			return nil, contractx.NewToolError(contractx.ToolErrorExecution, desc.Name,
				fmt.Errorf("tool %s has no backend configured", desc.Name))
		})
	}
	return toolx.NewLocalInvoker(registry), registry.Descriptors()
}
