package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

const gatewayMaxResponseBytes = 2 << 20

// GatewayConfig configures the HTTP tool gateway client.
type GatewayConfig struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"30s"`
}

// GatewayInvoker forwards tool calls to an external gateway service that
// owns the real integrations (calendar, mail, search). One POST per call,
// bearer-authenticated, JSON in and out.
type GatewayInvoker struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ contractx.ToolInvoker = (*GatewayInvoker)(nil)

func NewGatewayInvoker(cfg GatewayConfig) (*GatewayInvoker, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("tool gateway url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tool gateway url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("tool gateway token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GatewayInvoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type gatewayRequest struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type gatewayResponse struct {
	Result map[string]any `json:"result"`
	Error  string         `json:"error,omitempty"`
}

func (g *GatewayInvoker) Execute(ctx context.Context, tool string, parameters map[string]any) (map[string]any, error) {
	body, err := json.Marshal(gatewayRequest{Tool: tool, Parameters: parameters})
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool,
			fmt.Errorf("marshal gateway request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/execute", bytes.NewReader(body))
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool,
			fmt.Errorf("build gateway request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool,
			fmt.Errorf("execute gateway request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, gatewayMaxResponseBytes))
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool,
			fmt.Errorf("read gateway response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, contractx.NewToolError(contractx.ToolErrorAuthorization, tool,
			fmt.Errorf("gateway status=%d body=%s", resp.StatusCode, raw))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, contractx.NewToolError(contractx.ToolErrorRateLimit, tool,
			fmt.Errorf("gateway status=%d body=%s", resp.StatusCode, raw))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool,
			fmt.Errorf("gateway status=%d body=%s", resp.StatusCode, raw))
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool,
			fmt.Errorf("decode gateway response: %w", err))
	}
	if parsed.Error != "" {
		return nil, contractx.NewToolError(contractx.ToolErrorExecution, tool, errors.New(parsed.Error))
	}
	return parsed.Result, nil
}
