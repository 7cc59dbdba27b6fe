package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

func echoHandler(ctx context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{"success": true, "params": params}, nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(contractx.ToolDescriptor{Name: "echo"}, echoHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	handler, err := r.Lookup("echo")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	out, err := handler(context.Background(), map[string]any{"x": 1})
	if err != nil || out["success"] != true {
		t.Fatalf("handler() = %v, %v", out, err)
	}
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(contractx.ToolDescriptor{Name: "  "}, echoHandler); err == nil {
		t.Fatal("blank name accepted")
	}
	if err := r.Register(contractx.ToolDescriptor{Name: "echo"}, nil); err == nil {
		t.Fatal("nil handler accepted")
	}
	if err := r.Register(contractx.ToolDescriptor{Name: "echo"}, echoHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(contractx.ToolDescriptor{Name: "echo"}, echoHandler); err == nil {
		t.Fatal("duplicate registration accepted")
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Lookup("nope"); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Lookup(nope) error = %v, want ErrUnknownTool", err)
	}
}

func TestLocalInvokerWrapsErrors(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(contractx.ToolDescriptor{Name: "boom"}, func(context.Context, map[string]any) (map[string]any, error) {
		return nil, errors.New("backend exploded")
	})
	r.MustRegister(contractx.ToolDescriptor{Name: "denied"}, func(context.Context, map[string]any) (map[string]any, error) {
		return nil, contractx.NewToolError(contractx.ToolErrorAuthorization, "denied", errors.New("no token"))
	})

	invoker := NewLocalInvoker(r)

	_, err := invoker.Execute(context.Background(), "boom", nil)
	if contractx.ToolErrorKindOf(err) != contractx.ToolErrorExecution {
		t.Fatalf("plain error kind = %s, want execution", contractx.ToolErrorKindOf(err))
	}

	_, err = invoker.Execute(context.Background(), "denied", nil)
	if contractx.ToolErrorKindOf(err) != contractx.ToolErrorAuthorization {
		t.Fatalf("authorization error kind = %s", contractx.ToolErrorKindOf(err))
	}

	_, err = invoker.Execute(context.Background(), "missing", nil)
	if err == nil || contractx.ToolErrorKindOf(err) != contractx.ToolErrorExecution {
		t.Fatalf("unknown tool error = %v", err)
	}
}

func TestGatewayInvokerSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/v1/execute" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("authorization = %q", got)
		}
		var req gatewayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Tool != "tavily_search" {
			t.Errorf("tool = %q", req.Tool)
		}
		fmt.Fprint(w, `{"result":{"success":true,"result":{"results":[]}}}`)
	}))
	t.Cleanup(server.Close)

	gw, err := NewGatewayInvoker(GatewayConfig{URL: server.URL, Token: "token"})
	if err != nil {
		t.Fatalf("NewGatewayInvoker() error = %v", err)
	}

	out, err := gw.Execute(context.Background(), "tavily_search", map[string]any{"query": "go"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["success"] != true {
		t.Fatalf("result = %v", out)
	}
}

func TestGatewayInvokerStatusKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   contractx.ToolErrorKind
	}{
		{http.StatusUnauthorized, contractx.ToolErrorAuthorization},
		{http.StatusForbidden, contractx.ToolErrorAuthorization},
		{http.StatusTooManyRequests, contractx.ToolErrorRateLimit},
		{http.StatusBadGateway, contractx.ToolErrorExecution},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		gw, err := NewGatewayInvoker(GatewayConfig{URL: server.URL, Token: "token"})
		if err != nil {
			t.Fatalf("NewGatewayInvoker() error = %v", err)
		}
		_, err = gw.Execute(context.Background(), "gmail", nil)
		if contractx.ToolErrorKindOf(err) != tt.want {
			t.Fatalf("status %d kind = %s, want %s", tt.status, contractx.ToolErrorKindOf(err), tt.want)
		}
		server.Close()
	}
}

func TestGatewayInvokerConfigValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewGatewayInvoker(GatewayConfig{URL: "", Token: "t"}); err == nil {
		t.Fatal("empty url accepted")
	}
	if _, err := NewGatewayInvoker(GatewayConfig{URL: "not a url", Token: "t"}); err == nil {
		t.Fatal("invalid url accepted")
	}
	if _, err := NewGatewayInvoker(GatewayConfig{URL: "https://gateway.local", Token: " "}); err == nil {
		t.Fatal("blank token accepted")
	}
}
