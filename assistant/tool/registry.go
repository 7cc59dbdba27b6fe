// Package tool holds the explicit tool registry and the invokers that route
// plan steps to real tool backends.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// Tool names known to the assistant.
const (
	ToolGoogleCalendar = "google_calendar"
	ToolGmail          = "gmail"
	ToolTavilySearch   = "tavily_search"
	ToolGoogleDrive    = "google_drive"
)

var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one tool call and returns its raw result map.
type Handler func(ctx context.Context, params map[string]any) (map[string]any, error)

// Registry is an explicit name-to-handler table. Registration is eager and
// validated up front; a plan step naming an unregistered tool fails fast at
// lookup, never at dispatch time deep in the scheduler.
type Registry struct {
	handlers    map[string]Handler
	descriptors []contractx.ToolDescriptor
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a tool. Blank names, nil handlers, and duplicates are
// programming errors and rejected immediately.
func (r *Registry) Register(desc contractx.ToolDescriptor, handler Handler) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if handler == nil {
		return fmt.Errorf("%w: handler for tool %q is nil", contractx.ErrValidation, name)
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: tool %q registered twice", contractx.ErrValidation, name)
	}
	r.handlers[name] = handler
	desc.Name = name
	r.descriptors = append(r.descriptors, desc)
	return nil
}

// MustRegister is Register for wiring code where a failure is fatal.
func (r *Registry) MustRegister(desc contractx.ToolDescriptor, handler Handler) {
	if err := r.Register(desc, handler); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for a tool name.
func (r *Registry) Lookup(name string) (Handler, error) {
	handler, ok := r.handlers[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return handler, nil
}

// Has reports whether the tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[strings.TrimSpace(name)]
	return ok
}

// Descriptors returns the catalogue handed to the reasoning service, in
// registration order.
func (r *Registry) Descriptors() []contractx.ToolDescriptor {
	return append([]contractx.ToolDescriptor(nil), r.descriptors...)
}

// DefaultDescriptors describes the assistant's standard tool surface.
func DefaultDescriptors() []contractx.ToolDescriptor {
	return []contractx.ToolDescriptor{
		{
			Name:        ToolGoogleCalendar,
			Description: "Query, create, update, and delete Google Calendar events.",
			Schema: map[string]any{
				"action":   "query_events | create_event | update_event | delete_event",
				"event_id": "id of an existing event, for update and delete",
				"summary":  "event title, for create and update",
				"start":    "RFC3339 start time",
				"end":      "RFC3339 end time",
			},
		},
		{
			Name:        ToolGmail,
			Description: "Search, read, and send email.",
			Schema: map[string]any{
				"action":     "search | read | send",
				"query":      "search query",
				"message_id": "id of an existing message, for read",
				"to":         "recipient address, for send",
				"subject":    "subject line, for send",
				"body":       "message body, for send",
			},
		},
		{
			Name:        ToolTavilySearch,
			Description: "Search the web and return ranked results with content snippets.",
			Schema: map[string]any{
				"query":       "search query",
				"max_results": "how many results to return, default 5",
			},
		},
		{
			Name:        ToolGoogleDrive,
			Description: "List, read, and create documents in Google Drive.",
			Schema: map[string]any{
				"action":      "list | read | create",
				"document_id": "id of an existing document, for read",
				"title":       "document title, for create",
				"content":     "document body, for create",
			},
		},
	}
}
