package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrBlobNotFound    = errors.New("blob not found")
	ErrFileNotFound    = errors.New("workspace file not found")
)

// ToolErrorKind categorizes tool invocation failures so callers can choose
// retry/skip/fail deliberately.
type ToolErrorKind string

const (
	ToolErrorAuthorization ToolErrorKind = "authorization"
	ToolErrorRateLimit     ToolErrorKind = "rate_limit"
	ToolErrorExecution     ToolErrorKind = "execution"
)

// ToolError wraps a tool invocation failure with its kind and tool name.
type ToolError struct {
	Kind ToolErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed (%s): %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewToolError wraps err as a ToolError of the given kind.
func NewToolError(kind ToolErrorKind, tool string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Err: err}
}

// ToolErrorKindOf extracts the kind from err, defaulting to execution when
// err is not a ToolError.
func ToolErrorKindOf(err error) ToolErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ToolErrorExecution
}
