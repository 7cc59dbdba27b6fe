package reasoning

import (
	"errors"
	"testing"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

type decoded struct {
	Goal  string   `json:"goal"`
	Steps []string `json:"steps"`
}

func TestDecodeLenientStrictJSON(t *testing.T) {
	t.Parallel()

	var out decoded
	if err := DecodeLenient(`{"goal":"g","steps":["a"]}`, &out); err != nil {
		t.Fatalf("DecodeLenient() error = %v", err)
	}
	if out.Goal != "g" || len(out.Steps) != 1 {
		t.Fatalf("decoded = %+v", out)
	}
}

func TestDecodeLenientMarkdownFences(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"goal\":\"g\"}\n```"
	var out decoded
	if err := DecodeLenient(raw, &out); err != nil {
		t.Fatalf("DecodeLenient() error = %v", err)
	}
	if out.Goal != "g" {
		t.Fatalf("decoded goal = %q", out.Goal)
	}
}

func TestDecodeLenientProseAroundObject(t *testing.T) {
	t.Parallel()

	raw := `Sure! Here is the plan you asked for:
{"goal":"write report","steps":["draft","review"]}
Let me know if you need changes.`
	var out decoded
	if err := DecodeLenient(raw, &out); err != nil {
		t.Fatalf("DecodeLenient() error = %v", err)
	}
	if out.Goal != "write report" || len(out.Steps) != 2 {
		t.Fatalf("decoded = %+v", out)
	}
}

func TestDecodeLenientTrailingCommas(t *testing.T) {
	t.Parallel()

	raw := `{"goal":"g","steps":["a","b",],}`
	var out decoded
	if err := DecodeLenient(raw, &out); err != nil {
		t.Fatalf("DecodeLenient() error = %v", err)
	}
	if len(out.Steps) != 2 {
		t.Fatalf("steps = %v", out.Steps)
	}
}

func TestDecodeLenientBracesInsideStrings(t *testing.T) {
	t.Parallel()

	raw := `noise {"goal":"use {curly} braces","steps":[]} trailing`
	var out decoded
	if err := DecodeLenient(raw, &out); err != nil {
		t.Fatalf("DecodeLenient() error = %v", err)
	}
	if out.Goal != "use {curly} braces" {
		t.Fatalf("decoded goal = %q", out.Goal)
	}
}

func TestDecodeLenientUnrepairable(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "no json here", `{"goal": unquoted}`} {
		var out decoded
		err := DecodeLenient(raw, &out)
		if !errors.Is(err, contractx.ErrSchemaViolation) {
			t.Fatalf("DecodeLenient(%q) error = %v, want ErrSchemaViolation", raw, err)
		}
	}
}
