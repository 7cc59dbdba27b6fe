package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// DecodeLenient unmarshals model output that is supposed to be a single JSON
// object but often is not quite. It tries, in order: the raw text, the text
// with markdown fences stripped, the first balanced JSON object found in the
// text, and finally that object with trailing commas removed. Anything the
// last stage cannot parse is a schema violation.
func DecodeLenient(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty model output", contractx.ErrSchemaViolation)
	}

	if json.Unmarshal([]byte(raw), v) == nil {
		return nil
	}

	stripped := stripFences(raw)
	if stripped != raw && json.Unmarshal([]byte(stripped), v) == nil {
		return nil
	}

	candidate := firstJSONObject(stripped)
	if candidate == "" {
		return fmt.Errorf("%w: no JSON object in model output", contractx.ErrSchemaViolation)
	}
	if json.Unmarshal([]byte(candidate), v) == nil {
		return nil
	}

	cleaned := removeTrailingCommas(candidate)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: unrepairable model output: %v", contractx.ErrSchemaViolation, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or nothing).
		first := strings.TrimSpace(s[:idx])
		if first == "" || strings.EqualFold(first, "json") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstJSONObject extracts the first brace-balanced object from the text,
// honoring strings and escapes so braces inside values do not count.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// removeTrailingCommas drops commas that sit directly before a closing brace
// or bracket, outside of strings.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
