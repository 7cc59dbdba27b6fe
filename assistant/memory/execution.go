package memory

import (
	"fmt"
	"time"
)

// ToolExecutionRecord is the audit entry kept for every tool call routed
// through the store, successful or not.
type ToolExecutionRecord struct {
	ID          string         `json:"id"`
	Tool        string         `json:"tool"`
	UserRequest string         `json:"user_request,omitempty"`
	Intent      string         `json:"intent,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	RawResult   map[string]any `json:"raw_result,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	Timestamp   time.Time      `json:"timestamp"`

	// ExtractedEntities holds the store keys of entities created or updated
	// by this execution, linking audit trail to memory.
	ExtractedEntities []string `json:"extracted_entities,omitempty"`
}

// AddExtractedEntity links an entity key to this record.
func (r *ToolExecutionRecord) AddExtractedEntity(key string) {
	for _, existing := range r.ExtractedEntities {
		if existing == key {
			return
		}
	}
	r.ExtractedEntities = append(r.ExtractedEntities, key)
}

// Recent reports whether the execution happened within the given window.
func (r *ToolExecutionRecord) Recent(now time.Time, window time.Duration) bool {
	return now.Sub(r.Timestamp) <= window
}

// Summary renders a one-line human description of the execution, suitable
// for confirmation messages and prompts.
func (r *ToolExecutionRecord) Summary() string {
	outcome := "succeeded"
	if !r.Success {
		outcome = "failed"
		if r.Error != "" {
			outcome = fmt.Sprintf("failed (%s)", r.Error)
		}
	}
	return fmt.Sprintf("%s %s in %dms at %s", r.Tool, outcome, r.DurationMs, r.Timestamp.Format(time.RFC3339))
}

// ExecutionQuery filters tool execution records. Zero-value fields match
// everything.
type ExecutionQuery struct {
	Tool      string
	Success   *bool
	Intent    string
	EntityKey string
	Within    time.Duration
}

// Matches reports whether the record satisfies every set criterion.
func (q ExecutionQuery) Matches(r *ToolExecutionRecord, now time.Time) bool {
	if q.Tool != "" && r.Tool != q.Tool {
		return false
	}
	if q.Success != nil && r.Success != *q.Success {
		return false
	}
	if q.Intent != "" && r.Intent != q.Intent {
		return false
	}
	if q.EntityKey != "" {
		found := false
		for _, key := range r.ExtractedEntities {
			if key == q.EntityKey {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Within > 0 && !r.Recent(now, q.Within) {
		return false
	}
	return true
}
