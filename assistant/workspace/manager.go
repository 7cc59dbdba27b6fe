package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

const (
	PlanFile     = "plan.md"
	ResearchFile = "research.md"
	FinalFile    = "final_output.md"
)

// Manager maintains one task's workspace files. It is not safe for
// concurrent use; each task runs on a single scheduler goroutine.
type Manager struct {
	store  contractx.WorkspaceStore
	taskID string
	now    func() time.Time

	executionLog []string
	findings     []string
}

func NewManager(store contractx.WorkspaceStore, taskID string) *Manager {
	return &Manager{store: store, taskID: taskID, now: time.Now}
}

// WithClock injects the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// TaskID returns the task this workspace belongs to.
func (m *Manager) TaskID() string { return m.taskID }

func statusMarker(status planx.StepStatus) string {
	switch status {
	case planx.StepCompleted:
		return "[x]"
	case planx.StepInProgress:
		return "[~]"
	case planx.StepFailed:
		return "[!]"
	default:
		return "[ ]"
	}
}

func (m *Manager) renderPlan(p *planx.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task Plan\n\n**Goal:** %s\n\n**Status:** %s\n\n", p.Goal, p.Status)

	if criteria := strings.TrimSpace(p.SuccessCriteria); criteria != "" {
		fmt.Fprintf(&b, "## Success Criteria\n\n%s\n\n", criteria)
	}

	b.WriteString("## Steps\n\n")
	for _, step := range p.Steps {
		fmt.Fprintf(&b, "- %s %s: %s", statusMarker(step.Status), step.ID, step.Title)
		if step.Tool != "" {
			fmt.Fprintf(&b, " (tool: %s)", step.Tool)
		}
		b.WriteString("\n")
		if summary := strings.TrimSpace(step.Summary); summary != "" {
			fmt.Fprintf(&b, "  - %s\n", summary)
		}
	}

	if len(m.executionLog) > 0 {
		b.WriteString("\n## Execution Log\n\n")
		for _, entry := range m.executionLog {
			fmt.Fprintf(&b, "- %s\n", entry)
		}
	}
	return b.String()
}

// InitializePlan writes the initial plan file for a fresh task.
func (m *Manager) InitializePlan(ctx context.Context, p *planx.Plan) error {
	if err := m.store.Create(ctx, m.taskID, PlanFile, m.renderPlan(p)); err != nil {
		return fmt.Errorf("initialize plan workspace for task %q: %w", m.taskID, err)
	}
	return nil
}

// RecordStepTransition rewrites the plan file after a step status change and
// appends a log entry. Workspace writes are best-effort: a storage failure
// is logged, never propagated, so the scheduler keeps running.
func (m *Manager) RecordStepTransition(ctx context.Context, p *planx.Plan, step *planx.Step, note string) {
	entry := fmt.Sprintf("%s %s -> %s", m.now().UTC().Format(time.RFC3339), step.ID, step.Status)
	if note = strings.TrimSpace(note); note != "" {
		entry += ": " + note
	}
	m.executionLog = append(m.executionLog, entry)

	if err := m.writeFile(ctx, PlanFile, m.renderPlan(p)); err != nil {
		log.Warn().Err(err).Str("task_id", m.taskID).Str("step_id", step.ID).Msg("failed to persist plan transition")
	}
}

// AppendResearch adds a finding (with optional sources) to the research file
// and remembers it for synthesis.
func (m *Manager) AppendResearch(ctx context.Context, finding string, sources ...string) {
	finding = strings.TrimSpace(finding)
	if finding == "" {
		return
	}
	m.findings = append(m.findings, finding)

	var b strings.Builder
	fmt.Fprintf(&b, "## Finding %d\n\n%s\n", len(m.findings), finding)
	if len(sources) > 0 {
		b.WriteString("\nSources:\n")
		for _, source := range sources {
			fmt.Fprintf(&b, "- %s\n", source)
		}
	}
	b.WriteString("\n")

	existing, err := m.store.Read(ctx, m.taskID, ResearchFile)
	if err != nil && !errors.Is(err, contractx.ErrFileNotFound) {
		log.Warn().Err(err).Str("task_id", m.taskID).Msg("failed to read research file")
		return
	}
	if err := m.writeFile(ctx, ResearchFile, existing+b.String()); err != nil {
		log.Warn().Err(err).Str("task_id", m.taskID).Msg("failed to append research")
	}
}

// Findings returns the research collected so far, in order.
func (m *Manager) Findings() []string {
	return append([]string(nil), m.findings...)
}

// WriteFinalOutput stores the deliverable.
func (m *Manager) WriteFinalOutput(ctx context.Context, content string) error {
	if err := m.writeFile(ctx, FinalFile, content); err != nil {
		return fmt.Errorf("write final output for task %q: %w", m.taskID, err)
	}
	return nil
}

// Snapshot concatenates the plan and research files for prompt context.
func (m *Manager) Snapshot(ctx context.Context) string {
	var parts []string
	for _, name := range []string{PlanFile, ResearchFile} {
		content, err := m.store.Read(ctx, m.taskID, name)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("<!-- %s -->\n%s", name, content))
	}
	return strings.Join(parts, "\n\n")
}

// Cleanup removes all workspace files except the ones named.
func (m *Manager) Cleanup(ctx context.Context, keep ...string) error {
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}

	names, err := m.store.List(ctx, m.taskID)
	if err != nil {
		return fmt.Errorf("list workspace for task %q: %w", m.taskID, err)
	}
	for _, name := range names {
		if kept[name] {
			continue
		}
		if err := m.store.Delete(ctx, m.taskID, name); err != nil && !errors.Is(err, contractx.ErrFileNotFound) {
			return fmt.Errorf("delete workspace file %q: %w", name, err)
		}
	}
	return nil
}

// writeFile updates a file, falling back to create when it does not exist.
func (m *Manager) writeFile(ctx context.Context, name, content string) error {
	err := m.store.Update(ctx, m.taskID, name, content)
	if errors.Is(err, contractx.ErrFileNotFound) {
		return m.store.Create(ctx, m.taskID, name, content)
	}
	return err
}
