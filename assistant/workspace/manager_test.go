package workspace

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

func testPlan(t *testing.T) *planx.Plan {
	t.Helper()
	p := planx.New("plan-1", "write a trip report", []*planx.Step{
		{ID: "step_1", Title: "Search flights", Tool: "tavily_search"},
		{ID: "step_2", Title: "Write report", Dependencies: []string{"step_1"}},
	}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	p.SuccessCriteria = "report covers flights and costs"
	return p
}

func TestInitializePlanRendersChecklist(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, "task-1")

	if err := m.InitializePlan(context.Background(), testPlan(t)); err != nil {
		t.Fatalf("InitializePlan() error = %v", err)
	}

	content, err := store.Read(context.Background(), "task-1", PlanFile)
	if err != nil {
		t.Fatalf("Read(plan) error = %v", err)
	}
	for _, want := range []string{
		"**Goal:** write a trip report",
		"report covers flights and costs",
		"- [ ] step_1: Search flights (tool: tavily_search)",
		"- [ ] step_2: Write report",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("plan file missing %q:\n%s", want, content)
		}
	}
}

func TestRecordStepTransitionUpdatesMarkers(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, "task-1").WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	p := testPlan(t)
	if err := m.InitializePlan(context.Background(), p); err != nil {
		t.Fatalf("InitializePlan() error = %v", err)
	}

	p.Steps[0].Status = planx.StepCompleted
	p.Steps[0].Summary = "found three options"
	m.RecordStepTransition(context.Background(), p, p.Steps[0], "search ok")

	content, err := store.Read(context.Background(), "task-1", PlanFile)
	if err != nil {
		t.Fatalf("Read(plan) error = %v", err)
	}
	if !strings.Contains(content, "- [x] step_1") {
		t.Fatalf("completed marker missing:\n%s", content)
	}
	if !strings.Contains(content, "found three options") {
		t.Fatalf("step summary missing:\n%s", content)
	}
	if !strings.Contains(content, "2025-06-01T12:00:00Z step_1 -> completed: search ok") {
		t.Fatalf("execution log entry missing:\n%s", content)
	}
}

func TestAppendResearchAccumulates(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, "task-1")

	m.AppendResearch(context.Background(), "flights cost about $400", "https://example.com/fares")
	m.AppendResearch(context.Background(), "hotels average $120 a night")

	content, err := store.Read(context.Background(), "task-1", ResearchFile)
	if err != nil {
		t.Fatalf("Read(research) error = %v", err)
	}
	if !strings.Contains(content, "## Finding 1") || !strings.Contains(content, "## Finding 2") {
		t.Fatalf("findings not numbered:\n%s", content)
	}
	if !strings.Contains(content, "https://example.com/fares") {
		t.Fatalf("source missing:\n%s", content)
	}

	findings := m.Findings()
	if len(findings) != 2 || findings[0] != "flights cost about $400" {
		t.Fatalf("Findings() = %v", findings)
	}
}

func TestSnapshotConcatenatesFiles(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, "task-1")
	if err := m.InitializePlan(context.Background(), testPlan(t)); err != nil {
		t.Fatalf("InitializePlan() error = %v", err)
	}
	m.AppendResearch(context.Background(), "a finding")

	snapshot := m.Snapshot(context.Background())
	if !strings.Contains(snapshot, "Task Plan") || !strings.Contains(snapshot, "a finding") {
		t.Fatalf("snapshot incomplete:\n%s", snapshot)
	}
}

func TestCleanupKeepsNamedFiles(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, "task-1")
	if err := m.InitializePlan(context.Background(), testPlan(t)); err != nil {
		t.Fatalf("InitializePlan() error = %v", err)
	}
	m.AppendResearch(context.Background(), "a finding")
	if err := m.WriteFinalOutput(context.Background(), "done"); err != nil {
		t.Fatalf("WriteFinalOutput() error = %v", err)
	}

	if err := m.Cleanup(context.Background(), FinalFile); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	names, err := store.List(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != FinalFile {
		t.Fatalf("surviving files = %v, want only final output", names)
	}
}

func TestMemoryStoreErrors(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Read(ctx, "t", "missing"); !errors.Is(err, contractx.ErrFileNotFound) {
		t.Fatalf("Read(missing) error = %v, want ErrFileNotFound", err)
	}
	if err := store.Update(ctx, "t", "missing", "x"); !errors.Is(err, contractx.ErrFileNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrFileNotFound", err)
	}
	if err := store.Delete(ctx, "t", "missing"); !errors.Is(err, contractx.ErrFileNotFound) {
		t.Fatalf("Delete(missing) error = %v, want ErrFileNotFound", err)
	}
}
