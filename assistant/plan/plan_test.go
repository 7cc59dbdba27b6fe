package plan

import (
	"errors"
	"testing"
	"time"
)

func testNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewDefaultsStepStatusAndEstimate(t *testing.T) {
	t.Parallel()

	p := New("plan-1", "book a trip", []*Step{
		{ID: "a", Title: "Search flights", EstimatedMinutes: 5},
		{ID: "b", Title: "Pick a flight", EstimatedMinutes: 2},
	}, testNow())

	if p.Status != StatusPlanning {
		t.Fatalf("status = %q, want %q", p.Status, StatusPlanning)
	}
	if p.TotalEstimatedMinutes != 7 {
		t.Fatalf("total estimate = %d, want 7", p.TotalEstimatedMinutes)
	}
	for _, s := range p.Steps {
		if s.Status != StepPending {
			t.Fatalf("step %s status = %q, want %q", s.ID, s.Status, StepPending)
		}
	}
	if !p.CreatedAt.Equal(testNow()) {
		t.Fatalf("created at = %v, want %v", p.CreatedAt, testNow())
	}
}

func TestValidateRejectsStructuralProblems(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		steps   []*Step
		wantErr error
	}{
		{"no steps", nil, ErrEmptyPlan},
		{"nil step", []*Step{nil}, ErrNilStep},
		{"blank id", []*Step{{ID: "  "}}, ErrEmptyStepID},
		{"duplicate id", []*Step{{ID: "a"}, {ID: "a"}}, ErrDuplicateStep},
		{
			"two step cycle",
			[]*Step{
				{ID: "a", Dependencies: []string{"b"}},
				{ID: "b", Dependencies: []string{"a"}},
			},
			ErrCyclicDeps,
		},
		{
			"self dependency",
			[]*Step{{ID: "a", Dependencies: []string{"a"}}},
			ErrCyclicDeps,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := New("plan-1", "goal", tc.steps, testNow())
			if err := p.Validate(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAllowsUnknownDependencies(t *testing.T) {
	t.Parallel()

	p := New("plan-1", "goal", []*Step{
		{ID: "a", Dependencies: []string{"nonexistent"}},
	}, testNow())
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestDependencyQueries(t *testing.T) {
	t.Parallel()

	s := &Step{ID: "c", Dependencies: []string{"a", "b"}}
	done := map[string]bool{"a": true}

	if s.DependenciesMet(done) {
		t.Fatal("DependenciesMet = true with b pending")
	}
	unmet := s.UnmetDependencies(done)
	if len(unmet) != 1 || unmet[0] != "b" {
		t.Fatalf("UnmetDependencies = %v, want [b]", unmet)
	}

	done["b"] = true
	if !s.DependenciesMet(done) {
		t.Fatal("DependenciesMet = false with all deps done")
	}
}

func TestChainRewritesToSequential(t *testing.T) {
	t.Parallel()

	steps := Chain([]*Step{
		{ID: "a", Dependencies: []string{"stale"}},
		{ID: "b"},
		{ID: "c"},
	})

	if steps[0].Dependencies != nil {
		t.Fatalf("first step deps = %v, want nil", steps[0].Dependencies)
	}
	if got := steps[1].Dependencies; len(got) != 1 || got[0] != "a" {
		t.Fatalf("second step deps = %v, want [a]", got)
	}
	if got := steps[2].Dependencies; len(got) != 1 || got[0] != "b" {
		t.Fatalf("third step deps = %v, want [b]", got)
	}
}

func TestStepByIDAndIndexOf(t *testing.T) {
	t.Parallel()

	p := New("plan-1", "goal", []*Step{{ID: "a"}, {ID: "b"}}, testNow())

	if _, ok := p.StepByID("b"); !ok {
		t.Fatal("StepByID(b) not found")
	}
	if _, ok := p.StepByID("ghost"); ok {
		t.Fatal("StepByID(ghost) found")
	}
	if got := p.IndexOf("b"); got != 1 {
		t.Fatalf("IndexOf(b) = %d, want 1", got)
	}
	if got := p.IndexOf("ghost"); got != -1 {
		t.Fatalf("IndexOf(ghost) = %d, want -1", got)
	}
}
