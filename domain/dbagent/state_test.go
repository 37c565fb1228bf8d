package dbagent

import "testing"

func TestStateIsTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range AllStates() {
		terminal := s == StateDone || s == StateFailed
		if s.IsTerminal() != terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), terminal)
		}
	}
}

func TestStateIsValid(t *testing.T) {
	t.Parallel()

	for _, s := range AllStates() {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if State("bogus").IsValid() {
		t.Error(`State("bogus").IsValid() = true`)
	}
}

func TestNewPlan(t *testing.T) {
	t.Parallel()

	if _, err := NewPlan("  ", nil, ""); err == nil {
		t.Error("NewPlan should reject empty SQL")
	}

	plan, err := NewPlan("  SELECT 1  ", []string{"users"}, "count")
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	if plan.SQL != "SELECT 1" {
		t.Errorf("SQL = %q, want trimmed", plan.SQL)
	}
}
