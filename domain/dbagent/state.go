// Package dbagent provides the domain model for the database agent
// pipeline: the bounded schema view, the SQL plan and result types, table
// relevance ranking, and the read-only safety gate.
package dbagent

// State represents a step in the database agent pipeline.
// States are identified by stable strings.
type State string

const (
	StateInit          State = "init"
	StateSchemaLoading State = "schema_loading"
	StateTableSelected State = "table_selected"
	StatePlanning      State = "planning"
	StateValidating    State = "validating"
	StateExecuting     State = "executing"
	StateAnalyzing     State = "analyzing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// MaxPlanCycles bounds the planning/validation loop: after this many
// safety rejections the run fails with the last rejection reason.
const MaxPlanCycles = 3

// IsTerminal returns true if this is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// IsValid returns true if the state is a recognized pipeline state.
func (s State) IsValid() bool {
	switch s {
	case StateInit, StateSchemaLoading, StateTableSelected, StatePlanning,
		StateValidating, StateExecuting, StateAnalyzing, StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// AllStates returns all pipeline states in their forward order.
func AllStates() []State {
	return []State{
		StateInit,
		StateSchemaLoading,
		StateTableSelected,
		StatePlanning,
		StateValidating,
		StateExecuting,
		StateAnalyzing,
		StateDone,
		StateFailed,
	}
}
