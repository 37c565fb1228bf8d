// Package apiagent provides the domain model for the API agent pipeline:
// the discovered endpoint catalog, authentication schemes and credentials,
// the request plan, and the response type.
package apiagent

// State represents a step in the API agent pipeline.
type State string

const (
	StateInit          State = "init"
	StateDiscovering   State = "discovering"
	StateCatalogReady  State = "catalog_ready"
	StateAuthResolving State = "auth_resolving"
	StatePlanning      State = "planning"
	StateExecuting     State = "executing"
	StateAnalyzing     State = "analyzing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// IsTerminal returns true if this is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// IsValid returns true if the state is a recognized pipeline state.
func (s State) IsValid() bool {
	switch s {
	case StateInit, StateDiscovering, StateCatalogReady, StateAuthResolving,
		StatePlanning, StateExecuting, StateAnalyzing, StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
