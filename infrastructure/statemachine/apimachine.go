package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
)

const (
	apiStateInit          = statekit.StateID(apiagent.StateInit)
	apiStateDiscovering   = statekit.StateID(apiagent.StateDiscovering)
	apiStateCatalogReady  = statekit.StateID(apiagent.StateCatalogReady)
	apiStateAuthResolving = statekit.StateID(apiagent.StateAuthResolving)
	apiStatePlanning      = statekit.StateID(apiagent.StatePlanning)
	apiStateExecuting     = statekit.StateID(apiagent.StateExecuting)
	apiStateAnalyzing     = statekit.StateID(apiagent.StateAnalyzing)
	apiStateDone          = statekit.StateID(apiagent.StateDone)
	apiStateFailed        = statekit.StateID(apiagent.StateFailed)
)

// NewAPIMachine builds the API pipeline statechart. Two loops exist:
// executing -> planning (re-plan after a failed call, bounded by the
// plan-cycle budget) and executing -> auth_resolving (one re-auth after a
// 401, guarded so it fires at most once per run).
func NewAPIMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("api-query").
		WithInitial(apiStateInit).
		WithContext(&Context{}).
		WithAction("record", recordTransition).
		WithGuard("planCycleAvailable", guardPlanCycleAvailable).
		WithGuard("reauthAvailable", guardReauthAvailable).
		State(apiStateInit).
			On("DISCOVER").Target(apiStateDiscovering).Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStateDiscovering).
			On("CATALOG").Target(apiStateCatalogReady).Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStateCatalogReady).
			On("RESOLVE_AUTH").Target(apiStateAuthResolving).Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStateAuthResolving).
			On("PLAN").Target(apiStatePlanning).Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStatePlanning).
			On("EXECUTE").Target(apiStateExecuting).Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStateExecuting).
			On("ANALYZE").Target(apiStateAnalyzing).Do("record").
			On("PLAN").Target(apiStatePlanning).Guard("planCycleAvailable").Do("record").
			On("RESOLVE_AUTH").Target(apiStateAuthResolving).Guard("reauthAvailable").Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStateAnalyzing).
			On("DONE").Target(apiStateDone).Do("record").
			On("FAIL").Target(apiStateFailed).Do("record").
			Done().
		State(apiStateDone).
			Final().
			Done().
		State(apiStateFailed).
			Final().
			Done().
		Build()
}

// APIEventFor maps a target state to the event that reaches it.
func APIEventFor(to apiagent.State) statekit.EventType {
	switch to {
	case apiagent.StateDiscovering:
		return "DISCOVER"
	case apiagent.StateCatalogReady:
		return "CATALOG"
	case apiagent.StateAuthResolving:
		return "RESOLVE_AUTH"
	case apiagent.StatePlanning:
		return "PLAN"
	case apiagent.StateExecuting:
		return "EXECUTE"
	case apiagent.StateAnalyzing:
		return "ANALYZE"
	case apiagent.StateDone:
		return "DONE"
	case apiagent.StateFailed:
		return "FAIL"
	default:
		return statekit.EventType(to)
	}
}
