package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
)

const (
	dbStateInit          = statekit.StateID(dbagent.StateInit)
	dbStateSchemaLoading = statekit.StateID(dbagent.StateSchemaLoading)
	dbStateTableSelected = statekit.StateID(dbagent.StateTableSelected)
	dbStatePlanning      = statekit.StateID(dbagent.StatePlanning)
	dbStateValidating    = statekit.StateID(dbagent.StateValidating)
	dbStateExecuting     = statekit.StateID(dbagent.StateExecuting)
	dbStateAnalyzing     = statekit.StateID(dbagent.StateAnalyzing)
	dbStateDone          = statekit.StateID(dbagent.StateDone)
	dbStateFailed        = statekit.StateID(dbagent.StateFailed)
)

// NewDatabaseMachine builds the database pipeline statechart. The only
// loop is validating -> planning, guarded by the plan-cycle budget; every
// state can fail.
func NewDatabaseMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("database-query").
		WithInitial(dbStateInit).
		WithContext(&Context{}).
		WithAction("record", recordTransition).
		WithGuard("planCycleAvailable", guardPlanCycleAvailable).
		State(dbStateInit).
			On("LOAD_SCHEMA").Target(dbStateSchemaLoading).Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStateSchemaLoading).
			On("SELECT_TABLES").Target(dbStateTableSelected).Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStateTableSelected).
			On("PLAN").Target(dbStatePlanning).Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStatePlanning).
			On("VALIDATE").Target(dbStateValidating).Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStateValidating).
			On("EXECUTE").Target(dbStateExecuting).Do("record").
			On("PLAN").Target(dbStatePlanning).Guard("planCycleAvailable").Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStateExecuting).
			On("ANALYZE").Target(dbStateAnalyzing).Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStateAnalyzing).
			On("DONE").Target(dbStateDone).Do("record").
			On("FAIL").Target(dbStateFailed).Do("record").
			Done().
		State(dbStateDone).
			Final().
			Done().
		State(dbStateFailed).
			Final().
			Done().
		Build()
}

// DatabaseEventFor maps a target state to the event that reaches it.
func DatabaseEventFor(to dbagent.State) statekit.EventType {
	switch to {
	case dbagent.StateSchemaLoading:
		return "LOAD_SCHEMA"
	case dbagent.StateTableSelected:
		return "SELECT_TABLES"
	case dbagent.StatePlanning:
		return "PLAN"
	case dbagent.StateValidating:
		return "VALIDATE"
	case dbagent.StateExecuting:
		return "EXECUTE"
	case dbagent.StateAnalyzing:
		return "ANALYZE"
	case dbagent.StateDone:
		return "DONE"
	case dbagent.StateFailed:
		return "FAIL"
	default:
		return statekit.EventType(to)
	}
}
