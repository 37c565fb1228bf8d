// Package statemachine provides the statekit statecharts that drive the
// two query pipelines. Each pipeline is a linear chart with a bounded
// re-planning loop and two terminal states.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
)

// Transition is one recorded step of a pipeline run.
type Transition struct {
	From   string
	To     string
	Reason string
	At     time.Time
}

// Context carries run state through a pipeline machine. Both charts share
// it; states are stable strings owned by the respective domain package.
type Context struct {
	RunID   string
	Current string

	// PlanCycles counts completed plan/validate (or plan/execute) loops.
	// The guard refuses re-planning once MaxPlanCycles is spent.
	PlanCycles    int
	MaxPlanCycles int

	// ReauthUsed marks that the single re-auth cycle after a 401 has
	// been consumed.
	ReauthUsed bool

	Trail []Transition
}

// NewContext creates a machine context for a run.
func NewContext(runID, initial string, maxPlanCycles int) *Context {
	return &Context{
		RunID:         runID,
		Current:       initial,
		MaxPlanCycles: maxPlanCycles,
	}
}

// TransitionPayload carries the target state and reason with an event.
type TransitionPayload struct {
	ToState string
	Reason  string
}

// recordTransition appends to the trail and advances Current. Registered
// as the Do action on every transition of both charts.
//
// In statekit, actions receive a pointer to the machine context; with a
// *Context context that is **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx

	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return
	}

	c.Trail = append(c.Trail, Transition{
		From:   c.Current,
		To:     payload.ToState,
		Reason: payload.Reason,
		At:     time.Now(),
	})

	logging.Debug().
		Add(logging.RunID(c.RunID)).
		Add(logging.FromState(c.Current)).
		Add(logging.ToState(payload.ToState)).
		Add(logging.Reason(payload.Reason)).
		Msg("pipeline transition")

	c.Current = payload.ToState
}

// guardPlanCycleAvailable refuses another planning round once the loop
// budget is spent. Guards receive the context by value (*Context here).
func guardPlanCycleAvailable(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	if ctx.MaxPlanCycles <= 0 {
		return true
	}
	return ctx.PlanCycles < ctx.MaxPlanCycles
}

// guardReauthAvailable allows exactly one re-auth loop per run.
func guardReauthAvailable(ctx *Context, _ statekit.Event) bool {
	return ctx != nil && !ctx.ReauthUsed
}
