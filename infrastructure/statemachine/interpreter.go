package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Interpreter wraps the statekit interpreter with pipeline-level
// operations: transition by target state string, loop accounting, and the
// recorded trail.
type Interpreter struct {
	interp   *statekit.Interpreter[*Context]
	ctx      *Context
	eventFor func(to string) statekit.EventType
}

// NewInterpreter creates an interpreter for one of the pipeline charts.
// eventFor maps a target state to the chart's event type.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context, eventFor func(to string) statekit.EventType) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp:   interp,
		ctx:      ctx,
		eventFor: eventFor,
	}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Current = string(i.interp.State().Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current pipeline state.
func (i *Interpreter) State() string {
	return string(i.interp.State().Value)
}

// Transition sends the event for the target state. Guards may refuse the
// transition, in which case the machine stays put and an error is
// returned.
func (i *Interpreter) Transition(to, reason string) error {
	before := i.interp.State().Value

	i.interp.Send(statekit.Event{
		Type:    i.eventFor(to),
		Payload: TransitionPayload{ToState: to, Reason: reason},
	})

	after := i.interp.State().Value
	if string(after) != to {
		if after == before {
			return fmt.Errorf("transition from %s to %s refused", before, to)
		}
		return fmt.Errorf("transition to %s landed in %s", to, after)
	}
	return nil
}

// ConsumePlanCycle records one completed planning round.
func (i *Interpreter) ConsumePlanCycle() {
	i.ctx.PlanCycles++
}

// PlanCycles returns the number of completed planning rounds.
func (i *Interpreter) PlanCycles() int {
	return i.ctx.PlanCycles
}

// ConsumeReauth marks the single re-auth cycle as used.
func (i *Interpreter) ConsumeReauth() {
	i.ctx.ReauthUsed = true
}

// IsTerminal returns true once the machine is in a final state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Trail returns the recorded transitions so far.
func (i *Interpreter) Trail() []Transition {
	return i.ctx.Trail
}

// Context returns the machine context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
