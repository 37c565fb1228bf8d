package reasoning

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/sourcequery/domain/query"
)

// ScriptedProvider returns a predefined sequence of completions for
// deterministic testing. Each call consumes one step.
type ScriptedProvider struct {
	mu    sync.Mutex
	steps []ScriptStep
	index int

	// Requests records every request received, for assertions.
	Requests []Request
}

// ScriptStep is one scripted completion, or an error to return instead.
type ScriptStep struct {
	Text string
	Err  error
}

// NewScriptedProvider creates a scripted provider with the given steps.
func NewScriptedProvider(steps ...ScriptStep) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// Complete implements the Provider interface.
func (p *ScriptedProvider) Complete(_ context.Context, req Request) (Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)

	if p.index >= len(p.steps) {
		return Response{}, query.ErrReasoning
	}

	step := p.steps[p.index]
	p.index++

	if step.Err != nil {
		return Response{}, step.Err
	}
	return Response{Text: step.Text, Model: "scripted"}, nil
}

// Calls returns how many completions were consumed.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}
