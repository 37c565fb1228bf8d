package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
)

const requestPlannerSystem = `You pick one API call that answers a question against the endpoints
provided. Respond with one JSON object:
{"method": "GET", "path": "/...", "values": {"param": "value"}, "rationale": "..."}
Rules:
- Choose exactly one endpoint from the list, with its path verbatim.
- Bind every required parameter in "values".
- No markdown, no prose outside the JSON object.`

// RequestPlanner turns a question plus the endpoint catalog into a
// validated request plan.
type RequestPlanner struct {
	provider reasoning.Provider
}

// NewRequestPlanner creates a planner over a reasoning provider.
func NewRequestPlanner(provider reasoning.Provider) *RequestPlanner {
	return &RequestPlanner{provider: provider}
}

type requestPlanPayload struct {
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Values    map[string]string `json:"values"`
	Rationale string            `json:"rationale"`
}

// Plan produces a request plan. feedback carries the previous call's
// failure on re-planning rounds; it is empty on the first round.
func (p *RequestPlanner) Plan(ctx context.Context, question string, catalog apiagent.Catalog, feedback string) (apiagent.RequestPlan, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Base URL: %s\n\nEndpoints:\n%s\nQuestion: %s\n", catalog.BaseURL, catalog.Summary(), question)
	if feedback != "" {
		fmt.Fprintf(&prompt, "\nYour previous call failed: %s\nPick a corrected call.\n", feedback)
	}

	resp, err := p.provider.Complete(ctx, reasoning.Request{
		System:      requestPlannerSystem,
		Prompt:      prompt.String(),
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return apiagent.RequestPlan{}, err
	}

	var payload requestPlanPayload
	if err := extractJSON(resp.Text, &payload); err != nil {
		return apiagent.RequestPlan{}, fmt.Errorf("%w: %v", query.ErrPlanning, err)
	}

	// NewRequestPlan enforces catalog membership, declared parameters and
	// required bindings.
	return apiagent.NewRequestPlan(catalog, payload.Method, payload.Path, payload.Values, payload.Rationale)
}
