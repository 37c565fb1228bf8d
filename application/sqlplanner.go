package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
)

const sqlPlannerSystem = `You write a single read-only SQL statement that answers a question
against the tables provided. Respond with one JSON object:
{"sql": "...", "tables": ["..."], "rationale": "..."}
Rules:
- Exactly one SELECT (or WITH ... SELECT) statement. Never modify data.
- Use only the tables and columns listed.
- No trailing semicolon, no markdown, no prose outside the JSON object.`

// SQLPlanner turns a question plus a bounded schema view into a candidate
// SQL plan. Completions are parsed and validated; nothing from the model
// reaches the executor unchecked.
type SQLPlanner struct {
	provider reasoning.Provider
}

// NewSQLPlanner creates a planner over a reasoning provider.
func NewSQLPlanner(provider reasoning.Provider) *SQLPlanner {
	return &SQLPlanner{provider: provider}
}

type sqlPlanPayload struct {
	SQL       string   `json:"sql"`
	Tables    []string `json:"tables"`
	Rationale string   `json:"rationale"`
}

// Plan produces a candidate statement. feedback carries the safety gate's
// rejection reason on re-planning rounds; it is empty on the first round.
func (p *SQLPlanner) Plan(ctx context.Context, question string, schema dbagent.Schema, feedback string) (dbagent.Plan, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Database: %s\n\nTables:\n%s\nQuestion: %s\n", schema.DatabaseName, schema.Summary(), question)
	if feedback != "" {
		fmt.Fprintf(&prompt, "\nYour previous statement was rejected: %s\nProduce a corrected statement.\n", feedback)
	}

	resp, err := p.provider.Complete(ctx, reasoning.Request{
		System:      sqlPlannerSystem,
		Prompt:      prompt.String(),
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return dbagent.Plan{}, err
	}

	var payload sqlPlanPayload
	if err := extractJSON(resp.Text, &payload); err != nil {
		return dbagent.Plan{}, fmt.Errorf("%w: %v", query.ErrPlanning, err)
	}

	plan, err := dbagent.NewPlan(payload.SQL, payload.Tables, payload.Rationale)
	if err != nil {
		return dbagent.Plan{}, fmt.Errorf("%w: %v", query.ErrPlanning, err)
	}

	// The planner may only touch tables it was shown.
	for _, table := range plan.Tables {
		if !schema.HasTable(table) {
			return dbagent.Plan{}, fmt.Errorf("%w: plan references unknown table %q", query.ErrPlanning, table)
		}
	}
	return plan, nil
}
