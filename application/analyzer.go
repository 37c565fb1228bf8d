package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
)

const analyzerSystem = `You answer a question from the execution result provided. Respond with
one JSON object:
{"summary": "...", "findings": [{"label": "...", "value": "..."}]}
Rules:
- The summary answers the question in plain language.
- Findings are concrete values taken from the result, not restatements.
- If the result was truncated, say so in the summary.
- No markdown, no prose outside the JSON object.`

// analysisBodyLimit caps how much result text enters the prompt.
const analysisBodyLimit = 8 * 1024

// Analyzer turns an execution result into the final report. A malformed
// completion earns exactly one re-prompt; a second malformed completion
// fails the run.
type Analyzer struct {
	provider reasoning.Provider
}

// NewAnalyzer creates an analyzer over a reasoning provider.
func NewAnalyzer(provider reasoning.Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

type analysisPayload struct {
	Summary  string          `json:"summary"`
	Findings []query.Finding `json:"findings"`
}

// AnalyzeRows builds the report for a database run.
func (a *Analyzer) AnalyzeRows(ctx context.Context, question string, plan dbagent.Plan, result dbagent.Result) (query.Report, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nStatement:\n%s\n\n", question, plan.SQL)
	fmt.Fprintf(&prompt, "Columns: %s\n", strings.Join(result.Columns, ", "))
	fmt.Fprintf(&prompt, "Rows (%d", result.RowCount)
	if result.Truncated {
		prompt.WriteString(", truncated at the row limit")
	}
	prompt.WriteString("):\n")
	prompt.WriteString(renderRows(result))

	report, err := a.analyze(ctx, question, prompt.String())
	if err != nil {
		return query.Report{}, err
	}
	report.Source = query.SourceRef{
		Kind:     query.SourceDatabase,
		SQL:      plan.SQL,
		RowCount: result.RowCount,
	}
	return report, nil
}

// AnalyzeResponse builds the report for an API run.
func (a *Analyzer) AnalyzeResponse(ctx context.Context, question string, plan apiagent.RequestPlan, resp apiagent.Response) (query.Report, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nCall: %s\nStatus: %d\n\nBody:\n%s\n",
		question, plan.Endpoint.ID(), resp.StatusCode, clip(string(resp.Body), analysisBodyLimit))

	report, err := a.analyze(ctx, question, prompt.String())
	if err != nil {
		return query.Report{}, err
	}
	report.Source = query.SourceRef{
		Kind:       query.SourceAPI,
		Endpoint:   plan.Endpoint.ID(),
		StatusCode: resp.StatusCode,
	}
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, question, prompt string) (query.Report, error) {
	payload, parseErr := a.complete(ctx, prompt)
	if parseErr != nil {
		// One corrective round for a malformed completion.
		logging.Debug().
			Add(logging.Provider(a.provider.Name())).
			Add(logging.Attempt(2)).
			Add(logging.ErrorField(parseErr)).
			Msg("analysis completion malformed, re-prompting")
		retryPrompt := prompt + "\nYour previous answer was not a valid JSON object. Respond with only the JSON object."
		payload, parseErr = a.complete(ctx, retryPrompt)
		if parseErr != nil {
			return query.Report{}, parseErr
		}
	}
	return query.Report{
		Question: question,
		Summary:  payload.Summary,
		Findings: payload.Findings,
	}, nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (analysisPayload, error) {
	resp, err := a.provider.Complete(ctx, reasoning.Request{
		System:    analyzerSystem,
		Prompt:    prompt,
		MaxTokens: 1024,
	})
	if err != nil {
		return analysisPayload{}, err
	}

	var payload analysisPayload
	if err := extractJSON(resp.Text, &payload); err != nil {
		return analysisPayload{}, fmt.Errorf("%w: %v", query.ErrAnalysis, err)
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return analysisPayload{}, fmt.Errorf("%w: completion has no summary", query.ErrAnalysis)
	}
	return payload, nil
}

// renderRows serializes rows as JSON lines, bounded by the prompt limit.
func renderRows(result dbagent.Result) string {
	var sb strings.Builder
	for _, row := range result.Rows {
		line, err := json.Marshal(row)
		if err != nil {
			continue
		}
		if sb.Len()+len(line) > analysisBodyLimit {
			sb.WriteString("...\n")
			break
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
