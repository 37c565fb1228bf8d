// Package presenter renders run results for the CLI in text, JSON or
// markdown form.
package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/sourcequery/domain/query"
)

// Presenter renders a terminal run result.
type Presenter interface {
	Present(w io.Writer, result query.RunResult) error
}

// ForFormat returns the presenter for a format name.
func ForFormat(format string) (Presenter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return Text{}, nil
	case "json":
		return JSON{}, nil
	case "markdown", "md":
		return Markdown{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (text, json, markdown)", format)
	}
}

// Text renders a human-readable plain-text result.
type Text struct{}

// Present implements Presenter.
func (Text) Present(w io.Writer, result query.RunResult) error {
	if result.Failure != nil {
		_, err := fmt.Fprintf(w, "run %s failed (%s in %s): %s\n",
			result.RunID, result.Failure.Kind, result.Failure.State, result.Failure.Reason)
		return err
	}

	report := result.Report
	if _, err := fmt.Fprintln(w, report.Summary); err != nil {
		return err
	}
	if len(report.Findings) > 0 {
		fmt.Fprintln(w)
		for _, f := range report.Findings {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", f.Label, f.Value); err != nil {
				return err
			}
		}
	}
	fmt.Fprintln(w)
	switch report.Source.Kind {
	case query.SourceDatabase:
		fmt.Fprintf(w, "source: %s (%d rows)\n", report.Source.SQL, report.Source.RowCount)
	case query.SourceAPI:
		fmt.Fprintf(w, "source: %s (status %d)\n", report.Source.Endpoint, report.Source.StatusCode)
	}
	return nil
}

// jsonResult is the stable wire shape of a run result.
type jsonResult struct {
	RunID      string         `json:"run_id"`
	Succeeded  bool           `json:"succeeded"`
	DurationMS int64          `json:"duration_ms"`
	Report     *query.Report  `json:"report,omitempty"`
	Failure    *jsonFailure   `json:"failure,omitempty"`
}

type jsonFailure struct {
	Kind   string `json:"kind"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

// JSON renders the result as one indented JSON object.
type JSON struct{}

// Present implements Presenter.
func (JSON) Present(w io.Writer, result query.RunResult) error {
	out := jsonResult{
		RunID:      result.RunID,
		Succeeded:  result.Succeeded(),
		DurationMS: result.Duration.Milliseconds(),
		Report:     result.Report,
	}
	if result.Failure != nil {
		out.Failure = &jsonFailure{
			Kind:   string(result.Failure.Kind),
			State:  result.Failure.State,
			Reason: result.Failure.Reason,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Markdown renders the result as a small markdown document.
type Markdown struct{}

// Present implements Presenter.
func (Markdown) Present(w io.Writer, result query.RunResult) error {
	if result.Failure != nil {
		_, err := fmt.Fprintf(w, "## Run failed\n\n- **kind**: %s\n- **state**: %s\n- **reason**: %s\n",
			result.Failure.Kind, result.Failure.State, result.Failure.Reason)
		return err
	}

	report := result.Report
	if _, err := fmt.Fprintf(w, "## %s\n\n%s\n", report.Question, report.Summary); err != nil {
		return err
	}
	if len(report.Findings) > 0 {
		fmt.Fprintf(w, "\n| Finding | Value |\n| --- | --- |\n")
		for _, f := range report.Findings {
			fmt.Fprintf(w, "| %s | %s |\n", f.Label, f.Value)
		}
	}
	fmt.Fprintln(w)
	switch report.Source.Kind {
	case query.SourceDatabase:
		fmt.Fprintf(w, "```sql\n%s\n```\n", report.Source.SQL)
	case query.SourceAPI:
		fmt.Fprintf(w, "`%s` returned status %d\n", report.Source.Endpoint, report.Source.StatusCode)
	}
	return nil
}
