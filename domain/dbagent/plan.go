package dbagent

import (
	"errors"
	"strings"
	"time"
)

// Plan is a candidate SQL statement produced by the planner. The text is
// a single statement; it has not yet passed the safety gate.
type Plan struct {
	// SQL is the candidate statement text.
	SQL string

	// Tables lists the tables the statement references.
	Tables []string

	// Rationale is the planner's natural-language justification.
	Rationale string
}

// NewPlan validates the basic shape of a candidate plan.
func NewPlan(sql string, tables []string, rationale string) (Plan, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return Plan{}, errors.New("plan contains no SQL")
	}
	return Plan{SQL: sql, Tables: tables, Rationale: rationale}, nil
}

// Result is the outcome of executing a validated plan.
type Result struct {
	// Columns is the result set's column metadata, in select order.
	Columns []string

	// Rows holds the ordered rows; values are scanned as driver-native
	// types with []byte normalized to string.
	Rows [][]any

	// RowCount is len(Rows). Never exceeds the configured limit.
	RowCount int

	// Truncated is set when the row cap cut the result off.
	Truncated bool

	// Duration is the statement's execution time.
	Duration time.Duration
}
